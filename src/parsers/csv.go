package parsers

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/username/btmdesk/backend/src/models"
)

// ReadRows parses an entire CSV stream. The first row is the header list;
// every following row becomes a RawRow.
func ReadRows(file io.Reader) ([]string, []models.RawRow, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV records: %w", err)
	}

	rows := make([]models.RawRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, models.NewRawRow(headers, record))
	}
	return headers, rows, nil
}
