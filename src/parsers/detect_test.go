package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/btmdesk/backend/src/models"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    string
	}{
		{
			name:    "bitaccess dotted headers",
			headers: []string{"id", "atm.id", "coin.type", "inserted.amount", "created.at"},
			want:    models.PlatformBitaccess,
		},
		{
			name:    "bitaccess underscore headers",
			headers: []string{"transaction_id", "atm_id", "coin_type", "inserted_amount"},
			want:    models.PlatformBitaccess,
		},
		{
			name:    "single marker is enough",
			headers: []string{"Transaction ID", "COIN.TYPE", "Cash Amount"},
			want:    models.PlatformBitaccess,
		},
		{
			name:    "genesis headers",
			headers: []string{"Transaction ID", "Machine ID", "Cash Amount", "Fee", "Date"},
			want:    models.PlatformGenesis,
		},
		{
			name:    "unrecognized defaults to genesis",
			headers: []string{"foo", "bar"},
			want:    models.PlatformGenesis,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectPlatform(tt.headers))
		})
	}
}

func TestGetParser(t *testing.T) {
	p, err := GetParser(models.PlatformGenesis)
	require.NoError(t, err)
	assert.NotNil(t, p)

	p, err = GetParser(models.PlatformBitaccess)
	require.NoError(t, err)
	assert.NotNil(t, p)

	_, err = GetParser("unknown")
	assert.Error(t, err)
}

func TestReadRows(t *testing.T) {
	csvData := "Transaction ID,Cash Amount\ntx-1,100\ntx-2,250\n"
	headers, rows, err := ReadRows(strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, []string{"Transaction ID", "Cash Amount"}, headers)
	require.Len(t, rows, 2)

	v, _ := rows[1].Get("cash amount")
	assert.Equal(t, "250", v)
}

func TestReadRowsRaggedRecords(t *testing.T) {
	csvData := "a,b,c\n1,2\n1,2,3,4\n"
	_, rows, err := ReadRows(strings.NewReader(csvData))
	require.NoError(t, err, "ragged rows are tolerated, not fatal")
	assert.Len(t, rows, 2)
}
