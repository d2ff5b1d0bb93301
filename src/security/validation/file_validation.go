package validation

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/username/btmdesk/backend/src/logger"
)

// allowedClientContentTypes are the client-declared MIME types accepted for a
// CSV upload.
var allowedClientContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"application/vnd.ms-excel": true, // older Excel exports CSV under this type
	"text/plain":               true,
	"application/octet-stream": true,
}

// ValidateClientContentType checks the Content-Type header the client
// declared for the uploaded file.
func ValidateClientContentType(contentType string) error {
	if !allowedClientContentTypes[strings.ToLower(contentType)] {
		logger.L.Warn("Disallowed client-declared Content-Type", "contentType", contentType)
		return fmt.Errorf("client-declared file type '%s' is not allowed for CSV upload", contentType)
	}
	return nil
}

// ValidateFileContentByMagicBytes sniffs the actual file content and rejects
// anything that is not text-shaped. The read pointer is reset so the parser
// can consume the full file afterwards.
func ValidateFileContentByMagicBytes(file io.ReadSeeker) (string, error) {
	if file == nil {
		return "", fmt.Errorf("file is nil")
	}

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file for content type checking: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to reset file read pointer: %w", err)
	}

	detectedContentType := http.DetectContentType(buffer[:n])
	detectedContentType = strings.ToLower(strings.Split(detectedContentType, ";")[0])

	allowedDetectedTypes := map[string]bool{
		"text/plain":               true,
		"text/csv":                 true,
		"application/csv":          true,
		"application/octet-stream": true, // generic fallback; strict parsing catches the rest
	}
	if !allowedDetectedTypes[detectedContentType] {
		logger.L.Warn("Disallowed detected file content type (magic bytes)", "detectedContentType", detectedContentType)
		return detectedContentType, fmt.Errorf("detected file content type '%s' is not consistent with a CSV file", detectedContentType)
	}
	return detectedContentType, nil
}
