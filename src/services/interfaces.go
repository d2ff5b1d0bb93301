package services

import (
	"io"

	"github.com/username/btmdesk/backend/src/models"
)

// UploadResult summarizes one ingestion call. Inserted and Duplicates are
// reported separately; a repeated upload of the same file shows Inserted 0.
type UploadResult struct {
	UploadID   int64  `json:"upload_id"`
	Platform   string `json:"platform"`
	ParsedRows int    `json:"parsed_rows"`
	Inserted   int    `json:"inserted"`
	Duplicates int    `json:"duplicates"`
	NewTickers int    `json:"new_tickers"`
	NewDevices int    `json:"new_devices"`
}

// UploadService ingests platform CSV exports.
type UploadService interface {
	ProcessUpload(fileReader io.Reader, filename string) (*UploadResult, error)
	ListUploads() ([]models.Upload, error)
	DeleteUpload(id int64) error
}

// EmailService sends operator account mail.
type EmailService interface {
	SendPasswordResetEmail(toEmail, username, token string) error
}
