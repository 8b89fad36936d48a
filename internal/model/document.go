package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Document is a file attached to a request.  The bytes live in an
// external blob store; StorageRef is the opaque key into it.
type Document struct {
	ID         string    `json:"id"`          // documents.id
	RequestID  string    `json:"request_id"`  // documents.request_id
	FileName   string    `json:"file_name"`   // documents.file_name
	FileType   string    `json:"file_type"`   // documents.file_type (pdf, image, document)
	StorageRef string    `json:"storage_ref"` // documents.storage_ref
	FileSize   int64     `json:"file_size"`   // documents.file_size
	MimeType   string    `json:"mime_type"`   // documents.mime_type
	UploadedAt time.Time `json:"uploaded_at"` // documents.uploaded_at
}

// NewDocument classifies the file by mime type and returns the record.
func NewDocument(requestID, fileName, storageRef, mimeType string, size int64, now time.Time) Document {
	fileType := "document"
	switch {
	case strings.Contains(mimeType, "pdf"):
		fileType = "pdf"
	case strings.HasPrefix(mimeType, "image/"):
		fileType = "image"
	}
	return Document{
		ID:         uuid.NewString(),
		RequestID:  requestID,
		FileName:   fileName,
		FileType:   fileType,
		StorageRef: storageRef,
		FileSize:   size,
		MimeType:   mimeType,
		UploadedAt: now,
	}
}
