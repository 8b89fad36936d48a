package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/civic-service-portal/internal/model"
)

// DocumentRepo stores document metadata.  The file bytes live in the
// blob store addressed by storage_ref.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo returns a new DocumentRepo bound to the given database.
func NewDocumentRepo(db *sql.DB) *DocumentRepo { return &DocumentRepo{db: db} }

// Insert stores d.
func (r *DocumentRepo) Insert(ctx context.Context, d model.Document) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO documents (id,request_id,file_name,file_type,storage_ref,file_size,mime_type,uploaded_at) VALUES (?,?,?,?,?,?,?,?)",
		d.ID, d.RequestID, d.FileName, d.FileType, d.StorageRef, d.FileSize, d.MimeType, d.UploadedAt)
	return err
}

// ListByRequest returns the documents of requestID in upload order.
func (r *DocumentRepo) ListByRequest(ctx context.Context, requestID string) ([]model.Document, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id,request_id,file_name,file_type,storage_ref,file_size,mime_type,uploaded_at FROM documents WHERE request_id=? ORDER BY uploaded_at",
		requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Document{}
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.RequestID, &d.FileName, &d.FileType, &d.StorageRef, &d.FileSize, &d.MimeType, &d.UploadedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
