package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/iliyamo/civic-service-portal/internal/model"
)

// RequestRepo persists service requests.  Rows are never physically
// deleted; every read filters on deleted_at IS NULL.  The reference
// number carries the unique key uq_requests_reference.
type RequestRepo struct {
	db *sql.DB
}

// NewRequestRepo returns a new RequestRepo bound to the given database.
func NewRequestRepo(db *sql.DB) *RequestRepo { return &RequestRepo{db: db} }

const referenceKey = "uq_requests_reference"

// InsertTx inserts r inside the caller's transaction.  A clash on the
// reference number yields ErrDuplicateReference.
func (r *RequestRepo) InsertTx(ctx context.Context, tx *sql.Tx, req model.Request) error {
	form, err := json.Marshal(req.FormData)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO requests (id,user_id,service_id,status,form_data,reference_number,submitted_at,updated_at) VALUES (?,?,?,?,?,?,?,?)",
		req.ID, req.UserID, req.ServiceID, string(req.Status), form, req.ReferenceNumber, req.SubmittedAt, req.UpdatedAt)
	if duplicateOn(err, referenceKey) {
		return ErrDuplicateReference
	}
	return err
}

// LockStatusTx locks the request row until the transaction ends and
// returns its status.
func (r *RequestRepo) LockStatusTx(ctx context.Context, tx *sql.Tx, id string) (model.RequestStatus, error) {
	var status string
	err := tx.QueryRowContext(ctx,
		"SELECT status FROM requests WHERE id=? AND deleted_at IS NULL FOR UPDATE", id).Scan(&status)
	if err != nil {
		return "", notFound(err)
	}
	return model.RequestStatus(status), nil
}

// UpdateReviewTx writes the status and review fields of req provided the
// stored status is still expected.  Zero affected rows yields
// ErrStaleStatus.
func (r *RequestRepo) UpdateReviewTx(ctx context.Context, tx *sql.Tx, req model.Request, expected model.RequestStatus) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE requests SET status=?, reviewed_by=?, reviewed_at=?, remarks=?, updated_at=? WHERE id=? AND status=? AND deleted_at IS NULL",
		string(req.Status), req.ReviewedBy, req.ReviewedAt, req.Remarks, req.UpdatedAt, req.ID, string(expected))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleStatus
	}
	return nil
}

const requestViewSelect = `SELECT r.id, r.user_id, r.service_id, r.status, r.form_data, r.reviewed_by, r.reviewed_at,
       r.remarks, r.reference_number, r.submitted_at, r.updated_at,
       s.name, s.department_id, u.name, rv.name
FROM requests r
JOIN services s ON s.id = r.service_id
JOIN users u ON u.id = r.user_id
LEFT JOIN users rv ON rv.id = r.reviewed_by
WHERE r.deleted_at IS NULL`

func scanRequestView(sc rowScanner) (model.RequestView, error) {
	var (
		v                   model.RequestView
		status              string
		form                []byte
		reviewedBy, remarks sql.NullString
		reviewedAt          sql.NullTime
		reviewerName        sql.NullString
	)
	err := sc.Scan(&v.ID, &v.UserID, &v.ServiceID, &status, &form, &reviewedBy, &reviewedAt,
		&remarks, &v.ReferenceNumber, &v.SubmittedAt, &v.UpdatedAt,
		&v.ServiceName, &v.DepartmentID, &v.OwnerName, &reviewerName)
	if err != nil {
		return model.RequestView{}, err
	}
	v.Status = model.RequestStatus(status)
	v.FormData = map[string]any{}
	if len(form) > 0 {
		if err := json.Unmarshal(form, &v.FormData); err != nil {
			return model.RequestView{}, err
		}
	}
	v.ReviewedBy = nullString(reviewedBy)
	v.Remarks = nullString(remarks)
	v.ReviewerName = nullString(reviewerName)
	if reviewedAt.Valid {
		t := reviewedAt.Time
		v.ReviewedAt = &t
	}
	return v, nil
}

// GetView returns the request joined with its service, department and
// owner, or ErrNotFound.
func (r *RequestRepo) GetView(ctx context.Context, id string) (model.RequestView, error) {
	v, err := scanRequestView(r.db.QueryRowContext(ctx, requestViewSelect+" AND r.id=? LIMIT 1", id))
	return v, notFound(err)
}

// RequestFilter narrows List and CountByStatus.  Empty fields match
// everything.
type RequestFilter struct {
	UserID       string
	DepartmentID string
	Status       model.RequestStatus
	Page         Page
}

func (f RequestFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.UserID != "" {
		conds = append(conds, "r.user_id=?")
		args = append(args, f.UserID)
	}
	if f.DepartmentID != "" {
		conds = append(conds, "s.department_id=?")
		args = append(args, f.DepartmentID)
	}
	if f.Status != "" {
		conds = append(conds, "r.status=?")
		args = append(args, string(f.Status))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " AND " + strings.Join(conds, " AND "), args
}

// List returns one page of requests, newest first, and the total
// number of matches.
func (r *RequestRepo) List(ctx context.Context, f RequestFilter) ([]model.RequestView, int, error) {
	cond, args := f.where()

	var total int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM requests r JOIN services s ON s.id = r.service_id WHERE r.deleted_at IS NULL"+cond,
		args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	p := f.Page.Normalize()
	rows, err := r.db.QueryContext(ctx,
		requestViewSelect+cond+" ORDER BY r.submitted_at DESC LIMIT ? OFFSET ?",
		append(args, p.Limit, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.RequestView{}
	for rows.Next() {
		v, err := scanRequestView(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}

// CountByStatus returns the number of matching requests per status.
// The Status field of f is ignored.
func (r *RequestRepo) CountByStatus(ctx context.Context, f RequestFilter) (map[model.RequestStatus]int, error) {
	f.Status = ""
	cond, args := f.where()
	rows, err := r.db.QueryContext(ctx,
		"SELECT r.status, COUNT(*) FROM requests r JOIN services s ON s.id = r.service_id WHERE r.deleted_at IS NULL"+cond+" GROUP BY r.status",
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[model.RequestStatus]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[model.RequestStatus(status)] = n
	}
	return out, rows.Err()
}
