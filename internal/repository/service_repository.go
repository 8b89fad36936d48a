package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/iliyamo/civic-service-portal/internal/model"
)

// ServiceRepo reads and writes the services table.  Fees are stored in
// minor units; required_documents and form_fields are JSON columns.
type ServiceRepo struct {
	db *sql.DB
}

// NewServiceRepo returns a new ServiceRepo bound to the given database.
func NewServiceRepo(db *sql.DB) *ServiceRepo { return &ServiceRepo{db: db} }

const serviceColumns = "s.id,s.department_id,s.name,s.description,s.fee_cents,s.processing_time,s.required_documents,s.form_fields,s.is_active,s.created_at,s.updated_at,d.is_active"

func scanService(sc rowScanner) (model.Service, error) {
	var (
		s          model.Service
		processing sql.NullString
		docs, form []byte
	)
	err := sc.Scan(&s.ID, &s.DepartmentID, &s.Name, &s.Description, &s.FeeCents, &processing,
		&docs, &form, &s.IsActive, &s.CreatedAt, &s.UpdatedAt, &s.DepartmentActive)
	if err != nil {
		return model.Service{}, err
	}
	s.ProcessingTime = nullString(processing)
	s.RequiredDocuments = []string{}
	if len(docs) > 0 {
		if err := json.Unmarshal(docs, &s.RequiredDocuments); err != nil {
			return model.Service{}, err
		}
	}
	if len(form) > 0 {
		s.FormFields = json.RawMessage(form)
	}
	return s, nil
}

// ServiceFilter narrows List.
type ServiceFilter struct {
	DepartmentID string
	Search       string
	// ActiveOnly hides inactive services and services of inactive departments.
	ActiveOnly bool
}

// List returns services ordered by name.
func (r *ServiceRepo) List(ctx context.Context, f ServiceFilter) ([]model.Service, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.ActiveOnly {
		where = append(where, "s.is_active=1", "d.is_active=1")
	}
	if f.DepartmentID != "" {
		where = append(where, "s.department_id=?")
		args = append(args, f.DepartmentID)
	}
	if f.Search != "" {
		where = append(where, "s.name LIKE ?")
		args = append(args, "%"+f.Search+"%")
	}
	q := "SELECT " + serviceColumns + " FROM services s JOIN departments d ON d.id = s.department_id WHERE " +
		strings.Join(where, " AND ") + " ORDER BY s.name"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Service{}
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetByID returns the service or ErrNotFound.  Inactive services and
// services of inactive departments are returned too; callers check
// Available before letting citizens use them.
func (r *ServiceRepo) GetByID(ctx context.Context, id string) (model.Service, error) {
	s, err := scanService(r.db.QueryRowContext(ctx,
		"SELECT "+serviceColumns+" FROM services s JOIN departments d ON d.id = s.department_id WHERE s.id=? LIMIT 1", id))
	return s, notFound(err)
}

// Create inserts s.
func (r *ServiceRepo) Create(ctx context.Context, s model.Service) error {
	docs, form, err := serviceJSON(s)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO services (id,department_id,name,description,fee_cents,processing_time,required_documents,form_fields,is_active,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?)",
		s.ID, s.DepartmentID, s.Name, s.Description, s.FeeCents, s.ProcessingTime, docs, form, s.IsActive, s.CreatedAt, s.UpdatedAt)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// Update overwrites the mutable fields of s.  Existing payments keep the
// amount they were created with.
func (r *ServiceRepo) Update(ctx context.Context, s model.Service) error {
	docs, form, err := serviceJSON(s)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE services SET department_id=?, name=?, description=?, fee_cents=?, processing_time=?, required_documents=?, form_fields=?, is_active=?, updated_at=? WHERE id=?",
		s.DepartmentID, s.Name, s.Description, s.FeeCents, s.ProcessingTime, docs, form, s.IsActive, s.UpdatedAt, s.ID)
	if isDuplicate(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func serviceJSON(s model.Service) (docs, form []byte, err error) {
	if s.RequiredDocuments == nil {
		s.RequiredDocuments = []string{}
	}
	if docs, err = json.Marshal(s.RequiredDocuments); err != nil {
		return nil, nil, err
	}
	if len(s.FormFields) > 0 {
		form = []byte(s.FormFields)
	}
	return docs, form, nil
}
