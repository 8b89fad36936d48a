package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/civic-service-portal/internal/model"
)

// DepartmentRepo reads and writes the departments table.  Departments
// are never deleted; deactivation hides them and their services from
// the public catalog.
type DepartmentRepo struct {
	db *sql.DB
}

// NewDepartmentRepo returns a new DepartmentRepo bound to the given database.
func NewDepartmentRepo(db *sql.DB) *DepartmentRepo { return &DepartmentRepo{db: db} }

const departmentColumns = "id,name,description,is_active,created_at,updated_at"

func scanDepartment(s rowScanner) (model.Department, error) {
	var (
		d    model.Department
		desc sql.NullString
	)
	if err := s.Scan(&d.ID, &d.Name, &desc, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return model.Department{}, err
	}
	d.Description = nullString(desc)
	return d, nil
}

// List returns departments ordered by name.  With activeOnly set,
// deactivated departments are skipped.
func (r *DepartmentRepo) List(ctx context.Context, activeOnly bool) ([]model.Department, error) {
	q := "SELECT " + departmentColumns + " FROM departments"
	if activeOnly {
		q += " WHERE is_active=1"
	}
	rows, err := r.db.QueryContext(ctx, q+" ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Department{}
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetByID returns the department or ErrNotFound.
func (r *DepartmentRepo) GetByID(ctx context.Context, id string) (model.Department, error) {
	d, err := scanDepartment(r.db.QueryRowContext(ctx,
		"SELECT "+departmentColumns+" FROM departments WHERE id=? LIMIT 1", id))
	return d, notFound(err)
}

// Create inserts d.  A duplicate name yields ErrConflict.
func (r *DepartmentRepo) Create(ctx context.Context, d model.Department) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO departments (id,name,description,is_active,created_at,updated_at) VALUES (?,?,?,?,?,?)",
		d.ID, d.Name, d.Description, d.IsActive, d.CreatedAt, d.UpdatedAt)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// Update overwrites the mutable fields of d.
func (r *DepartmentRepo) Update(ctx context.Context, d model.Department) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE departments SET name=?, description=?, is_active=?, updated_at=? WHERE id=?",
		d.Name, d.Description, d.IsActive, d.UpdatedAt, d.ID)
	if isDuplicate(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	return expectOneRow(res)
}
