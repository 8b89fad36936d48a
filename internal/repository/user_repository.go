package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/civic-service-portal/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

const userColumns = "id,name,email,password_hash,role,department_id,national_id,is_active,last_login,created_at,updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (model.User, error) {
	var (
		u         model.User
		role      string
		dept, nid sql.NullString
		lastLogin sql.NullTime
	)
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &dept, &nid,
		&u.IsActive, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.Role = model.Role(role)
	u.DepartmentID = nullString(dept)
	u.NationalID = nullString(nid)
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return u, nil
}

// Create inserts a user built by model.NewUser.
func (r *UserRepo) Create(ctx context.Context, u model.User) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id,name,email,password_hash,role,department_id,national_id,is_active,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?)",
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.DepartmentID, u.NationalID, u.IsActive, u.CreatedAt, u.UpdatedAt)
	if isDuplicate(err) {
		return ErrEmailExists
	}
	return err
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
	return u, notFound(err)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	return u, notFound(err)
}

// TouchLastLogin records a successful login.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET last_login=? WHERE id=?", at, id)
	return err
}

// UserFilter narrows List.  Empty fields match everything.
type UserFilter struct {
	Role         model.Role
	DepartmentID string
	Search       string
	Page         Page
}

// List returns one page of users and the total number of matches.
func (r *UserRepo) List(ctx context.Context, f UserFilter) ([]model.User, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.Role != "" {
		where = append(where, "role=?")
		args = append(args, string(f.Role))
	}
	if f.DepartmentID != "" {
		where = append(where, "department_id=?")
		args = append(args, f.DepartmentID)
	}
	if f.Search != "" {
		where = append(where, "(name LIKE ? OR email LIKE ?)")
		like := "%" + f.Search + "%"
		args = append(args, like, like)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	p := f.Page.Normalize()
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+cond+" ORDER BY created_at DESC LIMIT ? OFFSET ?",
		append(args, p.Limit, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// UpdateTx writes the administrable fields of u: role, department and
// activation.  It runs inside the caller's transaction so that the
// matching audit entry commits with it.
func (r *UserRepo) UpdateTx(ctx context.Context, tx *sql.Tx, u model.User) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE users SET name=?, role=?, department_id=?, is_active=?, updated_at=? WHERE id=?",
		u.Name, string(u.Role), u.DepartmentID, u.IsActive, u.UpdatedAt, u.ID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// UpdateWithAudit applies u and appends entry in one transaction.
func (r *UserRepo) UpdateWithAudit(ctx context.Context, u model.User, entry model.AuditLog) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = r.UpdateTx(ctx, tx, u); err != nil {
		return err
	}
	if err = NewAuditRepo(r.DB).InsertTx(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit()
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
