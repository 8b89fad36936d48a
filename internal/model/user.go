package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/civic-service-portal/internal/utils"
)

// Role is the closed set of actor roles.  The numeric ordering between
// roles lives in the access package's role table; string comparisons on
// roles should not appear anywhere else.
type Role string

const (
	RoleCitizen        Role = "citizen"
	RoleOfficer        Role = "officer"
	RoleDepartmentHead Role = "department_head"
	RoleAdmin          Role = "admin"
)

// ErrUnknownRole is returned by ParseRole for values outside the enumeration.
var ErrUnknownRole = errors.New("unknown role")

// ParseRole normalises s and returns the matching Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleCitizen, RoleOfficer, RoleDepartmentHead, RoleAdmin:
		return r, nil
	}
	return "", ErrUnknownRole
}

// IsStaff reports whether the role is attached to a department.
func (r Role) IsStaff() bool {
	return r == RoleOfficer || r == RoleDepartmentHead
}

// User represents an actor as stored in the `users` table.  Users are
// never removed; deactivation flips IsActive.  DepartmentID is only
// meaningful for officers and department heads.
//
// Fields:
//  ID           – UUID primary key.
//  Name         – display name.
//  Email        – unique, lower-cased address.
//  PasswordHash – bcrypt hash, never serialised.
//  Role         – one of the Role constants.
//  DepartmentID – owning department for staff (nil otherwise).
//  NationalID   – optional citizen identifier.
//  IsActive     – soft-deactivation flag.
//  LastLogin    – last successful login.
type User struct {
	ID           string     `json:"id"`                      // users.id
	Name         string     `json:"name"`                    // users.name
	Email        string     `json:"email"`                   // users.email
	PasswordHash string     `json:"-"`                       // users.password_hash
	Role         Role       `json:"role"`                    // users.role
	DepartmentID *string    `json:"department_id,omitempty"` // users.department_id (nullable)
	NationalID   *string    `json:"national_id,omitempty"`   // users.national_id (nullable)
	IsActive     bool       `json:"is_active"`               // users.is_active
	LastLogin    *time.Time `json:"last_login,omitempty"`    // users.last_login (nullable)
	CreatedAt    time.Time  `json:"created_at"`              // users.created_at
	UpdatedAt    time.Time  `json:"updated_at"`              // users.updated_at
}

// NewUser builds a fully formed active user: the id is generated and the
// password hashed here rather than by a persistence hook.
func NewUser(name, email, password string, role Role, bcryptCost int, now time.Time) (User, error) {
	hash, err := utils.HashPassword(password, bcryptCost)
	if err != nil {
		return User{}, err
	}
	return User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// InDepartment reports whether the user is staff of departmentID.
func (u User) InDepartment(departmentID string) bool {
	return u.DepartmentID != nil && *u.DepartmentID == departmentID
}
