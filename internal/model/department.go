package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Department groups services and the staff who review requests for them.
// Name is unique across the table.
type Department struct {
	ID          string    `json:"id"`                    // departments.id
	Name        string    `json:"name"`                  // departments.name
	Description *string   `json:"description,omitempty"` // departments.description (nullable)
	IsActive    bool      `json:"is_active"`             // departments.is_active
	CreatedAt   time.Time `json:"created_at"`            // departments.created_at
	UpdatedAt   time.Time `json:"updated_at"`            // departments.updated_at
}

// NewDepartment returns an active department.
func NewDepartment(name string, description *string, now time.Time) Department {
	return Department{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(name),
		Description: description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
