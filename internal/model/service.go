package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service is an offering of a department that citizens can apply for.
// FeeCents holds the fee in minor units so that 25.00 is stored as 2500.
// FormFields describes the UI form and is not enforced when a request is
// submitted.
type Service struct {
	ID                string          `json:"id"`                        // services.id
	DepartmentID      string          `json:"department_id"`             // services.department_id
	Name              string          `json:"name"`                      // services.name
	Description       string          `json:"description"`               // services.description
	FeeCents          int64           `json:"fee_cents"`                 // services.fee_cents
	ProcessingTime    *string         `json:"processing_time,omitempty"` // services.processing_time (nullable)
	RequiredDocuments []string        `json:"required_documents"`        // services.required_documents (JSON)
	FormFields        json.RawMessage `json:"form_fields,omitempty"`     // services.form_fields (JSON)
	IsActive          bool            `json:"is_active"`                 // services.is_active
	CreatedAt         time.Time       `json:"created_at"`                // services.created_at
	UpdatedAt         time.Time       `json:"updated_at"`                // services.updated_at

	// DepartmentActive mirrors departments.is_active of the owning
	// department as read with the service.
	DepartmentActive bool `json:"-"`
}

// NewService returns an active service of departmentID.  A nil
// document list becomes empty.
func NewService(departmentID, name, description string, feeCents int64, requiredDocs []string, now time.Time) Service {
	if requiredDocs == nil {
		requiredDocs = []string{}
	}
	return Service{
		ID:                uuid.NewString(),
		DepartmentID:      departmentID,
		Name:              strings.TrimSpace(name),
		Description:       description,
		FeeCents:          feeCents,
		RequiredDocuments: requiredDocs,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Available reports whether citizens may see and apply for the service:
// both it and its department are active.
func (s Service) Available() bool { return s.IsActive && s.DepartmentActive }

// HasFee reports whether submitting a request for the service creates a payment.
func (s Service) HasFee() bool { return s.FeeCents > 0 }

// FormatCents renders minor units as a decimal string, e.g. 2500 -> "25.00".
func FormatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}
