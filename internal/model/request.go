package model

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// RequestStatus enumerates the lifecycle states of a service request.
type RequestStatus string

const (
	StatusSubmitted   RequestStatus = "submitted"
	StatusUnderReview RequestStatus = "under_review"
	StatusApproved    RequestStatus = "approved"
	StatusRejected    RequestStatus = "rejected"
	StatusCompleted   RequestStatus = "completed"
)

// Valid reports whether s is a member of the enumeration.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusSubmitted, StatusUnderReview, StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// Open reports whether a request in this status still awaits a decision.
func (s RequestStatus) Open() bool {
	return s == StatusSubmitted || s == StatusUnderReview
}

// ReferencePattern is the exact persisted shape of a reference number.
var ReferencePattern = regexp.MustCompile(`^REQ-\d{8}-\d{3}$`)

// Request is an application by a citizen for a service.  UserID,
// ServiceID and ReferenceNumber never change after construction; review
// fields are only written by lifecycle transitions.
//
// Fields:
//  ID              – UUID primary key.
//  UserID          – owner (the submitting citizen).
//  ServiceID       – service applied for.
//  Status          – lifecycle state.
//  FormData        – opaque key/value payload from the form.
//  ReviewedBy      – officer who last decided (nullable).
//  ReviewedAt      – time of the last decision (nullable).
//  Remarks         – reviewer remarks (nullable).
//  ReferenceNumber – public identifier, REQ-dddddddd-ddd.
//  SubmittedAt     – creation time.
//  DeletedAt       – soft-delete marker.
type Request struct {
	ID              string         `json:"id"`                    // requests.id
	UserID          string         `json:"user_id"`               // requests.user_id
	ServiceID       string         `json:"service_id"`            // requests.service_id
	Status          RequestStatus  `json:"status"`                // requests.status
	FormData        map[string]any `json:"form_data"`             // requests.form_data (JSON)
	ReviewedBy      *string        `json:"reviewed_by"`           // requests.reviewed_by (nullable)
	ReviewedAt      *time.Time     `json:"reviewed_at"`           // requests.reviewed_at (nullable)
	Remarks         *string        `json:"remarks"`               // requests.remarks (nullable)
	ReferenceNumber string         `json:"reference_number"`      // requests.reference_number
	SubmittedAt     time.Time      `json:"submitted_at"`          // requests.submitted_at
	UpdatedAt       time.Time      `json:"updated_at"`            // requests.updated_at
	DeletedAt       *time.Time     `json:"deleted_at,omitempty"` // requests.deleted_at (nullable)
}

// NewRequest returns a submitted request owned by userID carrying the
// given reference number.  A nil formData becomes an empty map.
func NewRequest(userID, serviceID string, formData map[string]any, reference string, now time.Time) Request {
	if formData == nil {
		formData = map[string]any{}
	}
	return Request{
		ID:              uuid.NewString(),
		UserID:          userID,
		ServiceID:       serviceID,
		Status:          StatusSubmitted,
		FormData:        formData,
		ReferenceNumber: reference,
		SubmittedAt:     now,
		UpdatedAt:       now,
	}
}

// RequestView joins a request with the names callers usually display.
type RequestView struct {
	Request
	ServiceName  string   `json:"service_name"`
	DepartmentID string   `json:"department_id"`
	OwnerName    string   `json:"owner_name,omitempty"`
	ReviewerName *string  `json:"reviewer_name,omitempty"`
	Payment      *Payment `json:"payment,omitempty"`
}
