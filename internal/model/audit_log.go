package model

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions written by the request lifecycle.
const (
	ActionRequestDecided       = "REQUEST_DECIDED"
	ActionRequestReviewStarted = "REQUEST_REVIEW_STARTED"
	ActionRequestCompleted     = "REQUEST_COMPLETED"
	ActionUserUpdated          = "USER_UPDATED"
)

// AuditLog is an append-only record of a privileged action.  Rows are
// never updated or deleted.
type AuditLog struct {
	ID         string         `json:"id"`                   // audit_logs.id
	ActorID    string         `json:"actor_id"`             // audit_logs.actor_id
	Action     string         `json:"action"`               // audit_logs.action
	TargetID   *string        `json:"target_id"`            // audit_logs.target_id (nullable)
	TargetType *string        `json:"target_type"`          // audit_logs.target_type (nullable)
	Metadata   map[string]any `json:"metadata"`             // audit_logs.metadata (JSON)
	IPAddress  *string        `json:"ip_address,omitempty"` // audit_logs.ip_address (nullable)
	UserAgent  *string        `json:"user_agent,omitempty"` // audit_logs.user_agent (nullable)
	CreatedAt  time.Time      `json:"created_at"`           // audit_logs.created_at
}

// NewAuditLog builds an entry for actorID acting on (targetType, targetID).
func NewAuditLog(actorID, action, targetType, targetID string, metadata map[string]any, now time.Time) AuditLog {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return AuditLog{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		Action:     action,
		TargetID:   &targetID,
		TargetType: &targetType,
		Metadata:   metadata,
		CreatedAt:  now,
	}
}
