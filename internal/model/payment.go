package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus enumerates settlement states.  Only pending is written by
// this service; the others are set by the settlement integration.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Payment records the fee owed for a request.  There is at most one
// payment per request and AmountCents is copied from the service fee when
// the request is created, so later price changes do not affect it.
type Payment struct {
	ID            string        `json:"id"`                       // payments.id
	RequestID     string        `json:"request_id"`               // payments.request_id (unique)
	AmountCents   int64         `json:"amount_cents"`             // payments.amount_cents
	Status        PaymentStatus `json:"status"`                   // payments.status
	PaymentMethod *string       `json:"payment_method,omitempty"` // payments.payment_method (nullable)
	TransactionID *string       `json:"transaction_id,omitempty"` // payments.transaction_id (nullable)
	PaymentDate   *time.Time    `json:"payment_date"`             // payments.payment_date (nullable)
	CreatedAt     time.Time     `json:"created_at"`               // payments.created_at
}

// NewPendingPayment builds the payment owed for requestID.
func NewPendingPayment(requestID string, amountCents int64, now time.Time) Payment {
	return Payment{
		ID:          uuid.NewString(),
		RequestID:   requestID,
		AmountCents: amountCents,
		Status:      PaymentPending,
		CreatedAt:   now,
	}
}
