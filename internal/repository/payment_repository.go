package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/civic-service-portal/internal/model"
)

// PaymentRepo persists payments.  Status changes after creation belong
// to the settlement integration and are not written here.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// InsertTx inserts p inside the caller's transaction.
func (r *PaymentRepo) InsertTx(ctx context.Context, tx *sql.Tx, p model.Payment) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO payments (id,request_id,amount_cents,status,payment_method,transaction_id,payment_date,created_at) VALUES (?,?,?,?,?,?,?,?)",
		p.ID, p.RequestID, p.AmountCents, string(p.Status), p.PaymentMethod, p.TransactionID, p.PaymentDate, p.CreatedAt)
	return err
}

// GetByRequest returns the payment of requestID, or nil when the request
// has none.
func (r *PaymentRepo) GetByRequest(ctx context.Context, requestID string) (*model.Payment, error) {
	var (
		p             model.Payment
		status        string
		method, txnID sql.NullString
		paidAt        sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id,request_id,amount_cents,status,payment_method,transaction_id,payment_date,created_at FROM payments WHERE request_id=? LIMIT 1",
		requestID).Scan(&p.ID, &p.RequestID, &p.AmountCents, &status, &method, &txnID, &paidAt, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Status = model.PaymentStatus(status)
	p.PaymentMethod = nullString(method)
	p.TransactionID = nullString(txnID)
	if paidAt.Valid {
		t := paidAt.Time
		p.PaymentDate = &t
	}
	return &p, nil
}
