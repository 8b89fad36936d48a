package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/civic-service-portal/internal/lifecycle"
	"github.com/iliyamo/civic-service-portal/internal/model"
)

// Store adapts the repos to lifecycle.Store.  Every WithinTx call opens
// one database transaction.
type Store struct {
	DB            *sql.DB
	Requests      *RequestRepo
	Payments      *PaymentRepo
	Notifications *NotificationRepo
	Audits        *AuditRepo
}

// NewStore wires the repos needed by the lifecycle engine.
func NewStore(db *sql.DB) *Store {
	return &Store{
		DB:            db,
		Requests:      NewRequestRepo(db),
		Payments:      NewPaymentRepo(db),
		Notifications: NewNotificationRepo(db),
		Audits:        NewAuditRepo(db),
	}
}

// WithinTx begins a transaction, runs fn and commits when fn succeeds.
// On any failure the transaction is rolled back.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx lifecycle.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, &storeTx{s: s, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

type storeTx struct {
	s  *Store
	tx *sql.Tx
}

func (t *storeTx) InsertRequest(ctx context.Context, r model.Request) error {
	return t.s.Requests.InsertTx(ctx, t.tx, r)
}

func (t *storeTx) InsertPayment(ctx context.Context, p model.Payment) error {
	return t.s.Payments.InsertTx(ctx, t.tx, p)
}

func (t *storeTx) InsertNotification(ctx context.Context, n model.Notification) error {
	return t.s.Notifications.InsertTx(ctx, t.tx, n)
}

func (t *storeTx) InsertAuditLog(ctx context.Context, a model.AuditLog) error {
	return t.s.Audits.InsertTx(ctx, t.tx, a)
}

func (t *storeTx) LockRequestStatus(ctx context.Context, id string) (model.RequestStatus, error) {
	return t.s.Requests.LockStatusTx(ctx, t.tx, id)
}

func (t *storeTx) UpdateRequestReview(ctx context.Context, r model.Request, expected model.RequestStatus) error {
	return t.s.Requests.UpdateReviewTx(ctx, t.tx, r, expected)
}
