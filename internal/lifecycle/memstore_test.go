package lifecycle

import (
	"context"
	"errors"
	"sync"

	"github.com/iliyamo/civic-service-portal/internal/model"
)

// memStore is a serialised in-memory Store.  Writes of a transaction are
// buffered and only become visible when fn returns nil.
type memStore struct {
	mu            sync.Mutex
	requests      map[string]model.Request
	payments      []model.Payment
	notifications []model.Notification
	audits        []model.AuditLog

	// failFn, when set, is consulted before every write with the write's name.
	failFn func(op string) error
}

func newMemStore() *memStore {
	return &memStore{requests: map[string]model.Request{}}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &memTx{s: s, requests: map[string]model.Request{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for id, r := range tx.requests {
		s.requests[id] = r
	}
	s.payments = append(s.payments, tx.payments...)
	s.notifications = append(s.notifications, tx.notifications...)
	s.audits = append(s.audits, tx.audits...)
	return nil
}

func (s *memStore) put(r model.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[r.ID] = r
}

func (s *memStore) get(id string) (model.Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	return r, ok
}

type memTx struct {
	s             *memStore
	requests      map[string]model.Request
	payments      []model.Payment
	notifications []model.Notification
	audits        []model.AuditLog
}

func (t *memTx) fail(op string) error {
	if t.s.failFn == nil {
		return nil
	}
	return t.s.failFn(op)
}

func (t *memTx) lookup(id string) (model.Request, bool) {
	if r, ok := t.requests[id]; ok {
		return r, true
	}
	r, ok := t.s.requests[id]
	return r, ok
}

func (t *memTx) InsertRequest(_ context.Context, r model.Request) error {
	if err := t.fail("request"); err != nil {
		return err
	}
	for _, existing := range t.s.requests {
		if existing.ReferenceNumber == r.ReferenceNumber {
			return ErrDuplicateReference
		}
	}
	t.requests[r.ID] = r
	return nil
}

func (t *memTx) InsertPayment(_ context.Context, p model.Payment) error {
	if err := t.fail("payment"); err != nil {
		return err
	}
	t.payments = append(t.payments, p)
	return nil
}

func (t *memTx) InsertNotification(_ context.Context, n model.Notification) error {
	if err := t.fail("notification"); err != nil {
		return err
	}
	t.notifications = append(t.notifications, n)
	return nil
}

func (t *memTx) InsertAuditLog(_ context.Context, a model.AuditLog) error {
	if err := t.fail("audit"); err != nil {
		return err
	}
	t.audits = append(t.audits, a)
	return nil
}

func (t *memTx) LockRequestStatus(_ context.Context, id string) (model.RequestStatus, error) {
	r, ok := t.lookup(id)
	if !ok {
		return "", ErrRecordNotFound
	}
	return r.Status, nil
}

func (t *memTx) UpdateRequestReview(_ context.Context, r model.Request, expected model.RequestStatus) error {
	if err := t.fail("update"); err != nil {
		return err
	}
	cur, ok := t.lookup(r.ID)
	if !ok {
		return ErrRecordNotFound
	}
	if cur.Status != expected {
		return ErrStaleStatus
	}
	t.requests[r.ID] = r
	return nil
}

var errBoom = errors.New("boom")
