package lifecycle

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/iliyamo/civic-service-portal/internal/model"
)

// Errors a Store implementation returns so the engine can classify
// failures without knowing the database driver.
var (
	ErrRecordNotFound     = errors.New("record not found")
	ErrDuplicateReference = errors.New("duplicate reference number")
	ErrStaleStatus        = errors.New("request status changed")
)

// Store runs fn inside one transaction.  The transaction commits when
// fn returns nil and rolls back otherwise; the error from fn is
// returned unchanged.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of writes a lifecycle transition performs.
type Tx interface {
	// InsertRequest returns ErrDuplicateReference when the reference
	// number is already taken.
	InsertRequest(ctx context.Context, r model.Request) error
	InsertPayment(ctx context.Context, p model.Payment) error
	InsertNotification(ctx context.Context, n model.Notification) error
	InsertAuditLog(ctx context.Context, a model.AuditLog) error

	// LockRequestStatus locks the request row for the rest of the
	// transaction and returns its current status, or ErrRecordNotFound.
	LockRequestStatus(ctx context.Context, id string) (model.RequestStatus, error)

	// UpdateRequestReview writes status and review fields of r iff the
	// stored status still equals expected; otherwise ErrStaleStatus.
	UpdateRequestReview(ctx context.Context, r model.Request, expected model.RequestStatus) error
}

// Clock supplies timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// RandomSource draws uniform integers in [0, n).
type RandomSource interface {
	IntN(n int) int
}

// SystemRandom uses the runtime's shared generator.
type SystemRandom struct{}

func (SystemRandom) IntN(n int) int { return rand.IntN(n) }
