// Package lifecycle moves service requests through their states and
// writes the payment, notification and audit rows that must commit with
// each transition.  It does not authorize: callers run the access
// pipeline first and pass in rows they have already loaded.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/civic-service-portal/internal/apperr"
	"github.com/iliyamo/civic-service-portal/internal/metrics"
	"github.com/iliyamo/civic-service-portal/internal/model"
)

// DefaultMaxReferenceAttempts bounds reference regeneration on collision.
const DefaultMaxReferenceAttempts = 5

const (
	// DefaultEventBuffer is the number of events waiting for delivery
	// before new ones are dropped.
	DefaultEventBuffer = 256

	publishTimeout = 10 * time.Second
)

// Event is published after a transition commits.
type Event struct {
	Type            string              `json:"type"`
	RequestID       string              `json:"request_id"`
	ReferenceNumber string              `json:"reference_number"`
	Status          model.RequestStatus `json:"status"`
	OwnerID         string              `json:"owner_id"`
	ActorID         string              `json:"actor_id"`
	OccurredAt      string              `json:"occurred_at"`
}

// Publisher delivers events outside the transaction.  The engine calls
// it from a single background goroutine; failures are logged and never
// returned to the caller of an operation.
type Publisher interface {
	PublishRequestEvent(ctx context.Context, ev Event) error
}

// Outcome is the result of Create.
type Outcome struct {
	Request      model.Request      `json:"request"`
	Payment      *model.Payment     `json:"payment,omitempty"`
	Notification model.Notification `json:"-"`
}

// Engine performs lifecycle operations against a Store.
type Engine struct {
	store       Store
	clock       Clock
	rnd         RandomSource
	publisher   Publisher
	log         *logrus.Entry
	maxAttempts int

	bufSize   int
	events    chan Event
	delivered chan struct{}
	closeOnce sync.Once
}

// Option configures an Engine.
type Option func(*Engine)

func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

func WithRandom(r RandomSource) Option { return func(e *Engine) { e.rnd = r } }

func WithPublisher(p Publisher) Option { return func(e *Engine) { e.publisher = p } }

func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = l.WithField("component", "lifecycle") }
}

// WithEventBuffer sets how many events may wait for the publisher.
func WithEventBuffer(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.bufSize = n
		}
	}
}

// WithMaxReferenceAttempts sets the creation retry budget; values below
// one are ignored.
func WithMaxReferenceAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// New returns an engine over store with system clock and randomness.
func New(store Store, opts ...Option) *Engine {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	e := &Engine{
		store:       store,
		clock:       SystemClock{},
		rnd:         SystemRandom{},
		log:         logrus.NewEntry(discard),
		maxAttempts: DefaultMaxReferenceAttempts,
		bufSize:     DefaultEventBuffer,
	}
	for _, o := range opts {
		o(e)
	}
	if e.publisher != nil {
		e.events = make(chan Event, e.bufSize)
		e.delivered = make(chan struct{})
		go e.deliver()
	}
	return e
}

// Close stops accepting events and waits until the queued ones have
// been handed to the publisher.  No operation may run concurrently with
// or after Close.
func (e *Engine) Close() {
	if e.events == nil {
		return
	}
	e.closeOnce.Do(func() {
		close(e.events)
		<-e.delivered
	})
}

func (e *Engine) deliver() {
	defer close(e.delivered)
	for ev := range e.events {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := e.publisher.PublishRequestEvent(ctx, ev)
		cancel()
		if err != nil {
			e.log.WithError(err).WithFields(logrus.Fields{
				"event":      ev.Type,
				"request_id": ev.RequestID,
			}).Warn("publish request event failed")
		}
	}
}

// Create submits a request for svc on behalf of actor.  The request, its
// payment (when the service charges a fee) and the confirmation
// notification commit together.  A reference collision retries the whole
// transaction with a new reference until the attempt budget is spent.
func (e *Engine) Create(ctx context.Context, actor *model.User, svc *model.Service, formData map[string]any) (Outcome, error) {
	out, err := e.create(ctx, actor, svc, formData)
	record("create", err)
	return out, err
}

func (e *Engine) create(ctx context.Context, actor *model.User, svc *model.Service, formData map[string]any) (Outcome, error) {
	if actor == nil {
		return Outcome{}, apperr.New(apperr.Unauthenticated, "authentication required")
	}
	if svc == nil || !svc.Available() {
		return Outcome{}, apperr.New(apperr.NotFound, "service not found")
	}

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		now := e.clock.Now()
		req := model.NewRequest(actor.ID, svc.ID, formData, NewReference(now, e.rnd), now)
		plan := planCreate(req, *svc)

		err := e.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
			return plan.apply(ctx, tx)
		})
		if err == nil {
			out := Outcome{Request: req, Payment: plan.payment, Notification: plan.notifications[0]}
			e.log.WithFields(logrus.Fields{
				"request_id": req.ID,
				"reference":  req.ReferenceNumber,
				"user_id":    actor.ID,
				"attempt":    attempt,
			}).Info("request created")
			e.publish("request.created", req, actor)
			return out, nil
		}
		if !errors.Is(err, ErrDuplicateReference) {
			return Outcome{}, classify(err, "create request")
		}
		metrics.RecordReferenceCollision()
		e.log.WithFields(logrus.Fields{
			"reference": req.ReferenceNumber,
			"attempt":   attempt,
		}).Warn("reference number collision, regenerating")
		lastErr = err
	}
	return Outcome{}, apperr.Wrap(apperr.ReferenceCollision,
		fmt.Sprintf("could not allocate a unique reference number after %d attempts", e.maxAttempts), lastErr)
}

// Decide records an approve or reject decision by actor.  req is the row
// as the caller read it; if the stored status has moved since, the call
// fails with ConcurrentModification and nothing is written.
func (e *Engine) Decide(ctx context.Context, actor *model.User, req *model.Request, decision model.RequestStatus, remarks string) (model.Request, error) {
	if decision != model.StatusApproved && decision != model.StatusRejected {
		err := apperr.New(apperr.ValidationFailed, `decision must be "approved" or "rejected"`)
		record("decide", err)
		return model.Request{}, err
	}
	remarks = strings.TrimSpace(remarks)
	out, err := e.transition(ctx, actor, req, transition{
		op:     "decide",
		event:  "request.decided",
		action: model.ActionRequestDecided,
		from:   []model.RequestStatus{model.StatusSubmitted, model.StatusUnderReview},
		to:     decision,
		mutate: func(r *model.Request) {
			now, reviewer := r.UpdatedAt, actor.ID
			r.ReviewedBy = &reviewer
			r.ReviewedAt = &now
			r.Remarks = nil
			if remarks != "" {
				r.Remarks = &remarks
			}
		},
	})
	record("decide", err)
	return out, err
}

// StartReview moves a submitted request to under_review.
func (e *Engine) StartReview(ctx context.Context, actor *model.User, req *model.Request) (model.Request, error) {
	out, err := e.transition(ctx, actor, req, transition{
		op:     "start_review",
		event:  "request.review_started",
		action: model.ActionRequestReviewStarted,
		from:   []model.RequestStatus{model.StatusSubmitted},
		to:     model.StatusUnderReview,
	})
	record("start_review", err)
	return out, err
}

// Complete closes an approved request.
func (e *Engine) Complete(ctx context.Context, actor *model.User, req *model.Request) (model.Request, error) {
	out, err := e.transition(ctx, actor, req, transition{
		op:     "complete",
		event:  "request.completed",
		action: model.ActionRequestCompleted,
		from:   []model.RequestStatus{model.StatusApproved},
		to:     model.StatusCompleted,
	})
	record("complete", err)
	return out, err
}

type transition struct {
	op     string
	event  string
	action string
	from   []model.RequestStatus
	to     model.RequestStatus
	mutate func(r *model.Request)
}

func (t transition) allows(s model.RequestStatus) bool {
	for _, f := range t.from {
		if f == s {
			return true
		}
	}
	return false
}

func (e *Engine) transition(ctx context.Context, actor *model.User, req *model.Request, t transition) (model.Request, error) {
	if actor == nil {
		return model.Request{}, apperr.New(apperr.Unauthenticated, "authentication required")
	}
	if req == nil || req.DeletedAt != nil {
		return model.Request{}, apperr.New(apperr.NotFound, "request not found")
	}
	if !t.allows(req.Status) {
		return model.Request{}, invalidTransition(req.Status, t.to)
	}

	prev := *req
	next := *req
	next.Status = t.to
	next.UpdatedAt = e.clock.Now()
	if t.mutate != nil {
		t.mutate(&next)
	}
	plan := planTransition(prev, next, actor, t.action)

	err := e.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		current, err := tx.LockRequestStatus(ctx, prev.ID)
		if err != nil {
			return err
		}
		if current != prev.Status {
			return apperr.New(apperr.ConcurrentModification,
				fmt.Sprintf("request is %s, expected %s; re-fetch and retry", current, prev.Status))
		}
		return plan.apply(ctx, tx)
	})
	if err != nil {
		return model.Request{}, classify(err, t.op)
	}

	e.log.WithFields(logrus.Fields{
		"request_id": next.ID,
		"actor_id":   actor.ID,
		"from":       prev.Status,
		"to":         next.Status,
	}).Info("request " + t.op)
	e.publish(t.event, next, actor)
	return next, nil
}

func invalidTransition(from, to model.RequestStatus) error {
	return apperr.New(apperr.InvalidTransition, fmt.Sprintf("cannot move request from %s to %s", from, to))
}

// classify maps store errors onto error kinds, keeping the cause.
func classify(err error, op string) error {
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		return err
	case errors.Is(err, ErrRecordNotFound):
		return apperr.Wrap(apperr.NotFound, "request not found", err)
	case errors.Is(err, ErrStaleStatus):
		return apperr.Wrap(apperr.ConcurrentModification, "request changed concurrently; re-fetch and retry", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(apperr.StoreUnavailable, op+" cancelled", err)
	default:
		return apperr.Wrap(apperr.StoreUnavailable, op+" failed", err)
	}
}

func record(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(apperr.KindOf(err))
	}
	metrics.RecordTransition(op, outcome)
}

// publish queues an event without waiting for the broker.  A full
// queue drops the event.
func (e *Engine) publish(typ string, r model.Request, actor *model.User) {
	if e.events == nil {
		return
	}
	ev := Event{
		Type:            typ,
		RequestID:       r.ID,
		ReferenceNumber: r.ReferenceNumber,
		Status:          r.Status,
		OwnerID:         r.UserID,
		ActorID:         actor.ID,
		OccurredAt:      r.UpdatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}
	select {
	case e.events <- ev:
	default:
		e.log.WithFields(logrus.Fields{
			"event":      typ,
			"request_id": r.ID,
		}).Warn("event queue full, dropping request event")
	}
}
