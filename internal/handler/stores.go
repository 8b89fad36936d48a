package handler

import (
	"context"
	"time"

	"github.com/iliyamo/civic-service-portal/internal/lifecycle"
	"github.com/iliyamo/civic-service-portal/internal/model"
	"github.com/iliyamo/civic-service-portal/internal/repository"
)

// The interfaces below are the slices of the repositories each handler
// needs; the MySQL repos satisfy them and tests swap in fakes.

type UserStore interface {
	Create(ctx context.Context, u model.User) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

type UserAdminStore interface {
	GetByID(ctx context.Context, id string) (model.User, error)
	List(ctx context.Context, f repository.UserFilter) ([]model.User, int, error)
	UpdateWithAudit(ctx context.Context, u model.User, entry model.AuditLog) error
}

type TokenStore interface {
	StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (string, error)
	Rotate(ctx context.Context, userID, oldHash, newHash string, exp time.Time) error
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

// SessionRevoker ends every session of a user.
type SessionRevoker interface {
	RevokeAllForUser(ctx context.Context, userID string) error
}

type DepartmentStore interface {
	List(ctx context.Context, activeOnly bool) ([]model.Department, error)
	GetByID(ctx context.Context, id string) (model.Department, error)
	Create(ctx context.Context, d model.Department) error
	Update(ctx context.Context, d model.Department) error
}

type ServiceStore interface {
	List(ctx context.Context, f repository.ServiceFilter) ([]model.Service, error)
	GetByID(ctx context.Context, id string) (model.Service, error)
	Create(ctx context.Context, s model.Service) error
	Update(ctx context.Context, s model.Service) error
}

type RequestStore interface {
	GetView(ctx context.Context, id string) (model.RequestView, error)
	List(ctx context.Context, f repository.RequestFilter) ([]model.RequestView, int, error)
	CountByStatus(ctx context.Context, f repository.RequestFilter) (map[model.RequestStatus]int, error)
}

type PaymentStore interface {
	GetByRequest(ctx context.Context, requestID string) (*model.Payment, error)
}

type DocumentStore interface {
	Insert(ctx context.Context, d model.Document) error
	ListByRequest(ctx context.Context, requestID string) ([]model.Document, error)
}

type NotificationStore interface {
	GetByID(ctx context.Context, id string) (model.Notification, error)
	ListByUser(ctx context.Context, userID string, page repository.Page) ([]model.Notification, int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string, at time.Time) error
}

type AuditStore interface {
	List(ctx context.Context, f repository.AuditFilter) ([]model.AuditLog, int, error)
}

type ReportStore interface {
	Overview(ctx context.Context) (repository.Overview, error)
}

// Lifecycle is implemented by *lifecycle.Engine.
type Lifecycle interface {
	Create(ctx context.Context, actor *model.User, svc *model.Service, formData map[string]any) (lifecycle.Outcome, error)
	Decide(ctx context.Context, actor *model.User, req *model.Request, decision model.RequestStatus, remarks string) (model.Request, error)
	StartReview(ctx context.Context, actor *model.User, req *model.Request) (model.Request, error)
	Complete(ctx context.Context, actor *model.User, req *model.Request) (model.Request, error)
}

var (
	_ UserStore         = (*repository.UserRepo)(nil)
	_ UserAdminStore    = (*repository.UserRepo)(nil)
	_ TokenStore        = (*repository.TokenRepo)(nil)
	_ SessionRevoker    = (*repository.TokenRepo)(nil)
	_ DepartmentStore   = (*repository.DepartmentRepo)(nil)
	_ ServiceStore      = (*repository.ServiceRepo)(nil)
	_ RequestStore      = (*repository.RequestRepo)(nil)
	_ PaymentStore      = (*repository.PaymentRepo)(nil)
	_ DocumentStore     = (*repository.DocumentRepo)(nil)
	_ NotificationStore = (*repository.NotificationRepo)(nil)
	_ AuditStore        = (*repository.AuditRepo)(nil)
	_ ReportStore       = (*repository.ReportRepo)(nil)
	_ Lifecycle         = (*lifecycle.Engine)(nil)
)
