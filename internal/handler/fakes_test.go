package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/civic-service-portal/internal/access"
	"github.com/iliyamo/civic-service-portal/internal/apperr"
	"github.com/iliyamo/civic-service-portal/internal/lifecycle"
	"github.com/iliyamo/civic-service-portal/internal/middleware"
	"github.com/iliyamo/civic-service-portal/internal/model"
	"github.com/iliyamo/civic-service-portal/internal/repository"
)

var now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return now }

func strp(s string) *string { return &s }

func user(id string, role model.Role, dept string) *model.User {
	u := &model.User{ID: id, Name: "user " + id, Email: id + "@example.org", Role: role, IsActive: true}
	if dept != "" {
		u.DepartmentID = strp(dept)
	}
	return u
}

// serve registers h on route and sends one request through echo so that
// c.Path() and c.Param() behave as in production.
func serve(t *testing.T, method, route, target string, body any, actor *model.User, h echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Add(method, route, h, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if actor != nil {
				middleware.SetActor(c, actor)
			}
			return next(c)
		}
	})
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

type denials struct {
	mu   sync.Mutex
	list []access.Denial
}

func (d *denials) Denied(x access.Denial) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.list = append(d.list, x)
}

// ----- users and tokens -----

type fakeUsers struct {
	mu      sync.Mutex
	byID    map[string]model.User
	touched map[string]time.Time
	audits  []model.AuditLog
	filter  repository.UserFilter
}

func newFakeUsers(users ...model.User) *fakeUsers {
	f := &fakeUsers{byID: map[string]model.User{}, touched: map[string]time.Time{}}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.byID {
		if x.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched[id] = at
	return nil
}

func (f *fakeUsers) List(_ context.Context, filter repository.UserFilter) ([]model.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter = filter
	var out []model.User
	for _, u := range f.byID {
		if filter.Role == "" || u.Role == filter.Role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (f *fakeUsers) UpdateWithAudit(_ context.Context, u model.User, entry model.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[u.ID]; !ok {
		return repository.ErrNotFound
	}
	f.byID[u.ID] = u
	f.audits = append(f.audits, entry)
	return nil
}

type tokenRow struct {
	userID  string
	exp     time.Time
	revoked bool
}

type fakeTokens struct {
	mu         sync.Mutex
	rows       map[string]*tokenRow
	revokedAll []string
}

func newFakeTokens() *fakeTokens { return &fakeTokens{rows: map[string]*tokenRow{}} }

func (f *fakeTokens) StoreRefresh(_ context.Context, userID, hash string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[hash] = &tokenRow{userID: userID, exp: exp}
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string, at time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[hash]
	if !ok || r.revoked || at.After(r.exp) {
		return "", repository.ErrNotFound
	}
	return r.userID, nil
}

func (f *fakeTokens) Rotate(_ context.Context, userID, oldHash, newHash string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[oldHash]
	if !ok || r.revoked {
		return repository.ErrNotFound
	}
	r.revoked = true
	f.rows[newHash] = &tokenRow{userID: userID, exp: exp}
	return nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.rows[hash]; ok {
		r.revoked = true
	}
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokedAll = append(f.revokedAll, userID)
	for _, r := range f.rows {
		if r.userID == userID {
			r.revoked = true
		}
	}
	return nil
}

// ----- catalog -----

type fakeDepartments struct {
	byID      map[string]model.Department
	createErr error
	updated   []model.Department
}

func newFakeDepartments(ds ...model.Department) *fakeDepartments {
	f := &fakeDepartments{byID: map[string]model.Department{}}
	for _, d := range ds {
		f.byID[d.ID] = d
	}
	return f
}

func (f *fakeDepartments) List(_ context.Context, activeOnly bool) ([]model.Department, error) {
	var out []model.Department
	for _, d := range f.byID {
		if !activeOnly || d.IsActive {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeDepartments) GetByID(_ context.Context, id string) (model.Department, error) {
	d, ok := f.byID[id]
	if !ok {
		return model.Department{}, repository.ErrNotFound
	}
	return d, nil
}

func (f *fakeDepartments) Create(_ context.Context, d model.Department) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.byID[d.ID] = d
	return nil
}

func (f *fakeDepartments) Update(_ context.Context, d model.Department) error {
	f.updated = append(f.updated, d)
	f.byID[d.ID] = d
	return nil
}

type fakeServices struct {
	byID    map[string]model.Service
	filter  repository.ServiceFilter
	created []model.Service
}

func newFakeServices(ss ...model.Service) *fakeServices {
	f := &fakeServices{byID: map[string]model.Service{}}
	for _, s := range ss {
		f.byID[s.ID] = s
	}
	return f
}

func (f *fakeServices) List(_ context.Context, filter repository.ServiceFilter) ([]model.Service, error) {
	f.filter = filter
	var out []model.Service
	for _, s := range f.byID {
		if filter.DepartmentID != "" && s.DepartmentID != filter.DepartmentID {
			continue
		}
		if filter.ActiveOnly && !s.Available() {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeServices) GetByID(_ context.Context, id string) (model.Service, error) {
	s, ok := f.byID[id]
	if !ok {
		return model.Service{}, repository.ErrNotFound
	}
	return s, nil
}

func (f *fakeServices) Create(_ context.Context, s model.Service) error {
	f.created = append(f.created, s)
	f.byID[s.ID] = s
	return nil
}

func (f *fakeServices) Update(_ context.Context, s model.Service) error {
	f.byID[s.ID] = s
	return nil
}

// ----- requests and their children -----

type fakeRequests struct {
	views  map[string]model.RequestView
	filter repository.RequestFilter
}

func newFakeRequests(vs ...model.RequestView) *fakeRequests {
	f := &fakeRequests{views: map[string]model.RequestView{}}
	for _, v := range vs {
		f.views[v.ID] = v
	}
	return f
}

func (f *fakeRequests) match(v model.RequestView, filter repository.RequestFilter) bool {
	return (filter.UserID == "" || v.UserID == filter.UserID) &&
		(filter.DepartmentID == "" || v.DepartmentID == filter.DepartmentID) &&
		(filter.Status == "" || v.Status == filter.Status)
}

func (f *fakeRequests) GetView(_ context.Context, id string) (model.RequestView, error) {
	v, ok := f.views[id]
	if !ok {
		return model.RequestView{}, repository.ErrNotFound
	}
	return v, nil
}

func (f *fakeRequests) List(_ context.Context, filter repository.RequestFilter) ([]model.RequestView, int, error) {
	f.filter = filter
	var all []model.RequestView
	for _, v := range f.views {
		if f.match(v, filter) {
			all = append(all, v)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	p := filter.Page.Normalize()
	start := p.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + p.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (f *fakeRequests) CountByStatus(_ context.Context, filter repository.RequestFilter) (map[model.RequestStatus]int, error) {
	f.filter = filter
	out := map[model.RequestStatus]int{}
	for _, v := range f.views {
		if f.match(v, filter) {
			out[v.Status]++
		}
	}
	return out, nil
}

type fakePayments map[string]*model.Payment

func (f fakePayments) GetByRequest(_ context.Context, requestID string) (*model.Payment, error) {
	return f[requestID], nil
}

type fakeDocuments struct {
	byRequest map[string][]model.Document
}

func newFakeDocuments() *fakeDocuments { return &fakeDocuments{byRequest: map[string][]model.Document{}} }

func (f *fakeDocuments) Insert(_ context.Context, d model.Document) error {
	f.byRequest[d.RequestID] = append(f.byRequest[d.RequestID], d)
	return nil
}

func (f *fakeDocuments) ListByRequest(_ context.Context, requestID string) ([]model.Document, error) {
	return f.byRequest[requestID], nil
}

type fakeNotifications struct {
	byID   map[string]model.Notification
	marked []string
}

func newFakeNotifications(ns ...model.Notification) *fakeNotifications {
	f := &fakeNotifications{byID: map[string]model.Notification{}}
	for _, n := range ns {
		f.byID[n.ID] = n
	}
	return f
}

func (f *fakeNotifications) GetByID(_ context.Context, id string) (model.Notification, error) {
	n, ok := f.byID[id]
	if !ok {
		return model.Notification{}, repository.ErrNotFound
	}
	return n, nil
}

func (f *fakeNotifications) ListByUser(_ context.Context, userID string, _ repository.Page) ([]model.Notification, int, error) {
	var out []model.Notification
	for _, n := range f.byID {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, len(out), nil
}

func (f *fakeNotifications) CountUnread(_ context.Context, userID string) (int, error) {
	c := 0
	for _, n := range f.byID {
		if n.UserID == userID && !n.IsRead {
			c++
		}
	}
	return c, nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, id, userID string, at time.Time) error {
	n, ok := f.byID[id]
	if !ok || n.UserID != userID {
		return repository.ErrNotFound
	}
	n.IsRead, n.ReadAt = true, &at
	f.byID[id] = n
	f.marked = append(f.marked, id)
	return nil
}

// ----- lifecycle -----

type engineCall struct {
	op       string
	actorID  string
	request  model.Request
	service  model.Service
	decision model.RequestStatus
}

// fakeEngine applies transitions without a store.  err, when set, is
// returned by every operation.
type fakeEngine struct {
	calls []engineCall
	err   error
}

func (f *fakeEngine) Create(_ context.Context, actor *model.User, svc *model.Service, formData map[string]any) (lifecycle.Outcome, error) {
	f.calls = append(f.calls, engineCall{op: "create", actorID: actor.ID, service: *svc})
	if f.err != nil {
		return lifecycle.Outcome{}, f.err
	}
	req := model.NewRequest(actor.ID, svc.ID, formData, "REQ-12345678-001", now)
	out := lifecycle.Outcome{Request: req}
	if svc.HasFee() {
		p := model.NewPendingPayment(req.ID, svc.FeeCents, now)
		out.Payment = &p
	}
	return out, nil
}

func (f *fakeEngine) move(op string, actor *model.User, req *model.Request, to model.RequestStatus) (model.Request, error) {
	f.calls = append(f.calls, engineCall{op: op, actorID: actor.ID, request: *req, decision: to})
	if f.err != nil {
		return model.Request{}, f.err
	}
	out := *req
	out.Status = to
	return out, nil
}

func (f *fakeEngine) Decide(_ context.Context, actor *model.User, req *model.Request, decision model.RequestStatus, _ string) (model.Request, error) {
	if decision != model.StatusApproved && decision != model.StatusRejected {
		return model.Request{}, apperr.New(apperr.ValidationFailed, "bad decision")
	}
	return f.move("decide", actor, req, decision)
}

func (f *fakeEngine) StartReview(_ context.Context, actor *model.User, req *model.Request) (model.Request, error) {
	return f.move("start_review", actor, req, model.StatusUnderReview)
}

func (f *fakeEngine) Complete(_ context.Context, actor *model.User, req *model.Request) (model.Request, error) {
	return f.move("complete", actor, req, model.StatusCompleted)
}

func view(id, owner, dept string, status model.RequestStatus) model.RequestView {
	return model.RequestView{
		Request: model.Request{
			ID:              id,
			UserID:          owner,
			ServiceID:       "svc-" + dept,
			Status:          status,
			FormData:        map[string]any{},
			ReferenceNumber: "REQ-00000001-001",
			SubmittedAt:     now,
			UpdatedAt:       now,
		},
		ServiceName:  "Permit",
		DepartmentID: dept,
	}
}
