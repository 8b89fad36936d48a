package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/civic-service-portal/internal/access"
	"github.com/iliyamo/civic-service-portal/internal/apperr"
	"github.com/iliyamo/civic-service-portal/internal/lifecycle"
	"github.com/iliyamo/civic-service-portal/internal/middleware"
	"github.com/iliyamo/civic-service-portal/internal/model"
	"github.com/iliyamo/civic-service-portal/internal/repository"
)

// maxDocumentBytes caps the declared size of an attached file.
const maxDocumentBytes = 10 << 20

// CitizenHandler serves the citizen's own requests and notifications.
// Reads of a single request go through the ownership check; admins pass
// it, other staff use the officer routes.
type CitizenHandler struct {
	Engine        Lifecycle
	Guard         *access.Pipeline
	Services      ServiceStore
	Requests      RequestStore
	Payments      PaymentStore
	Documents     DocumentStore
	Notifications NotificationStore
	Clock         lifecycle.Clock
}

type createRequestReq struct {
	ServiceID string         `json:"service_id"`
	FormData  map[string]any `json:"form_data"`
}

type documentReq struct {
	FileName   string `json:"file_name"`
	StorageRef string `json:"storage_ref"`
	MimeType   string `json:"mime_type"`
	FileSize   int64  `json:"file_size"`
}

// Dashboard returns request totals by status, the five latest requests
// and the unread notification count.
func (h *CitizenHandler) Dashboard(c echo.Context) error {
	actor := middleware.Actor(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	counts, err := h.Requests.CountByStatus(ctx, repository.RequestFilter{UserID: actor.ID})
	if err != nil {
		return fail(c, err)
	}
	recent, _, err := h.Requests.List(ctx, repository.RequestFilter{
		UserID: actor.ID,
		Page:   repository.Page{Page: 1, Limit: 5},
	})
	if err != nil {
		return fail(c, err)
	}
	unread, err := h.Notifications.CountUnread(ctx, actor.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"stats":                statusStats(counts),
		"recent_requests":      recent,
		"unread_notifications": unread,
	})
}

// CreateRequest submits a request for an active service.
func (h *CitizenHandler) CreateRequest(c echo.Context) error {
	actor := middleware.Actor(c)
	var req createRequestReq
	if err := c.Bind(&req); err != nil {
		return invalid(c, "invalid body")
	}
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	if req.ServiceID == "" {
		return invalid(c, "service_id is required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	svc, err := h.Services.GetByID(ctx, req.ServiceID)
	if err == nil && !svc.Available() {
		err = repository.ErrNotFound
	}
	if err != nil {
		return fail(c, storeErr(err, "service"))
	}
	out, err := h.Engine.Create(ctx, actor, &svc, req.FormData)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// ListRequests pages through the actor's own requests, newest first.
func (h *CitizenHandler) ListRequests(c echo.Context) error {
	actor := middleware.Actor(c)
	status, err := statusParam(c)
	if err != nil {
		return fail(c, err)
	}
	page := pageOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	items, total, err := h.Requests.List(ctx, repository.RequestFilter{UserID: actor.ID, Status: status, Page: page})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, paged("requests", items, total, page))
}

// GetRequest returns one owned request with its payment and documents.
func (h *CitizenHandler) GetRequest(c echo.Context) error {
	view, err := h.owned(c)
	if err != nil {
		return fail(c, err)
	}
	return respondDetail(c, h.Payments, h.Documents, view)
}

// AttachDocument records metadata for a file already stored elsewhere.
func (h *CitizenHandler) AttachDocument(c echo.Context) error {
	var req documentReq
	if err := c.Bind(&req); err != nil {
		return invalid(c, "invalid body")
	}
	req.FileName = strings.TrimSpace(req.FileName)
	req.StorageRef = strings.TrimSpace(req.StorageRef)
	switch {
	case req.FileName == "" || req.StorageRef == "":
		return invalid(c, "file_name and storage_ref are required")
	case req.FileSize <= 0 || req.FileSize > maxDocumentBytes:
		return invalid(c, "file_size must be between 1 byte and 10 MiB")
	}

	view, err := h.owned(c)
	if err != nil {
		return fail(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	doc := model.NewDocument(view.ID, req.FileName, req.StorageRef, strings.ToLower(strings.TrimSpace(req.MimeType)), req.FileSize, h.Clock.Now())
	if err := h.Documents.Insert(ctx, doc); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"document": doc})
}

// ListNotifications pages through the actor's notifications.
func (h *CitizenHandler) ListNotifications(c echo.Context) error {
	actor := middleware.Actor(c)
	page := pageOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	items, total, err := h.Notifications.ListByUser(ctx, actor.ID, page)
	if err != nil {
		return fail(c, err)
	}
	unread, err := h.Notifications.CountUnread(ctx, actor.ID)
	if err != nil {
		return fail(c, err)
	}
	resp := paged("notifications", items, total, page)
	resp["unread"] = unread
	return c.JSON(http.StatusOK, resp)
}

// MarkNotificationRead marks one notification read.  Only its addressee
// may do so; marking an already read notification is a no-op.
func (h *CitizenHandler) MarkNotificationRead(c echo.Context) error {
	actor := middleware.Actor(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	n, err := h.Notifications.GetByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, storeErr(err, "notification"))
	}
	if err := h.Guard.Evaluate(action(c), actor, access.RequireSelf(n.UserID)); err != nil {
		return fail(c, err)
	}
	if n.IsRead {
		return c.JSON(http.StatusOK, echo.Map{"notification": n})
	}
	now := h.Clock.Now()
	if err := h.Notifications.MarkRead(ctx, n.ID, actor.ID, now); err != nil {
		return fail(c, storeErr(err, "notification"))
	}
	n.IsRead, n.ReadAt = true, &now
	return c.JSON(http.StatusOK, echo.Map{"notification": n})
}

// owned loads the request named by :id and checks the actor owns it.
func (h *CitizenHandler) owned(c echo.Context) (model.RequestView, error) {
	ctx, cancel := reqCtx(c)
	defer cancel()

	view, err := h.Requests.GetView(ctx, c.Param("id"))
	if err != nil {
		return model.RequestView{}, storeErr(err, "request")
	}
	err = h.Guard.Evaluate(action(c), middleware.Actor(c),
		access.RequireOwner(access.OwnerSource{Resource: view.UserID}))
	if err != nil {
		return model.RequestView{}, err
	}
	return view, nil
}

// respondDetail writes a request with its payment and documents.
func respondDetail(c echo.Context, payments PaymentStore, docs DocumentStore, view model.RequestView) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := payments.GetByRequest(ctx, view.ID)
	if err != nil {
		return fail(c, err)
	}
	view.Payment = p
	files, err := docs.ListByRequest(ctx, view.ID)
	if err != nil {
		return fail(c, err)
	}
	if files == nil {
		files = []model.Document{}
	}
	return c.JSON(http.StatusOK, echo.Map{"request": view, "documents": files})
}

// statusParam reads an optional ?status= filter.
func statusParam(c echo.Context) (model.RequestStatus, error) {
	raw := strings.ToLower(strings.TrimSpace(c.QueryParam("status")))
	if raw == "" {
		return "", nil
	}
	s := model.RequestStatus(raw)
	if !s.Valid() {
		return "", apperr.New(apperr.ValidationFailed, "unknown status "+raw)
	}
	return s, nil
}

// statusStats expands counts to every status plus a total.
func statusStats(counts map[model.RequestStatus]int) map[string]int {
	out := map[string]int{"total": 0}
	for _, s := range []model.RequestStatus{
		model.StatusSubmitted, model.StatusUnderReview, model.StatusApproved,
		model.StatusRejected, model.StatusCompleted,
	} {
		out[string(s)] = counts[s]
		out["total"] += counts[s]
	}
	return out
}
