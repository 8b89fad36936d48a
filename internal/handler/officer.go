package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/civic-service-portal/internal/access"
	"github.com/iliyamo/civic-service-portal/internal/apperr"
	"github.com/iliyamo/civic-service-portal/internal/middleware"
	"github.com/iliyamo/civic-service-portal/internal/model"
	"github.com/iliyamo/civic-service-portal/internal/repository"
)

// OfficerHandler serves the review queue.  Officers and department
// heads only see their own department; admins see every department and
// may narrow with ?department_id=.
type OfficerHandler struct {
	Engine    Lifecycle
	Guard     *access.Pipeline
	Requests  RequestStore
	Payments  PaymentStore
	Documents DocumentStore
}

type decisionReq struct {
	Decision string `json:"decision"`
	Remarks  string `json:"remarks"`
}

// Dashboard returns status totals in scope and the oldest waiting work.
func (h *OfficerHandler) Dashboard(c echo.Context) error {
	dept, err := h.scope(c)
	if err != nil {
		return fail(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	counts, err := h.Requests.CountByStatus(ctx, repository.RequestFilter{DepartmentID: dept})
	if err != nil {
		return fail(c, err)
	}
	recent, _, err := h.Requests.List(ctx, repository.RequestFilter{
		DepartmentID: dept,
		Status:       model.StatusSubmitted,
		Page:         repository.Page{Page: 1, Limit: 5},
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"department_id":    dept,
		"stats":            statusStats(counts),
		"pending":          counts[model.StatusSubmitted] + counts[model.StatusUnderReview],
		"recent_submitted": recent,
	})
}

// ListRequests pages through requests in scope.
func (h *OfficerHandler) ListRequests(c echo.Context) error {
	dept, err := h.scope(c)
	if err != nil {
		return fail(c, err)
	}
	status, err := statusParam(c)
	if err != nil {
		return fail(c, err)
	}
	page := pageOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	items, total, err := h.Requests.List(ctx, repository.RequestFilter{DepartmentID: dept, Status: status, Page: page})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, paged("requests", items, total, page))
}

// GetRequest returns one request of the actor's department.
func (h *OfficerHandler) GetRequest(c echo.Context) error {
	view, err := h.load(c)
	if err != nil {
		return fail(c, err)
	}
	return respondDetail(c, h.Payments, h.Documents, view)
}

// StartReview moves a submitted request to under_review.
func (h *OfficerHandler) StartReview(c echo.Context) error {
	view, err := h.load(c)
	if err != nil {
		return fail(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Engine.StartReview(ctx, middleware.Actor(c), &view.Request)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Decide approves or rejects a request and returns it as stored.
func (h *OfficerHandler) Decide(c echo.Context) error {
	var req decisionReq
	if err := c.Bind(&req); err != nil {
		return invalid(c, "invalid body")
	}
	decision := model.RequestStatus(strings.ToLower(strings.TrimSpace(req.Decision)))

	view, err := h.load(c)
	if err != nil {
		return fail(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Engine.Decide(ctx, middleware.Actor(c), &view.Request, decision, req.Remarks)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Complete closes an approved request.
func (h *OfficerHandler) Complete(c echo.Context) error {
	view, err := h.load(c)
	if err != nil {
		return fail(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Engine.Complete(ctx, middleware.Actor(c), &view.Request)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// load reads the request named by :id and checks department access.
func (h *OfficerHandler) load(c echo.Context) (model.RequestView, error) {
	ctx, cancel := reqCtx(c)
	defer cancel()

	view, err := h.Requests.GetView(ctx, c.Param("id"))
	if err != nil {
		return model.RequestView{}, storeErr(err, "request")
	}
	if err := h.Guard.Evaluate(action(c), middleware.Actor(c), access.RequireDepartment(view.DepartmentID)); err != nil {
		return model.RequestView{}, err
	}
	return view, nil
}

// scope returns the department a listing is limited to; empty means all
// departments and is only returned for admins.
func (h *OfficerHandler) scope(c echo.Context) (string, error) {
	actor := middleware.Actor(c)
	asked := strings.TrimSpace(c.QueryParam("department_id"))
	if err := h.Guard.Evaluate(action(c), actor, access.RequireDepartment(asked)); err != nil {
		return "", err
	}
	if actor.Role == model.RoleAdmin || asked != "" {
		return asked, nil
	}
	if actor.DepartmentID == nil {
		return "", apperr.New(apperr.Forbidden, "no department assigned")
	}
	return *actor.DepartmentID, nil
}
