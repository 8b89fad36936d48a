package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/civic-service-portal/internal/apperr"
	"github.com/iliyamo/civic-service-portal/internal/lifecycle"
	"github.com/iliyamo/civic-service-portal/internal/middleware"
	"github.com/iliyamo/civic-service-portal/internal/model"
	"github.com/iliyamo/civic-service-portal/internal/repository"
)

// AdminHandler bundles the administration endpoints.  The router admits
// admins only; nothing here re-checks the role.
type AdminHandler struct {
	Departments DepartmentStore
	Services    ServiceStore
	Users       UserAdminStore
	Sessions    SessionRevoker
	Requests    RequestStore
	Audits      AuditStore
	Reports     ReportStore
	Clock       lifecycle.Clock
}

// ----- DTOs -----

type departmentReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

type serviceReq struct {
	DepartmentID      *string         `json:"department_id"`
	Name              *string         `json:"name"`
	Description       *string         `json:"description"`
	FeeCents          *int64          `json:"fee_cents"`
	ProcessingTime    *string         `json:"processing_time"`
	RequiredDocuments []string        `json:"required_documents"`
	FormFields        json.RawMessage `json:"form_fields"`
	IsActive          *bool           `json:"is_active"`
}

type userUpdateReq struct {
	Name         *string `json:"name"`
	Role         *string `json:"role"`
	DepartmentID *string `json:"department_id"`
	IsActive     *bool   `json:"is_active"`
}

// ----- departments -----

func (h *AdminHandler) ListDepartments(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Departments.List(ctx, false)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"departments": items})
}

func (h *AdminHandler) CreateDepartment(c echo.Context) error {
	var req departmentReq
	if err := c.Bind(&req); err != nil {
		return invalid(c, "invalid body")
	}
	name := trimmed(req.Name)
	if name == nil || *name == "" {
		return invalid(c, "name is required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	d := model.NewDepartment(*name, trimmed(req.Description), h.Clock.Now())
	if req.IsActive != nil {
		d.IsActive = *req.IsActive
	}
	if err := h.Departments.Create(ctx, d); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return conflict(c, "department name already exists")
		}
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"department": d})
}

// UpdateDepartment applies the fields present in the body.
func (h *AdminHandler) UpdateDepartment(c echo.Context) error {
	var req departmentReq
	if err := c.Bind(&req); err != nil {
		return invalid(c, "invalid body")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	d, err := h.Departments.GetByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, storeErr(err, "department"))
	}
	if name := trimmed(req.Name); name != nil {
		if *name == "" {
			return invalid(c, "name must not be empty")
		}
		d.Name = *name
	}
	if req.Description != nil {
		d.Description = trimmed(req.Description)
	}
	if req.IsActive != nil {
		d.IsActive = *req.IsActive
	}
	d.UpdatedAt = h.Clock.Now()
	if err := h.Departments.Update(ctx, d); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return conflict(c, "department name already exists")
		}
		return fail(c, storeErr(err, "department"))
	}
	return c.JSON(http.StatusOK, echo.Map{"department": d})
}

// ----- services -----

func (h *AdminHandler) ListServices(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Services.List(ctx, repository.ServiceFilter{
		DepartmentID: strings.TrimSpace(c.QueryParam("department_id")),
		Search:       strings.TrimSpace(c.QueryParam("search")),
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"services": items})
}

func (h *AdminHandler) CreateService(c echo.Context) error {
	var req serviceReq
	if err := c.Bind(&req); err != nil {
		return invalid(c, "invalid body")
	}
	name, dept := trimmed(req.Name), trimmed(req.DepartmentID)
	if name == nil || *name == "" || dept == nil || *dept == "" {
		return invalid(c, "name and department_id are required")
	}
	var fee int64
	if req.FeeCents != nil {
		fee = *req.FeeCents
	}
	if fee < 0 {
		return invalid(c, "fee_cents must not be negative")
	}
	if err := validFormFields(req.FormFields); err != nil {
		return fail(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.departmentExists(c, *dept); err != nil {
		return fail(c, err)
	}
	desc := ""
	if d := trimmed(req.Description); d != nil {
		desc = *d
	}
	s := model.NewService(*dept, *name, desc, fee, req.RequiredDocuments, h.Clock.Now())
	s.ProcessingTime = trimmed(req.ProcessingTime)
	s.FormFields = req.FormFields
	if req.IsActive != nil {
		s.IsActive = *req.IsActive
	}
	if err := h.Services.Create(ctx, s); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return conflict(c, "service name already exists in department")
		}
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"service": s})
}

// UpdateService applies the fields present in the body.  A fee change
// only affects requests submitted afterwards.
func (h *AdminHandler) UpdateService(c echo.Context) error {
	var req serviceReq
	if err := c.Bind(&req); err != nil {
		return invalid(c, "invalid body")
	}
	if err := validFormFields(req.FormFields); err != nil {
		return fail(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Services.GetByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, storeErr(err, "service"))
	}
	if name := trimmed(req.Name); name != nil {
		if *name == "" {
			return invalid(c, "name must not be empty")
		}
		s.Name = *name
	}
	if dept := trimmed(req.DepartmentID); dept != nil && *dept != s.DepartmentID {
		if err := h.departmentExists(c, *dept); err != nil {
			return fail(c, err)
		}
		s.DepartmentID = *dept
	}
	if d := trimmed(req.Description); d != nil {
		s.Description = *d
	}
	if req.FeeCents != nil {
		if *req.FeeCents < 0 {
			return invalid(c, "fee_cents must not be negative")
		}
		s.FeeCents = *req.FeeCents
	}
	if req.ProcessingTime != nil {
		s.ProcessingTime = trimmed(req.ProcessingTime)
	}
	if req.RequiredDocuments != nil {
		s.RequiredDocuments = req.RequiredDocuments
	}
	if len(req.FormFields) > 0 {
		s.FormFields = req.FormFields
	}
	if req.IsActive != nil {
		s.IsActive = *req.IsActive
	}
	s.UpdatedAt = h.Clock.Now()
	if err := h.Services.Update(ctx, s); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return conflict(c, "service name already exists in department")
		}
		return fail(c, storeErr(err, "service"))
	}
	return c.JSON(http.StatusOK, echo.Map{"service": s})
}

// ----- users -----

func (h *AdminHandler) ListUsers(c echo.Context) error {
	f := repository.UserFilter{
		DepartmentID: strings.TrimSpace(c.QueryParam("department_id")),
		Search:       strings.TrimSpace(c.QueryParam("search")),
		Page:         pageOf(c),
	}
	if raw := c.QueryParam("role"); raw != "" {
		role, err := model.ParseRole(raw)
		if err != nil {
			return invalid(c, "unknown role "+raw)
		}
		f.Role = role
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	items, total, err := h.Users.List(ctx, f)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, paged("users", items, total, f.Page))
}

// UpdateUser changes a user's name, role, department or activation and
// writes a USER_UPDATED audit entry with the changed fields in the same
// transaction.  Deactivating a user also ends their sessions.
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	actor := middleware.Actor(c)
	var req userUpdateReq
	if err := c.Bind(&req); err != nil {
		return invalid(c, "invalid body")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	before, err := h.Users.GetByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, storeErr(err, "user"))
	}
	after := before
	changes := map[string]any{}

	if name := trimmed(req.Name); name != nil && *name != before.Name {
		if *name == "" {
			return invalid(c, "name must not be empty")
		}
		after.Name = *name
		changes["name"] = change(before.Name, after.Name)
	}
	if req.Role != nil {
		role, err := model.ParseRole(*req.Role)
		if err != nil {
			return invalid(c, "unknown role "+*req.Role)
		}
		if role != before.Role {
			after.Role = role
			changes["role"] = change(before.Role, after.Role)
		}
	}
	if req.DepartmentID != nil {
		dept := trimmed(req.DepartmentID)
		if *dept == "" {
			dept = nil
		} else if err := h.departmentExists(c, *dept); err != nil {
			return fail(c, err)
		}
		after.DepartmentID = dept
	}
	if !after.Role.IsStaff() {
		after.DepartmentID = nil
	}
	if deref(before.DepartmentID) != deref(after.DepartmentID) {
		changes["department_id"] = change(deref(before.DepartmentID), deref(after.DepartmentID))
	}
	if req.IsActive != nil && *req.IsActive != before.IsActive {
		after.IsActive = *req.IsActive
		changes["is_active"] = change(before.IsActive, after.IsActive)
	}

	if after.ID == actor.ID && (after.Role != before.Role || !after.IsActive) {
		return invalid(c, "admins cannot demote or deactivate themselves")
	}
	if len(changes) == 0 {
		return c.JSON(http.StatusOK, echo.Map{"user": before})
	}

	now := h.Clock.Now()
	after.UpdatedAt = now
	entry := model.NewAuditLog(actor.ID, model.ActionUserUpdated, "user", after.ID, changes, now)
	if ip := c.RealIP(); ip != "" {
		entry.IPAddress = &ip
	}
	if ua := c.Request().UserAgent(); ua != "" {
		entry.UserAgent = &ua
	}
	if err := h.Users.UpdateWithAudit(ctx, after, entry); err != nil {
		return fail(c, storeErr(err, "user"))
	}
	if before.IsActive && !after.IsActive && h.Sessions != nil {
		if err := h.Sessions.RevokeAllForUser(ctx, after.ID); err != nil {
			return fail(c, err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"user": after})
}

// ----- requests, audit, reports -----

func (h *AdminHandler) ListRequests(c echo.Context) error {
	status, err := statusParam(c)
	if err != nil {
		return fail(c, err)
	}
	f := repository.RequestFilter{
		UserID:       strings.TrimSpace(c.QueryParam("user_id")),
		DepartmentID: strings.TrimSpace(c.QueryParam("department_id")),
		Status:       status,
		Page:         pageOf(c),
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	items, total, err := h.Requests.List(ctx, f)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, paged("requests", items, total, f.Page))
}

func (h *AdminHandler) ListAuditLogs(c echo.Context) error {
	f := repository.AuditFilter{
		ActorID:  strings.TrimSpace(c.QueryParam("actor_id")),
		Action:   strings.ToUpper(strings.TrimSpace(c.QueryParam("action"))),
		TargetID: strings.TrimSpace(c.QueryParam("target_id")),
		Page:     pageOf(c),
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	items, total, err := h.Audits.List(ctx, f)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, paged("audit_logs", items, total, f.Page))
}

func (h *AdminHandler) Overview(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Reports.Overview(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) departmentExists(c echo.Context, id string) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Departments.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.New(apperr.ValidationFailed, "unknown department "+id)
		}
		return err
	}
	return nil
}

func validFormFields(raw json.RawMessage) error {
	if len(raw) > 0 && !json.Valid(raw) {
		return apperr.New(apperr.ValidationFailed, "form_fields must be valid JSON")
	}
	return nil
}

func change(from, to any) map[string]any {
	return map[string]any{"from": from, "to": to}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
