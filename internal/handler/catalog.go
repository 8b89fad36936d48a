package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/civic-service-portal/internal/repository"
)

// CatalogHandler serves the public service catalog.  Only active
// services of active departments are listed.
type CatalogHandler struct {
	Departments DepartmentStore
	Services    ServiceStore
}

func NewCatalogHandler(d DepartmentStore, s ServiceStore) *CatalogHandler {
	return &CatalogHandler{Departments: d, Services: s}
}

// ListServices handles GET /v1/services?department_id=&search=.
func (h *CatalogHandler) ListServices(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Services.List(ctx, repository.ServiceFilter{
		DepartmentID: strings.TrimSpace(c.QueryParam("department_id")),
		Search:       strings.TrimSpace(c.QueryParam("search")),
		ActiveOnly:   true,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"services": items})
}

// GetService handles GET /v1/services/:id.
func (h *CatalogHandler) GetService(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Services.GetByID(ctx, c.Param("id"))
	if err == nil && !s.Available() {
		err = repository.ErrNotFound
	}
	if err != nil {
		return fail(c, storeErr(err, "service"))
	}
	return c.JSON(http.StatusOK, echo.Map{"service": s})
}

// ListDepartments handles GET /v1/departments.
func (h *CatalogHandler) ListDepartments(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Departments.List(ctx, true)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"departments": items})
}
