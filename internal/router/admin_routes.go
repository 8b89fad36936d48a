package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/civic-service-portal/internal/handler"
	"github.com/iliyamo/civic-service-portal/internal/model"
)

// RegisterAdmin registers administration endpoints.  Nothing is ever
// deleted through them; deactivation is a field update.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, s Secure) {
	g := e.Group("/v1/admin", s.Chain(model.RoleAdmin)...)

	// ---- Departments ----
	g.GET("/departments", h.ListDepartments)
	g.POST("/departments", h.CreateDepartment)
	g.PUT("/departments/:id", h.UpdateDepartment)
	g.PATCH("/departments/:id", h.UpdateDepartment)

	// ---- Services ----
	g.GET("/services", h.ListServices)
	g.POST("/services", h.CreateService)
	g.PUT("/services/:id", h.UpdateService)
	g.PATCH("/services/:id", h.UpdateService)

	// ---- Users ----
	g.GET("/users", h.ListUsers)
	g.PUT("/users/:id", h.UpdateUser)
	g.PATCH("/users/:id", h.UpdateUser)

	g.GET("/requests", h.ListRequests)
	g.GET("/audit-logs", h.ListAuditLogs)
	g.GET("/reports", h.Overview)
}
