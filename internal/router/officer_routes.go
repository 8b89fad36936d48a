package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/civic-service-portal/internal/handler"
	"github.com/iliyamo/civic-service-portal/internal/model"
)

// RegisterOfficer registers the review queue for officers and above.
// Department scoping happens per request in the handler.
func RegisterOfficer(e *echo.Echo, h *handler.OfficerHandler, s Secure) {
	g := e.Group("/v1/officer", s.Chain(model.RoleOfficer)...)
	g.GET("/dashboard", h.Dashboard)
	g.GET("/requests", h.ListRequests)
	g.GET("/requests/:id", h.GetRequest)
	g.POST("/requests/:id/review", h.StartReview)
	g.POST("/requests/:id/decision", h.Decide)
	g.POST("/requests/:id/complete", h.Complete)
}
