package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/civic-service-portal/internal/handler"
	"github.com/iliyamo/civic-service-portal/internal/model"
)

// RegisterCitizen registers the self-service endpoints.  Any active
// account may use them; ownership of individual requests and
// notifications is checked in the handlers.
func RegisterCitizen(e *echo.Echo, h *handler.CitizenHandler, s Secure) {
	g := e.Group("/v1/citizen", s.Chain(model.RoleCitizen)...)
	g.GET("/dashboard", h.Dashboard)

	g.POST("/requests", h.CreateRequest)
	g.GET("/requests", h.ListRequests)
	g.GET("/requests/:id", h.GetRequest)
	g.POST("/requests/:id/documents", h.AttachDocument)

	g.GET("/notifications", h.ListNotifications)
	g.PUT("/notifications/:id/read", h.MarkNotificationRead)
}
