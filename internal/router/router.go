// Package router wires handlers and middleware onto the Echo instance.
// Every group under /v1 that needs an identity is built from Secure so
// that token verification, actor loading and the rank check always run
// in the same order.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/civic-service-portal/internal/access"
	"github.com/iliyamo/civic-service-portal/internal/handler"
	"github.com/iliyamo/civic-service-portal/internal/metrics"
	"github.com/iliyamo/civic-service-portal/internal/middleware"
	"github.com/iliyamo/civic-service-portal/internal/model"
)

// Secure builds the middleware chain of authenticated groups.  Limit
// rate limits identified actors and runs after the actor is loaded;
// OpenLimit covers routes without an identity.  Both may be nil.
type Secure struct {
	Secret    string
	Users     middleware.ActorLoader
	Guard     *access.Pipeline
	Log       logrus.FieldLogger
	Limit     echo.MiddlewareFunc
	OpenLimit echo.MiddlewareFunc
}

// Chain verifies the bearer token, loads the actor, requires a rank of
// at least the lowest of roles and finally applies the actor's limit.
func (s Secure) Chain(roles ...model.Role) []echo.MiddlewareFunc {
	return present(
		middleware.JWTAuth(s.Secret),
		middleware.LoadActor(s.Users, s.Log),
		middleware.RequireRole(s.Guard, roles...),
		s.Limit,
	)
}

// Open is the chain of unauthenticated routes.
func (s Secure) Open() []echo.MiddlewareFunc {
	return present(s.OpenLimit)
}

func present(mw ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mw))
	for _, m := range mw {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// RegisterRoutes registers the operational endpoints: a health check that
// pings the database and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterAuth registers token endpoints under /v1/auth and the
// authenticated profile endpoints under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, s Secure) {
	g := e.Group("/v1/auth", s.Open()...)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	me := e.Group("/v1", s.Chain(model.RoleCitizen)...)
	me.GET("/me", a.Me)
	me.POST("/auth/logout-all", a.LogoutAll)
}

// RegisterPublic registers the unauthenticated catalog.  The open rate
// limit runs before cache, so cached answers are counted too; cache may
// be nil.
func RegisterPublic(e *echo.Echo, h *handler.CatalogHandler, s Secure, cache echo.MiddlewareFunc) {
	g := e.Group("/v1", append(s.Open(), present(cache)...)...)
	g.GET("/services", h.ListServices)
	g.GET("/services/:id", h.GetService)
	g.GET("/departments", h.ListDepartments)
}
