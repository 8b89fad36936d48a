package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/civic-service-portal/internal/access"
	"github.com/iliyamo/civic-service-portal/internal/metrics"
	"github.com/iliyamo/civic-service-portal/internal/model"
)

// RequireRole rejects actors whose rank is below the lowest of roles.
// Department and ownership checks need the loaded resource and run in
// the handlers through the same pipeline.
func RequireRole(p *access.Pipeline, roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			action := c.Request().Method + " " + c.Path()
			if err := p.Evaluate(action, Actor(c), access.RequireRole(roles...)); err != nil {
				return RespondError(c, err)
			}
			return next(c)
		}
	}
}

// DenialObserver logs every authorization denial and counts it.
func DenialObserver(log logrus.FieldLogger) access.Observer {
	return access.ObserverFunc(func(d access.Denial) {
		metrics.RecordDenial(d.Stage.String(), string(d.Kind))
		log.WithFields(logrus.Fields{
			"actor_id": d.ActorID,
			"role":     d.Role,
			"action":   d.Action,
			"stage":    d.Stage.String(),
			"reason":   d.Reason,
		}).Warn("access denied")
	})
}
