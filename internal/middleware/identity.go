package middleware

// identity.go turns the verified token subject into the acting user.
// Downstream guards and handlers read the actor with Actor(c).

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/civic-service-portal/internal/apperr"
	"github.com/iliyamo/civic-service-portal/internal/model"
	"github.com/iliyamo/civic-service-portal/internal/repository"
)

// ActorLoader fetches a user by id.
type ActorLoader interface {
	GetByID(ctx context.Context, id string) (model.User, error)
}

// LoadActor resolves the user named by the token.  Unknown and
// deactivated users are unauthenticated, so a deactivation takes effect
// on the next request rather than when the token expires.
func LoadActor(users ActorLoader, log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, _ := c.Get(ctxUserID).(string)
			if id == "" {
				return RespondError(c, apperr.ErrUnauthenticated)
			}
			u, err := users.GetByID(c.Request().Context(), id)
			if errors.Is(err, repository.ErrNotFound) {
				return RespondError(c, apperr.New(apperr.Unauthenticated, "unknown user"))
			}
			if err != nil {
				log.WithError(err).WithField("user_id", id).Error("load actor")
				return RespondError(c, err)
			}
			if !u.IsActive {
				return RespondError(c, apperr.New(apperr.Unauthenticated, "account is deactivated"))
			}
			c.Set(ctxActor, &u)
			return next(c)
		}
	}
}

// Actor returns the authenticated user or nil.
func Actor(c echo.Context) *model.User {
	u, _ := c.Get(ctxActor).(*model.User)
	return u
}

// SetActor stores u as the actor; used by tests and internal callers.
func SetActor(c echo.Context, u *model.User) {
	c.Set(ctxActor, u)
}

// currentUserID returns the actor id, the token subject, or "anon".
func currentUserID(c echo.Context) string {
	if u := Actor(c); u != nil {
		return u.ID
	}
	if s, ok := c.Get(ctxUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}
