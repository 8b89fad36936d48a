package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/civic-service-portal/internal/apperr"
	"github.com/iliyamo/civic-service-portal/internal/utils"
)

// Context keys set by the auth middlewares.
const (
	ctxUserID = "user_id"
	ctxActor  = "actor"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and stores its subject under "user_id".  It must run before LoadActor.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return RespondError(c, apperr.New(apperr.Unauthenticated, "missing bearer token"))
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return RespondError(c, apperr.New(apperr.Unauthenticated, "invalid token"))
			}
			c.Set(ctxUserID, claims.Subject)
			return next(c)
		}
	}
}
