package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/civic-service-portal/internal/apperr"
)

// RespondError writes err as {"error": kind, "message": text} with the
// status mapped from its kind.
func RespondError(c echo.Context, err error) error {
	kind := apperr.KindOf(err)
	return c.JSON(apperr.HTTPStatus(kind), echo.Map{
		"error":   string(kind),
		"message": apperr.MessageOf(err),
	})
}
