// Package handler holds the HTTP handlers of the portal.  Handlers bind
// and validate input, run the access pipeline against loaded resources
// and delegate state changes to the lifecycle engine or a repository.
// Every failure is written through middleware.RespondError.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/civic-service-portal/internal/apperr"
	"github.com/iliyamo/civic-service-portal/internal/middleware"
	"github.com/iliyamo/civic-service-portal/internal/repository"
)

// requestTimeout bounds the store work of one HTTP request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// action names the route for access logs and denial records.
func action(c echo.Context) string {
	return c.Request().Method + " " + c.Path()
}

func fail(c echo.Context, err error) error {
	return middleware.RespondError(c, err)
}

func invalid(c echo.Context, msg string) error {
	return fail(c, apperr.New(apperr.ValidationFailed, msg))
}

// conflict is the one error shape outside the kind table: unique key
// violations on catalog and account data.
func conflict(c echo.Context, msg string) error {
	return c.JSON(http.StatusConflict, echo.Map{"error": "conflict", "message": msg})
}

// storeErr names a missing row after what; other errors pass through.
func storeErr(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Wrap(apperr.NotFound, what+" not found", err)
	}
	return err
}

// pageOf reads page and limit; junk values fall back to the defaults.
func pageOf(c echo.Context) repository.Page {
	p, _ := strconv.Atoi(c.QueryParam("page"))
	l, _ := strconv.Atoi(c.QueryParam("limit"))
	return repository.Page{Page: p, Limit: l}.Normalize()
}

func paged(key string, items any, total int, p repository.Page) echo.Map {
	return echo.Map{
		key:     items,
		"total": total,
		"page":  p.Page,
		"limit": p.Limit,
		"pages": p.Pages(total),
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
