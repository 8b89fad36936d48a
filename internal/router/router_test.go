package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/civic-service-portal/internal/access"
	"github.com/iliyamo/civic-service-portal/internal/handler"
	"github.com/iliyamo/civic-service-portal/internal/middleware"
	"github.com/iliyamo/civic-service-portal/internal/model"
	"github.com/iliyamo/civic-service-portal/internal/repository"
	"github.com/iliyamo/civic-service-portal/internal/utils"
)

const secret = "router-secret"

type users map[string]model.User

func (u users) GetByID(_ context.Context, id string) (model.User, error) {
	x, ok := u[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return x, nil
}

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

func newEcho(t *testing.T) *echo.Echo {
	t.Helper()
	log, _ := test.NewNullLogger()
	s := Secure{
		Secret: secret,
		Users: users{
			"c1": {ID: "c1", Role: model.RoleCitizen, IsActive: true},
			"o1": {ID: "o1", Role: model.RoleOfficer, IsActive: true},
		},
		Guard: access.NewPipeline(nil),
		Log:   log,
	}
	e := echo.New()
	RegisterRoutes(e, okPinger{})
	RegisterCitizen(e, &handler.CitizenHandler{}, s)
	RegisterOfficer(e, &handler.OfficerHandler{}, s)
	RegisterAdmin(e, &handler.AdminHandler{}, s)
	return e
}

func do(t *testing.T, e *echo.Echo, method, path, subject string) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if subject != "" {
		at, err := utils.NewAccessToken(secret, subject, "", 5)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+at.Token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestRankGatesGroups(t *testing.T) {
	e := newEcho(t)

	assert.Equal(t, http.StatusUnauthorized, do(t, e, http.MethodGet, "/v1/citizen/dashboard", ""))
	assert.Equal(t, http.StatusForbidden, do(t, e, http.MethodGet, "/v1/officer/requests", "c1"))
	assert.Equal(t, http.StatusForbidden, do(t, e, http.MethodPost, "/v1/officer/requests/r1/decision", "c1"))
	assert.Equal(t, http.StatusForbidden, do(t, e, http.MethodGet, "/v1/admin/users", "o1"))
	assert.Equal(t, http.StatusForbidden, do(t, e, http.MethodGet, "/v1/admin/audit-logs", "o1"))
}

func TestOpsRoutes(t *testing.T) {
	e := newEcho(t)

	assert.Equal(t, http.StatusOK, do(t, e, http.MethodGet, "/healthz", ""))
	assert.Equal(t, http.StatusOK, do(t, e, http.MethodGet, "/metrics", ""))
}

func TestLimitersSeeTheirActor(t *testing.T) {
	log, _ := test.NewNullLogger()
	var limited, open []string
	s := Secure{
		Secret: secret,
		Users:  users{"c1": {ID: "c1", Role: model.RoleCitizen, IsActive: true}},
		Guard:  access.NewPipeline(nil),
		Log:    log,
		Limit: func(echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				limited = append(limited, middleware.Actor(c).ID)
				return c.NoContent(http.StatusTooManyRequests)
			}
		},
		OpenLimit: func(echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				open = append(open, c.Path())
				return c.NoContent(http.StatusTooManyRequests)
			}
		},
	}
	e := echo.New()
	RegisterAuth(e, &handler.AuthHandler{}, s)
	RegisterPublic(e, &handler.CatalogHandler{}, s, nil)
	RegisterCitizen(e, &handler.CitizenHandler{}, s)

	assert.Equal(t, http.StatusTooManyRequests, do(t, e, http.MethodGet, "/v1/citizen/dashboard", "c1"))
	assert.Equal(t, http.StatusTooManyRequests, do(t, e, http.MethodGet, "/v1/me", "c1"))
	assert.Equal(t, []string{"c1", "c1"}, limited)

	// rejected before the limiter is reached
	assert.Equal(t, http.StatusUnauthorized, do(t, e, http.MethodGet, "/v1/citizen/dashboard", ""))
	assert.Len(t, limited, 2)

	assert.Equal(t, http.StatusTooManyRequests, do(t, e, http.MethodPost, "/v1/auth/login", ""))
	assert.Equal(t, http.StatusTooManyRequests, do(t, e, http.MethodGet, "/v1/services/s1", ""))
	assert.Equal(t, []string{"/v1/auth/login", "/v1/services/:id"}, open)
}
