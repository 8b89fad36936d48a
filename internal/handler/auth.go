package handler

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/civic-service-portal/internal/apperr"
	"github.com/iliyamo/civic-service-portal/internal/config"
	"github.com/iliyamo/civic-service-portal/internal/lifecycle"
	"github.com/iliyamo/civic-service-portal/internal/middleware"
	"github.com/iliyamo/civic-service-portal/internal/model"
	"github.com/iliyamo/civic-service-portal/internal/repository"
	"github.com/iliyamo/civic-service-portal/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
	Clock  lifecycle.Clock
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Clock: lifecycle.SystemClock{}}
}

// ----- DTOs -----

type registerReq struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Password   string  `json:"password"`
	NationalID *string `json:"national_id"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User    model.User `json:"user"`
	Access  tokenPart  `json:"access"`
	Refresh tokenPart  `json:"refresh"`
}

var errInvalidCredentials = apperr.New(apperr.Unauthenticated, "invalid credentials")

// Register creates a citizen account and returns a token pair.  Staff and
// admin accounts are only made by promoting a citizen.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return invalid(c, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if strings.TrimSpace(req.Name) == "" || req.Email == "" || req.Password == "" {
		return invalid(c, "name, email and password are required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return invalid(c, "invalid email address")
	}
	if err := utils.CheckPasswordPolicy(req.Password); err != nil {
		return invalid(c, err.Error())
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := model.NewUser(req.Name, req.Email, req.Password, model.RoleCitizen, h.Cfg.BcryptCost, h.Clock.Now())
	if err != nil {
		return fail(c, err)
	}
	if id := trimmed(req.NationalID); id != nil && *id != "" {
		u.NationalID = id
	}
	if err := h.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return conflict(c, "email already exists")
		}
		return fail(c, err)
	}
	return h.issue(ctx, c, http.StatusCreated, u)
}

// Login verifies credentials, records the login time and returns a new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return invalid(c, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return invalid(c, "email/password required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return fail(c, errInvalidCredentials)
	}
	if err != nil {
		return fail(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, errInvalidCredentials)
	}
	if !u.IsActive {
		return fail(c, apperr.New(apperr.Unauthenticated, "account is deactivated"))
	}

	now := h.Clock.Now()
	if err := h.Users.TouchLastLogin(ctx, u.ID, now); err != nil {
		return fail(c, err)
	}
	u.LastLogin = &now
	return h.issue(ctx, c, http.StatusOK, u)
}

// Refresh rotates the presented refresh token: the old one is revoked and
// a new pair is returned.  Replaying a rotated token fails.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return invalid(c, "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := reqCtx(c)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash, h.Clock.Now())
	if errors.Is(err, repository.ErrNotFound) {
		return fail(c, apperr.New(apperr.Unauthenticated, "invalid refresh token"))
	}
	if err != nil {
		return fail(c, err)
	}
	u, err := h.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !u.IsActive) {
		return fail(c, apperr.New(apperr.Unauthenticated, "invalid refresh token"))
	}
	if err != nil {
		return fail(c, err)
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, string(u.Role), h.Cfg.AccessTTLMin)
	if err != nil {
		return fail(c, err)
	}
	next, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return fail(c, err)
	}
	err = h.Tokens.Rotate(ctx, u.ID, hash, utils.HashRefreshRaw(next.Raw), next.Exp)
	if errors.Is(err, repository.ErrNotFound) {
		return fail(c, apperr.New(apperr.Unauthenticated, "invalid refresh token"))
	}
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, authResp{
		User:    u,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: next.Raw, Expires: next.Exp},
	})
}

// Logout revokes the refresh token in the body.  Revoking an unknown or
// already revoked token is not an error.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return invalid(c, "refresh_token required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// LogoutAll revokes every refresh token of the authenticated user.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	u := middleware.Actor(c)
	if u == nil {
		return fail(c, apperr.ErrUnauthenticated)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Tokens.RevokeAllForUser(ctx, u.ID); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	u := middleware.Actor(c)
	if u == nil {
		return fail(c, apperr.ErrUnauthenticated)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

func (h *AuthHandler) issue(ctx context.Context, c echo.Context, status int, u model.User) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, string(u.Role), h.Cfg.AccessTTLMin)
	if err != nil {
		return fail(c, err)
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return fail(c, err)
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return fail(c, err)
	}
	return c.JSON(status, authResp{
		User:    u,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	})
}
