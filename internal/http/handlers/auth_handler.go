// Account HTTP handlers.
//
// This file exposes the REST endpoints of the authenticated variant:
//   - POST /auth/register   (create an account)
//   - POST /auth/login      (exchange credentials for a bearer token)
//   - GET  /auth/me         (resolve the current account)
//
// When AUTH_REQUIRED is off these routes still work, letting clients opt in
// to accounts while anonymous traffic flows untouched.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vietchat/ollama-chat-backend/internal/domain"
	"github.com/vietchat/ollama-chat-backend/internal/services"
)

// AccountService defines the account operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AccountService interface {
	// Register creates an account after validating the password and
	// username/email uniqueness.
	Register(ctx context.Context, username, email, password, displayName string) (*domain.User, error)
	// Login verifies a credential and returns a signed token plus the account.
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
	// Me resolves the account behind a validated token subject.
	Me(ctx context.Context, userID string) (*domain.User, error)
}

// RegisterRequest is the JSON payload for creating an account.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64" example:"minh"`
	Email    string `json:"email" binding:"required,email" example:"minh@example.com"`
	Password string `json:"password" binding:"required" example:"matkhau"`
	// DisplayName optionally sets a human-readable name.
	DisplayName string `json:"display_name,omitempty" example:"Minh"`
}

// LoginRequest is the JSON payload for logging in.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued bearer token and the account it belongs to.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        domain.User `json:"user"`
}

// Register godoc
// @ID          register
// @Summary     Create an account
// @Description Registers a new user. Usernames and emails are unique; passwords are stored hashed.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.RegisterRequest  true  "Registration payload"
//
// @Success     201  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Username or email taken"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/register [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username, email and password are required")
		return
	}

	u, err := h.authSvc.Register(c.Request.Context(), req.Username, req.Email, req.Password, req.DisplayName)
	switch {
	case err == nil:
		ok(c, http.StatusCreated, u)
	case errors.Is(err, services.ErrWeakPassword):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "password too short")
	case errors.Is(err, services.ErrUsernameTaken):
		fail(c, http.StatusConflict, ErrCodeConflict, "username already taken")
	case errors.Is(err, services.ErrEmailTaken):
		fail(c, http.StatusConflict, ErrCodeConflict, "email already registered")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeRegisterFailed, "could not create account")
	}
}

// Login godoc
// @ID          login
// @Summary     Log in
// @Description Exchanges a username/password credential for a bearer token.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.LoginRequest  true  "Credentials"
//
// @Success     200  {object}  handlers.LoginResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Invalid credentials"
// @Failure     403  {object}  handlers.ErrorResponse  "Account disabled"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username and password are required")
		return
	}

	token, u, err := h.authSvc.Login(c.Request.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		ok(c, http.StatusOK, LoginResponse{AccessToken: token, TokenType: "bearer", User: *u})
	case errors.Is(err, services.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid username or password")
	case errors.Is(err, services.ErrUserInactive):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "account disabled")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not log in")
	}
}

// Me godoc
// @ID          me
// @Summary     Current account
// @Description Returns the account behind the presented bearer token.
// @Tags        Auth
// @Produce     json
//
// @Success     200  {object}  domain.User
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or invalid token"
// @Failure     404  {object}  handlers.ErrorResponse  "Account no longer exists"
// @Router      /auth/me [get]
func (h *Handlers) Me(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	u, err := h.authSvc.Me(c.Request.Context(), uid)
	switch {
	case err == nil:
		ok(c, http.StatusOK, u)
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load account")
	}
}
