package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/bookvault/backend/internal/metrics"
	"github.com/bookvault/backend/internal/model"
	"github.com/bookvault/backend/internal/service"
	"github.com/gin-gonic/gin"
)

// SetupFunc runs the idempotent bootstrap (schema, indexes, default admin).
type SetupFunc func(ctx context.Context) error

type AuthHandler struct {
	svc   *service.AuthService
	setup SetupFunc
}

func NewAuthHandler(svc *service.AuthService, setup SetupFunc) *AuthHandler {
	return &AuthHandler{svc: svc, setup: setup}
}

// Login issues a session token for a valid credential pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.StatusResponse{
			Success: false,
			Message: "Wrong query parameters provided.",
		})
		return
	}

	token, err := h.svc.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredential):
			metrics.LoginsTotal.WithLabelValues("invalid_credential").Inc()
			c.JSON(http.StatusUnauthorized, model.StatusResponse{
				Success: false,
				Message: "Authentication failed: wrong login or password.",
			})
		case errors.Is(err, service.ErrUserBlocked):
			metrics.LoginsTotal.WithLabelValues("user_blocked").Inc()
			c.JSON(http.StatusUnauthorized, model.StatusResponse{
				Success: false,
				Message: "Authentication failed: user temporary blocked.",
			})
		default:
			metrics.LoginsTotal.WithLabelValues("error").Inc()
			log.Printf("login failed: %v", err)
			c.JSON(http.StatusInternalServerError, model.StatusResponse{
				Success: false,
				Message: "Failed to produce token.",
			})
		}
		return
	}

	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, model.TokenResponse{
		Success: true,
		Message: "Authentication token successful produced.",
		Token:   token,
	})
}

// Validate runs the full session validation pipeline over a token supplied in
// the request body and reports the resolved principal. Advisory endpoint: it
// has no side effects.
func (h *AuthHandler) Validate(c *gin.Context) {
	var req model.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		c.JSON(http.StatusBadRequest, model.StatusResponse{
			Success: false,
			Message: "No token provided.",
		})
		return
	}

	user, _, err := h.svc.Authenticate(c.Request.Context(), req.Token)
	if err != nil {
		status, message := validationResponse(err)
		if status == http.StatusInternalServerError {
			log.Printf("token validation failed: %v", err)
		}
		c.JSON(status, model.StatusResponse{Success: false, Message: message})
		return
	}

	c.JSON(http.StatusOK, model.ValidateResponse{
		Success: true,
		Message: "Token is valid.",
		User: &model.ValidateUser{
			Login: user.Login,
			Name:  user.Name,
		},
	})
}

// Logout revokes the caller's current token. Any authenticated user may
// revoke their own token; RequireAuth has already run, so the token here is
// verified.
func (h *AuthHandler) Logout(c *gin.Context) {
	err := h.svc.Logout(c.Request.Context(), c.GetHeader("Authorization"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyRevoked):
			metrics.RevocationsTotal.WithLabelValues("conflict").Inc()
			c.JSON(http.StatusConflict, model.StatusResponse{
				Success: false,
				Message: "The token already has been invalidated.",
			})
		case errors.Is(err, service.ErrNoToken):
			c.JSON(http.StatusForbidden, model.StatusResponse{
				Success: false,
				Message: "There was no token to make it void.",
			})
		case errors.Is(err, service.ErrMalformedToken):
			c.JSON(http.StatusUnauthorized, model.StatusResponse{
				Success: false,
				Message: "The token provided has wrong format.",
			})
		default:
			metrics.RevocationsTotal.WithLabelValues("error").Inc()
			log.Printf("logout failed: %v", err)
			c.JSON(http.StatusInternalServerError, model.StatusResponse{
				Success: false,
				Message: "Failed to invalidate token.",
			})
		}
		return
	}

	metrics.RevocationsTotal.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, model.StatusResponse{
		Success: true,
		Message: "The token successful invalidated.",
	})
}

// Session reports the authenticated principal and the days left until the
// current token expires.
func (h *AuthHandler) Session(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, model.StatusResponse{
			Success: false,
			Message: "No token provided.",
		})
		return
	}

	var days int64
	if expiry, ok := GetTokenExpiry(c); ok {
		seconds := int64(time.Until(expiry).Seconds())
		if seconds > 0 {
			days = seconds / 86400
		}
	}

	c.JSON(http.StatusOK, model.SessionResponse{
		Success:       true,
		User:          *user,
		ExpiresInDays: days,
	})
}

// Setup bootstraps the database schema and the default admin account.
// Unprotected by design (mirrors first-run setup); idempotent, so repeated
// calls are harmless. May be disabled by not mounting the route.
func (h *AuthHandler) Setup(c *gin.Context) {
	if h.setup == nil {
		c.JSON(http.StatusNotFound, model.StatusResponse{
			Success: false,
			Message: "Setup is disabled.",
		})
		return
	}

	if err := h.setup(c.Request.Context()); err != nil {
		log.Printf("setup failed: %v", err)
		c.JSON(http.StatusInternalServerError, model.StatusResponse{
			Success: false,
			Message: "Setup failed.",
		})
		return
	}

	c.JSON(http.StatusOK, model.StatusResponse{
		Success: true,
		Message: "Setup complete.",
	})
}
