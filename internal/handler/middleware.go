package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/bookvault/backend/internal/acl"
	"github.com/bookvault/backend/internal/metrics"
	"github.com/bookvault/backend/internal/model"
	"github.com/bookvault/backend/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	authUserKey    = "auth_user"
	tokenExpiryKey = "auth_token_expiry"
)

// RequireAuth validates the bearer token on every request and attaches the
// principal and the token's expiry to the context. Every rejection reason
// gets its own message; unexpected failures answer generically and log the
// detail server-side.
func RequireAuth(svc *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		user, expiry, err := svc.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			metrics.ValidationsTotal.WithLabelValues(validationOutcome(err)).Inc()
			status, message := validationResponse(err)
			if status == http.StatusInternalServerError {
				log.Printf("authentication failed: %v", err)
			}
			c.AbortWithStatusJSON(status, model.StatusResponse{Success: false, Message: message})
			return
		}

		metrics.ValidationsTotal.WithLabelValues("ok").Inc()
		c.Set(authUserKey, &model.AuthUser{
			ID:    user.ID,
			Login: user.Login,
			Name:  user.Name,
			Roles: user.Roles,
		})
		c.Set(tokenExpiryKey, expiry)
		c.Next()
	}
}

// RequirePrivilege checks the authenticated user's roles against the policy.
// A denied-but-authenticated request is not an error: it gets a neutral empty
// success so the caller cannot tell "forbidden" from "no results".
func RequirePrivilege(policy *acl.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := GetAuthUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.StatusResponse{
				Success: false,
				Message: "No token provided.",
			})
			return
		}

		if !policy.IsAllowed(user.Roles, c.Request.URL.Path, c.Request.Method) {
			metrics.PolicyDenialsTotal.Inc()
			c.AbortWithStatusJSON(http.StatusOK, []struct{}{})
			return
		}

		c.Next()
	}
}

func GetAuthUser(c *gin.Context) *model.AuthUser {
	if value, ok := c.Get(authUserKey); ok {
		if user, ok := value.(*model.AuthUser); ok {
			return user
		}
	}
	return nil
}

func GetTokenExpiry(c *gin.Context) (time.Time, bool) {
	if value, ok := c.Get(tokenExpiryKey); ok {
		if expiry, ok := value.(time.Time); ok {
			return expiry, true
		}
	}
	return time.Time{}, false
}

func validationResponse(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrNoToken):
		return http.StatusForbidden, "No token provided."
	case errors.Is(err, service.ErrExpiredToken):
		return http.StatusForbidden, "Token expired, please renew."
	case errors.Is(err, service.ErrMalformedToken):
		return http.StatusUnauthorized, "The token provided has wrong format."
	case errors.Is(err, service.ErrRevokedToken):
		return http.StatusUnauthorized, "The token has been blocked."
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusUnauthorized, "User was not found."
	case errors.Is(err, service.ErrUserBlocked):
		return http.StatusUnauthorized, "User temporary blocked."
	case errors.Is(err, service.ErrPasswordRotated):
		return http.StatusUnauthorized, "Token expired cause user has changed his password."
	default:
		return http.StatusInternalServerError, "Failed to authenticate token."
	}
}

func validationOutcome(err error) string {
	switch {
	case errors.Is(err, service.ErrNoToken):
		return "no_token"
	case errors.Is(err, service.ErrExpiredToken):
		return "expired"
	case errors.Is(err, service.ErrMalformedToken):
		return "malformed"
	case errors.Is(err, service.ErrRevokedToken):
		return "revoked"
	case errors.Is(err, service.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, service.ErrUserBlocked):
		return "user_blocked"
	case errors.Is(err, service.ErrPasswordRotated):
		return "password_rotated"
	default:
		return "error"
	}
}
