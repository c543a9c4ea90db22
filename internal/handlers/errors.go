package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/birlikkoshan/tasksync/internal/ai"
	"github.com/birlikkoshan/tasksync/internal/auth"
	"github.com/birlikkoshan/tasksync/internal/service"

	"github.com/gin-gonic/gin"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

const (
	msgAINotConfigured = "AI parsing is not available. Please set the API key."
	msgInvalidBody     = "invalid request body"
)

// errorResponse maps a service error to a status and public message.
func errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrInvalidToken):
		return auth.AuthErrorResponse(err)
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrUsernameTaken):
		return http.StatusConflict, "Username already exists"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, service.ErrRegistrationFailed):
		return http.StatusInternalServerError, "An error occurred during registration. Please try again."
	case errors.Is(err, ai.ErrNotConfigured):
		return http.StatusServiceUnavailable, msgAINotConfigured
	case errors.Is(err, ai.ErrEmptyText):
		return http.StatusBadRequest, "No text provided"
	case errors.Is(err, ai.ErrUpstream):
		return http.StatusInternalServerError, "Failed to parse task with AI due to API request error."
	case errors.Is(err, ai.ErrMalformedResponse):
		return http.StatusInternalServerError, "Failed to parse API response."
	}
	return http.StatusInternalServerError, "internal server error"
}

// fail writes the error response. Server-side failures are logged with their
// detail, which never reaches the client.
func fail(c *gin.Context, err error) {
	status, msg := errorResponse(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"route", c.FullPath(),
			RequestIDKey, c.GetString(RequestIDKey),
			"err", err,
		)
	}
	c.JSON(status, gin.H{"error": msg})
}

// badRequest answers a body that failed to decode or bind. Decoder detail
// is only logged.
func badRequest(c *gin.Context, err error) {
	slog.DebugContext(c.Request.Context(), "invalid request body",
		"route", c.FullPath(),
		RequestIDKey, c.GetString(RequestIDKey),
		"err", err,
	)
	c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
}

func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// identity returns the caller set by auth.RequireToken. Routes using it are
// always behind that middleware.
func identity(c *gin.Context) auth.Identity {
	id, _ := auth.IdentityFrom(c)
	return id
}
