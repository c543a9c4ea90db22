package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenHeader carries the bearer token on every protected request.
const TokenHeader = "x-access-token"

const contextKeyIdentity = "identity"

// Authenticator validates a raw token.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (Identity, error)
}

// TokenFromRequest returns the token from x-access-token, falling back to
// "Authorization: Bearer <token>".
func TokenFromRequest(r *http.Request) string {
	if tok := strings.TrimSpace(r.Header.Get(TokenHeader)); tok != "" {
		return tok
	}
	scheme, tok, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(tok)
	}
	return ""
}

// IdentityFrom returns the identity stored by RequireToken.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(contextKeyIdentity)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// RequireToken returns a middleware that authenticates the request and sets
// the caller's Identity in context. If missing or invalid, responds with 401
// and the handler chain never runs.
func RequireToken(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := authn.Authenticate(c.Request.Context(), TokenFromRequest(c.Request))
		if err != nil {
			status, msg := AuthErrorResponse(err)
			if status == http.StatusInternalServerError {
				slog.Error("authenticate request", "err", err)
			}
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}
		c.Set(contextKeyIdentity, id)
		c.Next()
	}
}

// AuthErrorResponse maps an Authenticate error to a status and public message.
func AuthErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, ErrMissingToken):
		return http.StatusUnauthorized, "Token is missing!"
	case errors.Is(err, ErrExpiredToken):
		return http.StatusUnauthorized, "Token has expired!"
	case errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized, "Token is invalid!"
	}
	return http.StatusInternalServerError, "authentication failed"
}
