package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tracepaper/core/internal/pkg/response"
)

const contextKeyAuthed = "authenticated"

// TokenAuth marks requests carrying the configured static token as
// authenticated. With an empty configured token nothing matches, which is
// the default local single-user mode.
func TokenAuth(configuredToken string) gin.HandlerFunc {
	expected := strings.TrimSpace(configuredToken)
	return func(c *gin.Context) {
		if expected != "" && tokenMatches(extractToken(c), expected) {
			c.Set(contextKeyAuthed, true)
		}
		c.Next()
	}
}

// RequireAuth blocks unauthenticated requests on guarded routes. When no
// token is configured the install is local-only and the guard is open.
func RequireAuth(configuredToken string) gin.HandlerFunc {
	expected := strings.TrimSpace(configuredToken)
	return func(c *gin.Context) {
		if expected == "" || IsAuthenticated(c) {
			c.Next()
			return
		}
		response.Unauthorized(c)
	}
}

// IsAuthenticated returns true if the request carried the configured token.
func IsAuthenticated(c *gin.Context) bool {
	v, _ := c.Get(contextKeyAuthed)
	authed, _ := v.(bool)
	return authed
}

// ValidateToken checks a raw token against the configured one, for callers
// outside the gin chain (the gateway admin namespace).
func ValidateToken(raw, configuredToken string) bool {
	expected := strings.TrimSpace(configuredToken)
	if expected == "" {
		return true
	}
	return tokenMatches(NormalizeToken(raw), expected)
}

func tokenMatches(token, expected string) bool {
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}

func extractToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if auth != "" {
		return NormalizeToken(auth)
	}
	return NormalizeToken(c.Query("token"))
}

// NormalizeToken trims spaces and strips the optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
