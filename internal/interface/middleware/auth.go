package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-task-manager/pkg/helpers"
	"github.com/oksasatya/go-task-manager/pkg/response"
)

const (
	CtxUserIDKey    = "userID"
	CtxRoleKey      = "userRole"
	CtxSessionIDKey = "sessionID"
)

// Authenticator resolves an access token to its claims, including the
// server-side session check.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*helpers.Claims, error)
}

// accessTokens returns the candidate tokens in order: the access_token cookie,
// then an Authorization: Bearer header.
func accessTokens(c *gin.Context) []string {
	var tokens []string
	if token, err := c.Cookie(helpers.AccessCookie); err == nil && token != "" {
		tokens = append(tokens, token)
	}
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		if token := strings.TrimSpace(h[7:]); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// Auth validates the access token and ensures an active session exists.
// A stale cookie does not shadow a valid Bearer header.
// It sets userID, userRole and sessionID in the Gin context on success.
func Auth(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokens := accessTokens(c)
		if len(tokens) == 0 {
			response.Abort(c, http.StatusUnauthorized, "missing access token", nil)
			return
		}
		var claims *helpers.Claims
		for _, token := range tokens {
			got, err := authn.Authenticate(c.Request.Context(), token)
			if err == nil {
				claims = got
				break
			}
		}
		if claims == nil {
			response.Abort(c, http.StatusUnauthorized, "invalid or expired session", nil)
			return
		}
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxRoleKey, claims.Role)
		c.Set(CtxSessionIDKey, claims.SessionID)
		c.Next()
	}
}
