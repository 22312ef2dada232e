package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminCookie holds the admin session token for browser clients.
const AdminCookie = "chili_admin"

const adminTokenKey = "admin_token"

// Authenticator checks admin session tokens.
type Authenticator interface {
	IsAuthenticated(ctx context.Context, token string) bool
}

// AdminToken extracts the admin token from the Authorization bearer header or the
// admin cookie.
func AdminToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := c.Cookie(AdminCookie); err == nil {
		return cookie
	}
	return ""
}

// RequireAdmin aborts with 401 unless the request carries a live admin session.
func RequireAdmin(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := AdminToken(c)
		if !auth.IsAuthenticated(c.Request.Context(), token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin authentication required"})
			return
		}
		c.Set(adminTokenKey, token)
		c.Next()
	}
}
