package middleware

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"eventcrm/internal/authz"
)

// RequireRoles admits only the listed roles. action names the guarded
// operation in the refusal, e.g. "edit events".
func RequireRoles(action string, allowed ...int) gin.HandlerFunc {
	allowedSet := make(map[int]struct{}, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}
	return func(c *gin.Context) {
		roleID, ok := c.Get("role_id")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no role in context"})
			return
		}
		role, _ := roleID.(int)
		if _, ok := allowedSet[role]; !ok {
			log.Printf("[authz][deny] userID=%d role=%s %s %s", c.GetInt("user_id"), authz.RoleName(role), c.Request.Method, c.FullPath())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": fmt.Sprintf("role %s cannot %s", authz.RoleName(role), action)})
			return
		}
		c.Next()
	}
}

// ReadOnlyGuard refuses tokens with a role this service does not know, and
// unsafe methods for the audit role. Public paths carry no role and pass.
func ReadOnlyGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get("role_id")
		if !ok {
			c.Next()
			return
		}
		role, _ := v.(int)
		if !authz.Known(role) {
			log.Printf("[authz][deny] userID=%d unknown role=%d", c.GetInt("user_id"), role)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "unknown role"})
			return
		}
		if authz.IsReadOnly(role) {
			switch c.Request.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
			default:
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": fmt.Sprintf("role %s is read-only", authz.RoleName(role))})
				return
			}
		}
		c.Next()
	}
}
