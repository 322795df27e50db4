package middleware

import (
	"net/http"

	"greenpay/internal/domain"

	"github.com/gin-gonic/gin"
)

// AdminRequired lets only ADMIN callers through. Use after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) != domain.RoleAdmin {
			abort(c, http.StatusForbidden, "admin access required")
			return
		}
		c.Next()
	}
}

// IsAdmin reports whether the authenticated caller is an admin.
func IsAdmin(c *gin.Context) bool {
	return GetRole(c) == domain.RoleAdmin
}
