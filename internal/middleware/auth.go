package middleware

import (
	"errors"
	"net/http"
	"strings"

	"invest-service/internal/service/admin"
	pkgAuth "invest-service/pkg/auth"
	appErr "invest-service/pkg/errors"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserIDKey    = "userID"
	ContextAdminIDKey   = "adminID"
	ContextAdminRoleKey = "adminRole"
)

func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		claims, err := pkgAuth.ParseUserToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextUserIDKey, claims.SubjectID)
		c.Next()
	}
}

func AdminAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		claims, err := pkgAuth.ParseAdminToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextAdminIDKey, claims.SubjectID)
		c.Set(ContextAdminRoleKey, claims.Role)
		c.Next()
	}
}

// AdminPermissionRequired gates a route on the role carried in the admin
// token. Must run after AdminAuthRequired.
func AdminPermissionRequired(perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextAdminRoleKey)
		if !admin.RoleCan(role, perm) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": appErr.ErrPermissionDenied.Error()})
			return
		}
		c.Next()
	}
}

func extractBearerToken(authHeader string) (string, error) {
	if strings.TrimSpace(authHeader) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
