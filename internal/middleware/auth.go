package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"budgetly-be/internal/jwt"
)

// Context keys set by AuthMiddleware
const (
	ContextUserID = "userID"
	ContextEmail  = "email"
)

// AuthMiddleware requires a valid "Authorization: Bearer <token>" header and
// stores the token's user id and email in the gin context
func AuthMiddleware(jwtService *jwt.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			return
		}

		claims, err := jwtService.ValidateToken(strings.TrimSpace(tokenString))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Next()
	}
}

// UserID returns the authenticated user's id
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// Email returns the authenticated user's email
func Email(c *gin.Context) string {
	return c.GetString(ContextEmail)
}
