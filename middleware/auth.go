package middleware

import (
	"net/http"
	"strings"

	"homecare/utils"

	"github.com/gin-gonic/gin"
)

// JWTAuthMiddleware authenticates nurse and client requests with a bearer
// token and stores the subject and role on the context.
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
					"code":  500,
				})
			}
		}()

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Insufficient authorization",
				"code":  0,
			})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Insufficient authorization",
				"code":  0,
			})
			return
		}

		subject, role, err := utils.ExtractIDFromToken(tokenString)
		if err != nil || subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Insufficient authorization",
				"code":  0,
			})
			return
		}

		c.Set("subjectID", subject)
		c.Set("subjectRole", role)
		c.Next()
	}
}

// OptionalJWT parses a bearer token when one is present but never rejects
// the request. Used on viewer endpoints where a share token may authorize
// the caller instead.
func OptionalJWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if subject, role, err := utils.ExtractIDFromToken(tokenString); err == nil && subject != "" {
				c.Set("subjectID", subject)
				c.Set("subjectRole", role)
			}
		}
		c.Next()
	}
}
