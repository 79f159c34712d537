package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/manufacture_backend/utils"
)

// AuthMiddleware guards a route group with a Bearer JWT issued by /login.
// The claims' username is placed in the request context for handlers that
// want it.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")

		bearer := "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		auth = auth[len(bearer):]

		validate, err := utils.JwtValidate(auth)
		if err != nil || !validate.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token is not valid or has expired"})
			c.Abort()
			return
		}

		if claims, ok := validate.Claims.(*utils.JwtCustomClaim); ok {
			ctx := utils.SetUsernameInContext(c.Request.Context(), claims.Username)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}
