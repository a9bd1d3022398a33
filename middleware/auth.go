package middleware

import (
	"strings"
	"time"

	"campusguard/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AuthMiddleware struct {
	jwtService *utils.JWTService
}

func NewAuthMiddleware(jwtService *utils.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

// RequireAuth validates the JWT and sets user context
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := am.extractToken(c)
		if token == "" {
			utils.UnauthorizedResponse(c, "Authentication token required")
			c.Abort()
			return
		}

		claims, err := am.jwtService.ValidateToken(token)
		if err != nil {
			logrus.Warnf("Invalid token: %v", err)
			utils.UnauthorizedResponse(c, "Invalid authentication token")
			c.Abort()
			return
		}

		if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
			utils.UnauthorizedResponse(c, "Authentication token expired")
			c.Abort()
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("userEmail", claims.Email)
		c.Set("userRole", claims.Role)
		c.Next()
	}
}

// RequireRole restricts a route to the given roles. Must run after
// RequireAuth.
func (am *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := utils.GetUserRole(c)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		utils.ForbiddenResponse(c, "Insufficient role for this operation")
		c.Abort()
	}
}

func (am *AuthMiddleware) extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	// WebSocket clients pass the token as a query parameter.
	return c.Query("token")
}
