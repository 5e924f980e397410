package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/schoolyard-io/schoolyard-api/internal/models"
	"github.com/schoolyard-io/schoolyard-api/internal/service"
	appErrors "github.com/schoolyard-io/schoolyard-api/pkg/errors"
	"github.com/schoolyard-io/schoolyard-api/pkg/response"
)

// ContextUserKey is the gin context key storing session claims.
const ContextUserKey = "currentUser"

// JWT protects routes by requiring a valid session token.
func JWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// CurrentCaller extracts the authenticated caller from the gin context.
// The boolean is false when the route was reached without JWT middleware.
func CurrentCaller(c *gin.Context) (models.Caller, bool) {
	claimsValue, exists := c.Get(ContextUserKey)
	if !exists {
		return models.Caller{}, false
	}
	claims, ok := claimsValue.(*models.SessionClaims)
	if !ok {
		return models.Caller{}, false
	}
	return claims.Caller(), true
}
