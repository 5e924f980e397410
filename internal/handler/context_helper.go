package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/schoolyard-io/schoolyard-api/internal/middleware"
	"github.com/schoolyard-io/schoolyard-api/internal/models"
)

func callerFromContext(c *gin.Context) (models.Caller, bool) {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return models.Caller{}, false
	}
	claims, ok := value.(*models.SessionClaims)
	if !ok {
		return models.Caller{}, false
	}
	return claims.Caller(), true
}
