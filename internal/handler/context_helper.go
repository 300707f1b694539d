package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/dojoclub/points-api/internal/middleware"
	"github.com/dojoclub/points-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorID returns the authenticated staff user's ID, or "system" when the
// route runs unauthenticated.
func actorID(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil || claims.UserID == "" {
		return "system"
	}
	return claims.UserID
}
