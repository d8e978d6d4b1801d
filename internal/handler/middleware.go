package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/apperr"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/auth"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/model"
)

const contextUserKey = "authUser"

// AuthMiddleware verifies the bearer token on every request and stores the
// resolved user on the gin context. No caching, tokens are re-verified per
// request.
func AuthMiddleware(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := verifier.Verify(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    apperr.CodeOf(err),
					"message": apperr.MessageOf(err),
				},
			})
			return
		}
		c.Set(contextUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user set by AuthMiddleware.
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}
