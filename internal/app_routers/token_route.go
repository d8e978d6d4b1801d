package approuters

import (
	"github.com/gin-gonic/gin"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/configuration"
)

func TokenRouters(router *gin.Engine, container *configuration.Container) {
	// refresh is deliberately outside the auth middleware
	tokenRoute := router.Group("/api/token")
	{
		tokenRoute.POST("/refresh", container.TokenHandler.Refresh)
	}
}
