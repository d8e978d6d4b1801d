package approuters

import (
	"github.com/gin-gonic/gin"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/configuration"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/handler"
)

func MessageRouters(router *gin.Engine, container *configuration.Container) {
	messageRoute := router.Group("/api/messages")
	messageRoute.Use(handler.AuthMiddleware(container.Verifier))
	{
		messageRoute.POST("", container.MessageHandler.Send)
		messageRoute.GET("/:conversationId", container.MessageHandler.List)
		messageRoute.POST("/seen", container.MessageHandler.MarkSeen)
		messageRoute.POST("/forward", container.MessageHandler.Forward)
		messageRoute.DELETE("/:id", container.MessageHandler.Delete)
		messageRoute.POST("/clear", container.MessageHandler.Clear)
	}
}
