package approuters

import (
	"github.com/gin-gonic/gin"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/configuration"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/handler"
)

func UserRouters(router *gin.Engine, container *configuration.Container) {
	userRoute := router.Group("/api/users")
	userRoute.Use(handler.AuthMiddleware(container.Verifier))
	{
		userRoute.GET("/search", container.UserHandler.Search)
		userRoute.GET("/blocked", container.UserHandler.Blocked)
		userRoute.GET("/:id", container.UserHandler.Get)
		userRoute.POST("/:id/block", container.UserHandler.Block)
		userRoute.POST("/:id/unblock", container.UserHandler.Unblock)
	}

	profileRoute := router.Group("/api/profile")
	profileRoute.Use(handler.AuthMiddleware(container.Verifier))
	{
		profileRoute.GET("", container.UserHandler.Me)
		profileRoute.PUT("", container.UserHandler.UpdateMe)
	}
}
