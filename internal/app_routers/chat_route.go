package approuters

import (
	"github.com/gin-gonic/gin"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/configuration"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/handler"
)

func ChatRouters(router *gin.Engine, container *configuration.Container) {
	chatRoute := router.Group("/api/chats")
	chatRoute.Use(handler.AuthMiddleware(container.Verifier))
	{
		chatRoute.POST("/access", container.ChatHandler.AccessDirect)
		chatRoute.GET("", container.ChatHandler.List)
		chatRoute.POST("/group", container.ChatHandler.CreateGroup)
		chatRoute.PUT("/group/rename", container.ChatHandler.RenameGroup)
		chatRoute.PUT("/group/description", container.ChatHandler.UpdateDescription)
		chatRoute.PUT("/group/avatar", container.ChatHandler.UpdateAvatar)
		chatRoute.PUT("/group/add", container.ChatHandler.AddMember)
		chatRoute.PUT("/group/remove", container.ChatHandler.RemoveMember)
		chatRoute.POST("/group/leave", container.ChatHandler.LeaveGroup)
		chatRoute.POST("/join/:token", container.ChatHandler.JoinViaInvite)
	}

	metaRoute := router.Group("/api/meta")
	metaRoute.Use(handler.AuthMiddleware(container.Verifier))
	{
		metaRoute.POST("/visibility", container.ChatHandler.SetVisibility)
	}
}
