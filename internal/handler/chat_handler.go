package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/apperr"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/blobstore"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/event"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/hub"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/service"
)

type ChatHandler interface {
	AccessDirect(c *gin.Context)
	List(c *gin.Context)
	CreateGroup(c *gin.Context)
	RenameGroup(c *gin.Context)
	UpdateDescription(c *gin.Context)
	UpdateAvatar(c *gin.Context)
	AddMember(c *gin.Context)
	RemoveMember(c *gin.Context)
	LeaveGroup(c *gin.Context)
	JoinViaInvite(c *gin.Context)
	SetVisibility(c *gin.Context)
}

type chatHandler struct {
	chats  service.ChatService
	blobs  blobstore.Store
	hub    *hub.Hub
	logger *zap.Logger
}

func NewChatHandler(chats service.ChatService, blobs blobstore.Store, h *hub.Hub, logger *zap.Logger) ChatHandler {
	return &chatHandler{
		chats:  chats,
		blobs:  blobs,
		hub:    h,
		logger: logger,
	}
}

func (h *chatHandler) AccessDirect(c *gin.Context) {
	var req struct {
		UserID string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.InvalidArgument("userId is required"))
		return
	}

	me := CurrentUser(c)
	result, err := h.chats.AccessDirect(c.Request.Context(), me.ID.Hex(), req.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	if result.Created {
		h.hub.NotifyConversationNew(result.Conversation)
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"conversation": result.Conversation})
}

func (h *chatHandler) List(c *gin.Context) {
	me := CurrentUser(c)
	list, err := h.chats.ListForUser(c.Request.Context(), me.ID.Hex())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *chatHandler) CreateGroup(c *gin.Context) {
	var req struct {
		Name        string   `json:"name" binding:"required"`
		Members     []string `json:"members" binding:"required"`
		Avatar      string   `json:"avatar"`
		Description string   `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.InvalidArgument("name and members are required"))
		return
	}

	me := CurrentUser(c)
	conv, err := h.chats.CreateGroup(c.Request.Context(), me.ID.Hex(), req.Members, req.Name, req.Avatar, req.Description)
	if err != nil {
		fail(c, err)
		return
	}

	h.hub.NotifyConversationNew(conv)
	c.JSON(http.StatusCreated, gin.H{"conversation": conv})
}

func (h *chatHandler) RenameGroup(c *gin.Context) {
	var req struct {
		ConversationID string `json:"conversationId" binding:"required"`
		Name           string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.InvalidArgument("conversationId and name are required"))
		return
	}
	h.updateGroupInfo(c, req.ConversationID, service.GroupInfoUpdate{Name: &req.Name})
}

func (h *chatHandler) UpdateDescription(c *gin.Context) {
	var req struct {
		ConversationID string `json:"conversationId" binding:"required"`
		Description    string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.InvalidArgument("conversationId is required"))
		return
	}
	h.updateGroupInfo(c, req.ConversationID, service.GroupInfoUpdate{Description: &req.Description})
}

// UpdateAvatar accepts a multipart image, stores the blob, and points the
// group at it.
func (h *chatHandler) UpdateAvatar(c *gin.Context) {
	conversationID := c.PostForm("conversationId")
	if conversationID == "" {
		fail(c, apperr.InvalidArgument("conversationId is required"))
		return
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		fail(c, apperr.InvalidArgument("avatar file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		fail(c, apperr.InvalidArgument("avatar file is unreadable").WithCause(err))
		return
	}
	defer file.Close()

	url, _, err := h.blobs.Store(c.Request.Context(), file, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		h.logger.Error("avatar upload failed", zap.Error(err))
		fail(c, apperr.Internal("upload failed"))
		return
	}

	h.updateGroupInfo(c, conversationID, service.GroupInfoUpdate{Avatar: &url})
}

func (h *chatHandler) updateGroupInfo(c *gin.Context, conversationID string, info service.GroupInfoUpdate) {
	me := CurrentUser(c)
	conv, err := h.chats.UpdateGroupInfo(c.Request.Context(), me.ID.Hex(), conversationID, info)
	if err != nil {
		fail(c, err)
		return
	}

	h.hub.NotifyMembership(conv, event.MembershipUpdated, "", me.ID.Hex())
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

func (h *chatHandler) AddMember(c *gin.Context) {
	var req struct {
		ConversationID string `json:"conversationId" binding:"required"`
		UserID         string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.InvalidArgument("conversationId and userId are required"))
		return
	}

	me := CurrentUser(c)
	conv, err := h.chats.AddMember(c.Request.Context(), me.ID.Hex(), req.ConversationID, req.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	h.hub.NotifyMembership(conv, event.MembershipAdded, req.UserID, me.ID.Hex())
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

func (h *chatHandler) RemoveMember(c *gin.Context) {
	var req struct {
		ConversationID string `json:"conversationId" binding:"required"`
		UserID         string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.InvalidArgument("conversationId and userId are required"))
		return
	}

	me := CurrentUser(c)
	conv, err := h.chats.RemoveMember(c.Request.Context(), me.ID.Hex(), req.ConversationID, req.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	h.hub.NotifyMembership(conv, event.MembershipRemoved, req.UserID, me.ID.Hex())
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

func (h *chatHandler) LeaveGroup(c *gin.Context) {
	var req struct {
		ConversationID string `json:"conversationId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.InvalidArgument("conversationId is required"))
		return
	}

	me := CurrentUser(c)
	conv, err := h.chats.LeaveGroup(c.Request.Context(), me.ID.Hex(), req.ConversationID)
	if err != nil {
		fail(c, err)
		return
	}

	h.hub.NotifyMembership(conv, event.MembershipLeft, me.ID.Hex(), me.ID.Hex())
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

func (h *chatHandler) JoinViaInvite(c *gin.Context) {
	token := c.Param("token")
	me := CurrentUser(c)

	conv, err := h.chats.JoinViaInvite(c.Request.Context(), token, me.ID.Hex())
	if err != nil {
		fail(c, err)
		return
	}

	h.hub.NotifyMembership(conv, event.MembershipAdded, me.ID.Hex(), me.ID.Hex())
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

func (h *chatHandler) SetVisibility(c *gin.Context) {
	var req struct {
		ConversationID string `json:"conversationId" binding:"required"`
		service.VisibilityUpdate
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.InvalidArgument("conversationId is required"))
		return
	}

	me := CurrentUser(c)
	summary, err := h.chats.SetVisibility(c.Request.Context(), me.ID.Hex(), req.ConversationID, req.VisibilityUpdate)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": summary})
}
