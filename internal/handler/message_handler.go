package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/apperr"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/blobstore"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/event"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/hub"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/model"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/service"
)

type MessageHandler interface {
	Send(c *gin.Context)
	List(c *gin.Context)
	MarkSeen(c *gin.Context)
	Forward(c *gin.Context)
	Delete(c *gin.Context)
	Clear(c *gin.Context)
}

type messageHandler struct {
	messages service.MessageService
	blobs    blobstore.Store
	hub      *hub.Hub
	logger   *zap.Logger
}

func NewMessageHandler(messages service.MessageService, blobs blobstore.Store, h *hub.Hub, logger *zap.Logger) MessageHandler {
	return &messageHandler{
		messages: messages,
		blobs:    blobs,
		hub:      h,
		logger:   logger,
	}
}

// Send accepts multipart form data: text plus at most one attachment. An
// attachment with a duration field becomes a voice note.
func (h *messageHandler) Send(c *gin.Context) {
	conversationID := c.PostForm("conversationId")
	if conversationID == "" {
		fail(c, apperr.InvalidArgument("conversationId is required"))
		return
	}

	input := service.SendInput{
		ConversationID: conversationID,
		SenderID:       CurrentUser(c).ID.Hex(),
		Text:           c.PostForm("text"),
		ReplyTo:        c.PostForm("replyTo"),
		TempID:         c.PostForm("tempId"),
	}

	if fileHeader, err := c.FormFile("file"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			fail(c, apperr.InvalidArgument("attachment is unreadable").WithCause(err))
			return
		}
		defer file.Close()

		url, kind, err := h.blobs.Store(c.Request.Context(), file, fileHeader.Header.Get("Content-Type"))
		if err != nil {
			h.logger.Error("attachment upload failed", zap.Error(err))
			fail(c, apperr.Internal("upload failed"))
			return
		}

		if duration, derr := strconv.ParseFloat(c.PostForm("duration"), 64); derr == nil && duration > 0 {
			input.VoiceNote = &model.VoiceNote{URL: url, Duration: duration}
		} else {
			input.Media = &model.Media{URL: url, Kind: kind}
		}
	}

	result, err := h.messages.Send(c.Request.Context(), input)
	if err != nil {
		fail(c, err)
		return
	}

	out := event.NewWsEvent(event.EventChatMessage, event.MessageEvent{
		Message: result.View,
		TempID:  input.TempID,
	})
	h.hub.PublishToRoom(conversationID, out, nil)

	c.JSON(http.StatusCreated, gin.H{"message": result.View})
}

func (h *messageHandler) List(c *gin.Context) {
	conversationID := c.Param("conversationId")
	page := c.DefaultQuery("page", "1")
	pageNumber, err := strconv.ParseInt(page, 10, 64)
	if err != nil || pageNumber < 1 {
		fail(c, apperr.InvalidArgument("invalid page number"))
		return
	}

	result, err := h.messages.List(c.Request.Context(), CurrentUser(c).ID.Hex(), conversationID, pageNumber)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *messageHandler) MarkSeen(c *gin.Context) {
	var req struct {
		ConversationID string `json:"conversationId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.InvalidArgument("conversationId is required"))
		return
	}

	me := CurrentUser(c)
	result, err := h.messages.MarkSeen(c.Request.Context(), me.ID.Hex(), req.ConversationID)
	if err != nil {
		fail(c, err)
		return
	}

	if len(result.MessageIDs) > 0 {
		out := event.NewWsEvent(event.EventChatMessageSeen, event.SeenEvent{
			ConversationID: result.ConversationID,
			MessageIDs:     result.MessageIDs,
			SeenBy:         me.ID.Hex(),
			Timestamp:      time.Now().UnixMilli(),
		})
		h.hub.PublishToRoom(result.ConversationID, out, nil)
	}

	c.JSON(http.StatusOK, gin.H{"messageIds": result.MessageIDs})
}

func (h *messageHandler) Forward(c *gin.Context) {
	var req struct {
		MessageID      string `json:"messageId" binding:"required"`
		ConversationID string `json:"conversationId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.InvalidArgument("messageId and conversationId are required"))
		return
	}

	result, err := h.messages.Forward(c.Request.Context(), CurrentUser(c).ID.Hex(), req.MessageID, req.ConversationID)
	if err != nil {
		fail(c, err)
		return
	}

	out := event.NewWsEvent(event.EventChatMessage, event.MessageEvent{Message: result.View})
	h.hub.PublishToRoom(req.ConversationID, out, nil)

	c.JSON(http.StatusCreated, gin.H{"message": result.View})
}

func (h *messageHandler) Delete(c *gin.Context) {
	messageID := c.Param("id")
	scope := c.DefaultQuery("scope", event.DeleteScopeMe)
	me := CurrentUser(c)

	switch scope {
	case event.DeleteScopeEveryone:
		result, err := h.messages.DeleteForEveryone(c.Request.Context(), me.ID.Hex(), messageID)
		if err != nil {
			fail(c, err)
			return
		}
		out := event.NewWsEvent(event.EventChatDeleted, event.DeletedEvent{
			ConversationID: result.ConversationID,
			MessageID:      result.MessageID,
			DeletedBy:      me.ID.Hex(),
		})
		h.hub.PublishToRoom(result.ConversationID, out, nil)
		c.JSON(http.StatusOK, gin.H{"messageId": result.MessageID, "scope": scope})
	case event.DeleteScopeMe:
		result, err := h.messages.DeleteForMe(c.Request.Context(), me.ID.Hex(), messageID)
		if err != nil {
			fail(c, err)
			return
		}
		out := event.NewWsEvent(event.EventChatDeleted, event.DeletedEvent{
			ConversationID: result.ConversationID,
			MessageID:      result.MessageID,
			DeletedBy:      me.ID.Hex(),
		})
		h.hub.SendToUser(me.ID.Hex(), out)
		c.JSON(http.StatusOK, gin.H{"messageId": result.MessageID, "scope": scope})
	default:
		fail(c, apperr.InvalidArgument("scope must be 'me' or 'everyone'"))
	}
}

func (h *messageHandler) Clear(c *gin.Context) {
	var req struct {
		ConversationID string `json:"conversationId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.InvalidArgument("conversationId is required"))
		return
	}

	if err := h.messages.ClearConversation(c.Request.Context(), CurrentUser(c).ID.Hex(), req.ConversationID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}
