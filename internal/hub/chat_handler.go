package hub

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/apperr"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/event"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/service"
)

// handlerTimeout bounds one inbound event's database work. Workers are
// shared, a stuck handler stalls the whole pool.
const handlerTimeout = 10 * time.Second

// ChatHandler processes chat events arriving over WebSocket connections
// and fans the results back out through the hub.
type ChatHandler struct {
	hub      *Hub
	messages service.MessageService
	presence *Presence
	logger   *zap.Logger
}

// NewChatHandler creates a new chat handler instance
// Note: Call SetHub() after creating Hub to complete the initialization
func NewChatHandler(messages service.MessageService, presence *Presence, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		messages: messages,
		presence: presence,
		logger:   logger,
	}
}

// SetHub sets the hub reference. Must be called after Hub is created.
func (ch *ChatHandler) SetHub(hub *Hub) {
	ch.hub = hub
}

// HandleChatEvent processes chat-related WebSocket events
func (ch *ChatHandler) HandleChatEvent(ev event.WsEvent, c *Client) {
	switch ev.Event {
	case event.EventChatSend:
		ch.handleSend(ev, c)
	case event.EventChatTyping:
		ch.handleTyping(ev, c, true)
	case event.EventChatStopTyping:
		ch.handleTyping(ev, c, false)
	case event.EventChatSeen:
		ch.handleSeen(ev, c)
	case event.EventChatDelivered:
		ch.handleDelivered(ev, c)
	case event.EventChatReact:
		ch.handleReact(ev, c)
	case event.EventChatDelete:
		ch.handleDelete(ev, c)
	default:
		ch.logger.Warn("unknown chat event type", zap.String("event", ev.Event))
	}
}

func (ch *ChatHandler) handleSend(ev event.WsEvent, c *Client) {
	var payload event.SendPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		ch.sendError(c, apperr.InvalidArgument("malformed send payload"), "")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	result, err := ch.messages.Send(ctx, service.SendInput{
		ConversationID: payload.ConversationID,
		SenderID:       c.UserID(),
		Text:           payload.Text,
		Media:          payload.Media,
		VoiceNote:      payload.VoiceNote,
		ReplyTo:        payload.ReplyTo,
		TempID:         payload.TempID,
	})
	if err != nil {
		ch.sendError(c, err, payload.TempID)
		return
	}

	// Recipients who hid the chat were just un-hidden; their clients may
	// not be in the room yet when the membership predates this node.
	out := event.NewWsEvent(event.EventChatMessage, event.MessageEvent{
		Message: result.View,
		TempID:  payload.TempID,
	})
	ch.hub.PublishToRoom(payload.ConversationID, out, nil)
}

// handleTyping relays a transient indicator. Room membership is the only
// check; nothing is persisted and the originator is not echoed.
func (ch *ChatHandler) handleTyping(ev event.WsEvent, c *Client, isTyping bool) {
	var payload event.TypingPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		ch.sendError(c, apperr.InvalidArgument("malformed typing payload"), "")
		return
	}
	if !ch.inRoom(c, payload.ConversationID) {
		ch.sendError(c, apperr.Forbidden("not a member of this conversation"), "")
		return
	}

	out := event.NewWsEvent(eventNameForTyping(isTyping), event.TypingEvent{
		ConversationID: payload.ConversationID,
		UserID:         c.UserID(),
		IsTyping:       isTyping,
	})
	ch.hub.PublishToRoom(payload.ConversationID, out, func(peer *Client) bool {
		return peer.UserID() == c.UserID()
	})
}

func (ch *ChatHandler) handleSeen(ev event.WsEvent, c *Client) {
	var payload event.SeenPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		ch.sendError(c, apperr.InvalidArgument("malformed seen payload"), "")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	result, err := ch.messages.MarkSeen(ctx, c.UserID(), payload.ConversationID)
	if err != nil {
		ch.sendError(c, err, "")
		return
	}
	if len(result.MessageIDs) == 0 {
		// nothing newly seen, keep the room quiet
		return
	}

	out := event.NewWsEvent(event.EventChatMessageSeen, event.SeenEvent{
		ConversationID: result.ConversationID,
		MessageIDs:     result.MessageIDs,
		SeenBy:         c.UserID(),
		Timestamp:      time.Now().UnixMilli(),
	})
	ch.hub.PublishToRoom(result.ConversationID, out, nil)
}

func (ch *ChatHandler) handleDelivered(ev event.WsEvent, c *Client) {
	var payload event.DeliveredPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		ch.sendError(c, apperr.InvalidArgument("malformed delivered payload"), "")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	result, err := ch.messages.MarkDelivered(ctx, c.UserID(), payload.ConversationID, payload.MessageIDs)
	if err != nil {
		ch.sendError(c, err, "")
		return
	}
	if len(result.MessageIDs) == 0 {
		return
	}

	out := event.NewWsEvent(event.EventChatMessageDelivered, event.DeliveredEvent{
		ConversationID: result.ConversationID,
		MessageIDs:     result.MessageIDs,
		DeliveredTo:    c.UserID(),
		Timestamp:      time.Now().UnixMilli(),
	})
	ch.hub.PublishToRoom(result.ConversationID, out, nil)
}

func (ch *ChatHandler) handleReact(ev event.WsEvent, c *Client) {
	var payload event.ReactPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		ch.sendError(c, apperr.InvalidArgument("malformed react payload"), "")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	result, err := ch.messages.React(ctx, c.UserID(), payload.MessageID, payload.Emoji)
	if err != nil {
		ch.sendError(c, err, "")
		return
	}

	out := event.NewWsEvent(event.EventChatReacted, event.ReactedEvent{
		ConversationID: result.ConversationID,
		MessageID:      result.MessageID,
		Reactions:      result.Reactions,
	})
	ch.hub.PublishToRoom(result.ConversationID, out, nil)
}

func (ch *ChatHandler) handleDelete(ev event.WsEvent, c *Client) {
	var payload event.DeletePayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		ch.sendError(c, apperr.InvalidArgument("malformed delete payload"), "")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	switch payload.Scope {
	case event.DeleteScopeEveryone:
		result, err := ch.messages.DeleteForEveryone(ctx, c.UserID(), payload.MessageID)
		if err != nil {
			ch.sendError(c, err, "")
			return
		}
		out := event.NewWsEvent(event.EventChatDeleted, event.DeletedEvent{
			ConversationID: result.ConversationID,
			MessageID:      result.MessageID,
			DeletedBy:      c.UserID(),
		})
		ch.hub.PublishToRoom(result.ConversationID, out, nil)
	case event.DeleteScopeMe:
		result, err := ch.messages.DeleteForMe(ctx, c.UserID(), payload.MessageID)
		if err != nil {
			ch.sendError(c, err, "")
			return
		}
		// scope "me" only concerns the requester's own devices
		out := event.NewWsEvent(event.EventChatDeleted, event.DeletedEvent{
			ConversationID: result.ConversationID,
			MessageID:      result.MessageID,
			DeletedBy:      c.UserID(),
		})
		ch.hub.SendToUser(c.UserID(), out)
	default:
		ch.sendError(c, apperr.InvalidArgument("delete scope must be 'me' or 'everyone'"), "")
	}
}

// handleDisconnect runs when a client leaves the hub. The presence
// transition broadcasts only when this was the user's final connection.
func (ch *ChatHandler) handleDisconnect(c *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	wentOffline, lastSeen := ch.presence.Disconnect(ctx, c.UserID(), c.ID)
	if !wentOffline {
		return
	}

	out := event.NewWsEvent(event.EventPresenceChanged, event.PresenceEvent{
		UserID:   c.UserID(),
		IsOnline: false,
		LastSeen: lastSeen.UnixMilli(),
	})
	ch.hub.BroadcastToRooms(c.Rooms(), out, c.UserID())
}

func (ch *ChatHandler) inRoom(c *Client, roomID string) bool {
	c.roomsMu.RLock()
	defer c.roomsMu.RUnlock()
	_, ok := c.rooms[roomID]
	return ok
}

func (ch *ChatHandler) sendError(c *Client, err error, tempID string) {
	ch.logger.Debug("chat event rejected",
		zap.String("client_id", c.ID),
		zap.String("code", apperr.CodeOf(err)),
		zap.Error(err),
	)
	out := event.NewWsEvent(event.EventChatError, event.ErrorEvent{
		Code:    apperr.CodeOf(err),
		Message: apperr.MessageOf(err),
		TempID:  tempID,
	})
	c.SafeSend(out, sendTimeout)
}

func eventNameForTyping(isTyping bool) string {
	if isTyping {
		return event.EventChatTyping
	}
	return event.EventChatStopTyping
}
