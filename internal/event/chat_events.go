package event

import (
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/model"
)

// Chat Event Types - Client to Server
const (
	// EventChatSend - sender submits a new message
	EventChatSend = "chat:send"

	// EventChatTyping - sender started typing in a conversation
	EventChatTyping = "chat:typing"

	// EventChatStopTyping - sender stopped typing
	EventChatStopTyping = "chat:stop_typing"

	// EventChatSeen - recipient viewed a conversation
	EventChatSeen = "chat:seen"

	// EventChatDelivered - recipient's client acknowledged receipt
	EventChatDelivered = "chat:delivered"

	// EventChatReact - toggle a reaction on a message
	EventChatReact = "chat:react"

	// EventChatDelete - delete a message (scope "me" or "everyone")
	EventChatDelete = "chat:delete"
)

// Chat Event Types - Server to Client
const (
	// EventChatMessage - a committed message fanned out to the room
	EventChatMessage = "chat:message"

	// EventChatMessageDelivered - delivery receipts for a set of messages
	EventChatMessageDelivered = "chat:message_delivered"

	// EventChatMessageSeen - read receipts for a set of messages
	EventChatMessageSeen = "chat:message_seen"

	// EventChatReacted - a message's reaction list changed
	EventChatReacted = "chat:reacted"

	// EventChatDeleted - a message was deleted for everyone
	EventChatDeleted = "chat:deleted"

	// EventConversationNew - a conversation the recipient belongs to was created
	EventConversationNew = "conversation:new"

	// EventMembershipChanged - group membership or metadata changed
	EventMembershipChanged = "membership:changed"

	// EventPresenceChanged - a user went online or offline
	EventPresenceChanged = "presence:changed"

	// EventChatError - a client event was rejected
	EventChatError = "chat:error"
)

// Delete scopes
const (
	DeleteScopeMe       = "me"
	DeleteScopeEveryone = "everyone"
)

// Membership change kinds
const (
	MembershipAdded   = "added"
	MembershipRemoved = "removed"
	MembershipLeft    = "left"
	MembershipUpdated = "updated"
)

// -----------------------------------------------------------------
// Payloads - Client to Server
// -----------------------------------------------------------------

// SendPayload carries a new message submitted over the socket.
type SendPayload struct {
	ConversationID string           `json:"conversationId"`
	Text           string           `json:"text,omitempty"`
	Media          *model.Media     `json:"media,omitempty"`
	VoiceNote      *model.VoiceNote `json:"voiceNote,omitempty"`
	ReplyTo        string           `json:"replyTo,omitempty"`
	TempID         string           `json:"tempId,omitempty"`
}

// TypingPayload marks the start or end of typing in a conversation.
type TypingPayload struct {
	ConversationID string `json:"conversationId"`
}

// SeenPayload marks every visible message in a conversation as seen.
type SeenPayload struct {
	ConversationID string `json:"conversationId"`
}

// DeliveredPayload acknowledges receipt of a set of messages.
type DeliveredPayload struct {
	ConversationID string   `json:"conversationId"`
	MessageIDs     []string `json:"messageIds"`
}

// ReactPayload toggles the sender's reaction on a message.
type ReactPayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	Emoji          string `json:"emoji"`
}

// DeletePayload deletes a message for the requester or for everyone.
type DeletePayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	Scope          string `json:"scope"`
}

// -----------------------------------------------------------------
// Payloads - Server to Client
// -----------------------------------------------------------------

// MessageEvent fans a committed message out to the room.
type MessageEvent struct {
	Message model.MessageView `json:"message"`
	TempID  string            `json:"tempId,omitempty"`
}

// DeliveredEvent notifies the room of delivery receipts.
type DeliveredEvent struct {
	ConversationID string   `json:"conversationId"`
	MessageIDs     []string `json:"messageIds"`
	DeliveredTo    string   `json:"deliveredTo"`
	Timestamp      int64    `json:"timestamp"`
}

// SeenEvent notifies the room of read receipts.
type SeenEvent struct {
	ConversationID string   `json:"conversationId"`
	MessageIDs     []string `json:"messageIds"`
	SeenBy         string   `json:"seenBy"`
	Timestamp      int64    `json:"timestamp"`
}

// TypingEvent relays a transient typing indicator to other room members.
type TypingEvent struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	IsTyping       bool   `json:"isTyping"`
}

// ReactedEvent carries a message's full reaction list after a toggle.
type ReactedEvent struct {
	ConversationID string           `json:"conversationId"`
	MessageID      string           `json:"messageId"`
	Reactions      []model.Reaction `json:"reactions"`
}

// DeletedEvent notifies the room that a message was tombstoned.
type DeletedEvent struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	DeletedBy      string `json:"deletedBy"`
}

// ConversationNewEvent tells members to refresh their conversation list.
type ConversationNewEvent struct {
	Conversation model.Conversation `json:"conversation"`
}

// MembershipChangedEvent notifies a room of a membership or metadata change.
type MembershipChangedEvent struct {
	ConversationID string `json:"conversationId"`
	Change         string `json:"change"`
	UserID         string `json:"userId,omitempty"`
	ActorID        string `json:"actorId"`
}

// PresenceEvent notifies shared-conversation members of a presence change.
type PresenceEvent struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
	LastSeen int64  `json:"lastSeen,omitempty"`
}

// ErrorEvent reports a rejected client event with a stable code.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	TempID  string `json:"tempId,omitempty"`
}
