package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Media kinds derived from the attachment content type.
const (
	MediaKindImage = "image"
	MediaKindVideo = "video"
	MediaKindAudio = "audio"
	MediaKindFile  = "file"
)

// Message represents a chat message in MongoDB.
type Message struct {
	ID                 primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	ConversationID     primitive.ObjectID   `json:"conversationId" bson:"conversation_id"`
	Sender             primitive.ObjectID   `json:"sender" bson:"sender"`
	Text               string               `json:"text,omitempty" bson:"text,omitempty"`
	Media              *Media               `json:"media,omitempty" bson:"media,omitempty"`
	VoiceNote          *VoiceNote           `json:"voiceNote,omitempty" bson:"voice_note,omitempty"`
	ReplyTo            *primitive.ObjectID  `json:"replyTo,omitempty" bson:"reply_to,omitempty"`
	ForwardFrom        *ForwardSnapshot     `json:"forwardFrom,omitempty" bson:"forward_from,omitempty"`
	SeenBy             []primitive.ObjectID `json:"seenBy" bson:"seen_by"`
	DeliveredTo        []primitive.ObjectID `json:"deliveredTo" bson:"delivered_to"`
	Reactions          []Reaction           `json:"reactions" bson:"reactions"`
	DeletedForEveryone bool                 `json:"deletedForEveryone" bson:"deleted_for_everyone"`
	DeletedFor         []primitive.ObjectID `json:"-" bson:"deleted_for"`
	TempID             string               `json:"tempId,omitempty" bson:"temp_id,omitempty"`
	CreatedAt          time.Time            `json:"createdAt" bson:"created_at"`
	UpdatedAt          time.Time            `json:"updatedAt" bson:"updated_at"`
}

// Media is an opaque blob reference plus a coarse kind classification.
type Media struct {
	URL  string `json:"url" bson:"url"`
	Kind string `json:"kind" bson:"kind"`
}

// VoiceNote is a voice recording reference with its duration in seconds.
type VoiceNote struct {
	URL      string  `json:"url" bson:"url"`
	Duration float64 `json:"duration" bson:"duration"`
}

// ForwardSnapshot preserves the original message at forward time, so the
// copy survives deletion of the source.
type ForwardSnapshot struct {
	MessageID    string     `json:"messageId" bson:"message_id"`
	SenderID     string     `json:"senderId" bson:"sender_id"`
	SenderName   string     `json:"senderName" bson:"sender_name"`
	SenderAvatar string     `json:"senderAvatar,omitempty" bson:"sender_avatar,omitempty"`
	Text         string     `json:"text,omitempty" bson:"text,omitempty"`
	Media        *Media     `json:"media,omitempty" bson:"media,omitempty"`
	VoiceNote    *VoiceNote `json:"voiceNote,omitempty" bson:"voice_note,omitempty"`
}

// Reaction represents one user's reaction on a message. At most one
// reaction per user is kept.
type Reaction struct {
	User  primitive.ObjectID `json:"user" bson:"user"`
	Emoji string             `json:"emoji" bson:"emoji"`
}

// HasContent reports whether the message carries any body at all.
func (m *Message) HasContent() bool {
	return m.Text != "" || m.Media != nil || m.VoiceNote != nil || m.ForwardFrom != nil
}

// SeenByUser reports whether the given user is in the seen set.
func (m *Message) SeenByUser(id primitive.ObjectID) bool {
	for _, s := range m.SeenBy {
		if s == id {
			return true
		}
	}
	return false
}

// DeletedForUser reports whether the given user soft-deleted the message.
func (m *Message) DeletedForUser(id primitive.ObjectID) bool {
	for _, d := range m.DeletedFor {
		if d == id {
			return true
		}
	}
	return false
}

// Tombstone clears the message body in place. Delivery and seen history
// is preserved; the flag is irreversible.
func (m *Message) Tombstone() {
	m.Text = ""
	m.Media = nil
	m.VoiceNote = nil
	m.ForwardFrom = nil
	m.DeletedForEveryone = true
}

// Preview returns the last-message summary text for the conversation list.
func (m *Message) Preview() string {
	switch {
	case m.DeletedForEveryone:
		return ""
	case m.Text != "":
		return m.Text
	case m.VoiceNote != nil:
		return PlaceholderVoiceNote
	case m.Media != nil:
		return PlaceholderMedia
	case m.ForwardFrom != nil:
		return m.ForwardFrom.Preview()
	default:
		return ""
	}
}

// Preview returns the summary text for a forwarded message body.
func (f *ForwardSnapshot) Preview() string {
	switch {
	case f.Text != "":
		return f.Text
	case f.VoiceNote != nil:
		return PlaceholderVoiceNote
	default:
		return PlaceholderMedia
	}
}

// ToggleReaction applies one user's reaction to a reaction list and returns
// the updated list. Reacting with the emoji the user already has removes it;
// a different emoji replaces the existing one; otherwise the reaction is
// appended. The second return value is false when nothing changed.
func ToggleReaction(reactions []Reaction, user primitive.ObjectID, emoji string) ([]Reaction, bool) {
	if emoji == "" {
		return reactions, false
	}
	for i, r := range reactions {
		if r.User != user {
			continue
		}
		if r.Emoji == emoji {
			return append(reactions[:i:i], reactions[i+1:]...), true
		}
		out := make([]Reaction, len(reactions))
		copy(out, reactions)
		out[i].Emoji = emoji
		return out, true
	}
	return append(reactions[:len(reactions):len(reactions)], Reaction{User: user, Emoji: emoji}), true
}
