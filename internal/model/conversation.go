package model

import (
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation kinds
const (
	KindDirect = "direct"
	KindGroup  = "group"
)

// Last-message placeholders used when the newest message carries no text.
const (
	PlaceholderMedia     = "📎 Media"
	PlaceholderVoiceNote = "🎤 Voice note"
)

// Conversation represents a direct or group chat room in MongoDB.
type Conversation struct {
	ID          primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	IsGroup     bool                 `json:"isGroup" bson:"is_group"`
	Members     []primitive.ObjectID `json:"members" bson:"members"`
	MemberKey   string               `json:"-" bson:"member_key,omitempty"`
	GroupName   string               `json:"groupName" bson:"group_name"`
	GroupAvatar string               `json:"groupAvatar" bson:"group_avatar"`
	Description string               `json:"description" bson:"description"`
	GroupAdmin  *primitive.ObjectID  `json:"groupAdmin" bson:"group_admin"`
	LastMessage *LastMessage         `json:"lastMessage" bson:"last_message"`
	HiddenFor   []primitive.ObjectID `json:"-" bson:"hidden_for"`
	PinnedBy    []primitive.ObjectID `json:"pinnedBy" bson:"pinned_by"`
	InviteToken string               `json:"inviteToken,omitempty" bson:"invite_token,omitempty"`
	IsDeleted   bool                 `json:"-" bson:"is_deleted"`
	CreatedAt   time.Time            `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time            `json:"updatedAt" bson:"updated_at"`
}

// LastMessage is the denormalized preview of the newest message.
type LastMessage struct {
	Text      string             `json:"text" bson:"text"`
	Sender    primitive.ObjectID `json:"sender" bson:"sender"`
	Timestamp time.Time          `json:"timestamp" bson:"timestamp"`
}

// Kind returns the conversation kind string.
func (c *Conversation) Kind() string {
	if c.IsGroup {
		return KindGroup
	}
	return KindDirect
}

// HasMember reports whether the given user belongs to the conversation.
func (c *Conversation) HasMember(id primitive.ObjectID) bool {
	for _, m := range c.Members {
		if m == id {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the given user is the group admin.
func (c *Conversation) IsAdmin(id primitive.ObjectID) bool {
	return c.GroupAdmin != nil && *c.GroupAdmin == id
}

// IsHiddenFor reports whether the given user has hidden the conversation.
func (c *Conversation) IsHiddenFor(id primitive.ObjectID) bool {
	for _, h := range c.HiddenFor {
		if h == id {
			return true
		}
	}
	return false
}

// IsPinnedBy reports whether the given user has pinned the conversation.
func (c *Conversation) IsPinnedBy(id primitive.ObjectID) bool {
	for _, p := range c.PinnedBy {
		if p == id {
			return true
		}
	}
	return false
}

// DirectMemberKey builds the canonical key for an unordered member pair.
// A unique index on this key is what enforces at most one direct
// conversation per pair under concurrent creation.
func DirectMemberKey(a, b primitive.ObjectID) string {
	ids := []string{a.Hex(), b.Hex()}
	sort.Strings(ids)
	return strings.Join(ids, ":")
}
