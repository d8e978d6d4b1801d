package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatMeta is a per-user, per-conversation annotation. One document per
// (user, chat) pair, created lazily on first access with IsRead=true.
type ChatMeta struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	User          primitive.ObjectID `json:"user" bson:"user"`
	Chat          primitive.ObjectID `json:"chat" bson:"chat"`
	IsRead        bool               `json:"isRead" bson:"is_read"`
	IsFavorite    bool               `json:"isFavorite" bson:"is_favorite"`
	Muted         bool               `json:"muted" bson:"muted"`
	Archived      bool               `json:"archived" bson:"archived"`
	LastClearedAt *time.Time         `json:"lastClearedAt" bson:"last_cleared_at"`
	CreatedAt     time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updated_at"`
}

// DefaultChatMeta returns the lazily-created annotation for a pair.
func DefaultChatMeta(user, chat primitive.ObjectID) *ChatMeta {
	now := time.Now()
	return &ChatMeta{
		User:      user,
		Chat:      chat,
		IsRead:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
