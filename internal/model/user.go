package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a user document in MongoDB. Users are created on first
// successful credential verification, keyed by phone number.
type User struct {
	ID           primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Phone        string               `json:"phone" bson:"phone"`
	Name         *string              `json:"name" bson:"name"`
	About        string               `json:"about" bson:"about"`
	Avatar       *string              `json:"avatar" bson:"avatar"`
	IsOnline     bool                 `json:"isOnline" bson:"is_online"`
	LastSeen     *time.Time           `json:"lastSeen" bson:"last_seen"`
	BlockedUsers []primitive.ObjectID `json:"blockedUsers" bson:"blocked_users"`
	BlockedBy    []primitive.ObjectID `json:"blockedBy" bson:"blocked_by"`
	IsActive     bool                 `json:"isActive" bson:"is_active"`
	CreatedAt    time.Time            `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time            `json:"updatedAt" bson:"updated_at"`
}

// HasBlocked reports whether u has blocked the given user.
func (u *User) HasBlocked(id primitive.ObjectID) bool {
	for _, b := range u.BlockedUsers {
		if b == id {
			return true
		}
	}
	return false
}

// IsBlockedBy reports whether the given user has blocked u.
func (u *User) IsBlockedBy(id primitive.ObjectID) bool {
	for _, b := range u.BlockedBy {
		if b == id {
			return true
		}
	}
	return false
}

// DisplayName returns the user's name, falling back to the phone number.
func (u *User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Phone
}
