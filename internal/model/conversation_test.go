package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDirectMemberKey(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	// order of arguments must not matter
	assert.Equal(t, DirectMemberKey(a, b), DirectMemberKey(b, a))
	assert.NotEqual(t, DirectMemberKey(a, b), DirectMemberKey(a, a))
	assert.Contains(t, DirectMemberKey(a, b), ":")
}

func TestConversationMembership(t *testing.T) {
	admin := primitive.NewObjectID()
	member := primitive.NewObjectID()
	outsider := primitive.NewObjectID()

	conv := Conversation{
		IsGroup:    true,
		Members:    []primitive.ObjectID{admin, member},
		GroupAdmin: &admin,
	}

	assert.True(t, conv.HasMember(admin))
	assert.True(t, conv.HasMember(member))
	assert.False(t, conv.HasMember(outsider))

	assert.True(t, conv.IsAdmin(admin))
	assert.False(t, conv.IsAdmin(member))
}

func TestConversationVisibilityFlags(t *testing.T) {
	user := primitive.NewObjectID()
	other := primitive.NewObjectID()

	conv := Conversation{
		HiddenFor: []primitive.ObjectID{user},
		PinnedBy:  []primitive.ObjectID{other},
	}

	assert.True(t, conv.IsHiddenFor(user))
	assert.False(t, conv.IsHiddenFor(other))
	assert.True(t, conv.IsPinnedBy(other))
	assert.False(t, conv.IsPinnedBy(user))
}

func TestNewConversationSummary(t *testing.T) {
	user := primitive.NewObjectID()
	conv := Conversation{PinnedBy: []primitive.ObjectID{user}}

	t.Run("nil meta defaults to read", func(t *testing.T) {
		s := NewConversationSummary(&conv, nil)
		assert.True(t, s.IsRead)
		assert.False(t, s.Pinned)
	})

	t.Run("meta flags carried over", func(t *testing.T) {
		meta := &ChatMeta{User: user, IsRead: false, Muted: true, Archived: true}
		s := NewConversationSummary(&conv, meta)
		assert.False(t, s.IsRead)
		assert.True(t, s.Muted)
		assert.True(t, s.Archived)
		assert.True(t, s.Pinned)
	})
}
