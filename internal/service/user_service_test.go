package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/apperr"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/model"
)

func newUserFixture(t *testing.T) (UserService, *fakeUserRepo, *model.User, *model.User) {
	t.Helper()

	lastSeen := time.Now().Add(-time.Minute)
	avatar := "/uploads/bob.png"
	aliceName := "Alice"
	bobName := "Bob"
	alice := &model.User{ID: primitive.NewObjectID(), Phone: "+1555", Name: &aliceName, IsActive: true}
	bob := &model.User{
		ID:       primitive.NewObjectID(),
		Phone:    "+1556",
		Name:     &bobName,
		IsActive: true,
		IsOnline: true,
		LastSeen: &lastSeen,
		Avatar:   &avatar,
	}
	users := newFakeUserRepo(alice, bob)
	return NewUserService(users, zap.NewNop()), users, alice, bob
}

func TestUserGetWithholdsPresenceWhenBlocked(t *testing.T) {
	svc, _, alice, bob := newUserFixture(t)
	ctx := context.Background()

	seen, err := svc.Get(ctx, alice.ID.Hex(), bob.ID.Hex())
	require.NoError(t, err)
	assert.True(t, seen.IsOnline)
	assert.NotNil(t, seen.LastSeen)
	assert.NotNil(t, seen.Avatar)

	require.NoError(t, svc.Block(ctx, alice.ID.Hex(), bob.ID.Hex()))

	// either direction of the block hides presence and avatar
	seen, err = svc.Get(ctx, alice.ID.Hex(), bob.ID.Hex())
	require.NoError(t, err)
	assert.False(t, seen.IsOnline)
	assert.Nil(t, seen.LastSeen)
	assert.Nil(t, seen.Avatar)

	seen, err = svc.Get(ctx, bob.ID.Hex(), alice.ID.Hex())
	require.NoError(t, err)
	assert.False(t, seen.IsOnline)
	assert.Nil(t, seen.LastSeen)
}

func TestUserGetSelfKeepsPresence(t *testing.T) {
	svc, _, alice, bob := newUserFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Block(ctx, alice.ID.Hex(), bob.ID.Hex()))

	self, err := svc.Get(ctx, bob.ID.Hex(), bob.ID.Hex())
	require.NoError(t, err)
	assert.True(t, self.IsOnline)
	assert.NotNil(t, self.Avatar)
}

func TestBlockSelfRejected(t *testing.T) {
	svc, _, alice, _ := newUserFixture(t)

	err := svc.Block(context.Background(), alice.ID.Hex(), alice.ID.Hex())
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
}

func TestBlockedListsBothSides(t *testing.T) {
	svc, _, alice, bob := newUserFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Block(ctx, alice.ID.Hex(), bob.ID.Hex()))

	lists, err := svc.BlockedLists(ctx, alice.ID.Hex())
	require.NoError(t, err)
	require.Len(t, lists.Blocked, 1)
	assert.Equal(t, bob.ID, lists.Blocked[0].ID)
	assert.Empty(t, lists.BlockedBy)

	lists, err = svc.BlockedLists(ctx, bob.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, lists.Blocked)
	require.Len(t, lists.BlockedBy, 1)
	assert.Equal(t, alice.ID, lists.BlockedBy[0].ID)
}

func TestUnblockRestoresBothSides(t *testing.T) {
	svc, _, alice, bob := newUserFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Block(ctx, alice.ID.Hex(), bob.ID.Hex()))
	require.NoError(t, svc.Unblock(ctx, alice.ID.Hex(), bob.ID.Hex()))

	lists, err := svc.BlockedLists(ctx, alice.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, lists.Blocked)

	lists, err = svc.BlockedLists(ctx, bob.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, lists.BlockedBy)

	seen, err := svc.Get(ctx, alice.ID.Hex(), bob.ID.Hex())
	require.NoError(t, err)
	assert.True(t, seen.IsOnline)
}

func TestUpdateProfile(t *testing.T) {
	svc, _, alice, _ := newUserFixture(t)
	ctx := context.Background()

	name := "  Alice M.  "
	about := "around"
	avatar := "/uploads/alice.png"
	user, err := svc.UpdateProfile(ctx, alice.ID.Hex(), ProfileUpdate{Name: &name, About: &about, Avatar: &avatar})
	require.NoError(t, err)
	require.NotNil(t, user.Name)
	assert.Equal(t, "Alice M.", *user.Name)
	assert.Equal(t, "around", user.About)
	require.NotNil(t, user.Avatar)
	assert.Equal(t, avatar, *user.Avatar)

	// partial update leaves the other fields alone
	newAbout := "busy"
	user, err = svc.UpdateProfile(ctx, alice.ID.Hex(), ProfileUpdate{About: &newAbout})
	require.NoError(t, err)
	assert.Equal(t, "Alice M.", *user.Name)
	assert.Equal(t, "busy", user.About)
}

func TestUpdateProfileRejectsEmpty(t *testing.T) {
	svc, _, alice, _ := newUserFixture(t)
	ctx := context.Background()

	_, err := svc.UpdateProfile(ctx, alice.ID.Hex(), ProfileUpdate{})
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))

	blank := "   "
	_, err = svc.UpdateProfile(ctx, alice.ID.Hex(), ProfileUpdate{Name: &blank})
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
}

func TestUpdateProfileUnknownUser(t *testing.T) {
	svc, _, _, _ := newUserFixture(t)

	about := "hello"
	_, err := svc.UpdateProfile(context.Background(), primitive.NewObjectID().Hex(), ProfileUpdate{About: &about})
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestSearch(t *testing.T) {
	svc, _, alice, bob := newUserFixture(t)
	ctx := context.Background()

	t.Run("blank query returns nothing", func(t *testing.T) {
		out, err := svc.Search(ctx, alice.ID.Hex(), "   ")
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("excludes the caller", func(t *testing.T) {
		out, err := svc.Search(ctx, alice.ID.Hex(), "+155")
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, bob.ID, out[0].ID)
	})
}
