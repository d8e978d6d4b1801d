package repo

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/apperr"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/model"
)

func duplicateKeyError() error {
	return mongo.WriteException{
		WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}},
	}
}

func TestResolveDirectUpsert(t *testing.T) {
	r := &conversationRepository{logger: zap.NewNop()}
	now := time.Now().Truncate(time.Millisecond)
	key := model.DirectMemberKey(primitive.NewObjectID(), primitive.NewObjectID())

	noRefetch := func() (*model.Conversation, error) {
		t.Fatal("refetch must only run on a duplicate-key loss")
		return nil, nil
	}

	t.Run("fresh insert reports created", func(t *testing.T) {
		conv := &model.Conversation{ID: primitive.NewObjectID(), CreatedAt: now}

		got, created, err := r.resolveDirectUpsert(conv, nil, now, key, noRefetch)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, conv.ID, got.ID)
	})

	t.Run("existing document reports not created", func(t *testing.T) {
		conv := &model.Conversation{ID: primitive.NewObjectID(), CreatedAt: now.Add(-time.Hour)}

		_, created, err := r.resolveDirectUpsert(conv, nil, now, key, noRefetch)
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("duplicate-key loser refetches the winner", func(t *testing.T) {
		winner := &model.Conversation{ID: primitive.NewObjectID(), CreatedAt: now.Add(-time.Millisecond)}

		got, created, err := r.resolveDirectUpsert(nil, duplicateKeyError(), now, key, func() (*model.Conversation, error) {
			return winner, nil
		})
		require.NoError(t, err)
		assert.False(t, created, "both racers must converge on one document")
		assert.Equal(t, winner.ID, got.ID)
	})

	t.Run("duplicate-key with failing refetch surfaces conflict", func(t *testing.T) {
		_, _, err := r.resolveDirectUpsert(nil, duplicateKeyError(), now, key, func() (*model.Conversation, error) {
			return nil, mongo.ErrNoDocuments
		})
		assert.True(t, apperr.Is(err, apperr.CodeConflict))
	})

	t.Run("other errors surface internal", func(t *testing.T) {
		_, _, err := r.resolveDirectUpsert(nil, errors.New("connection reset"), now, key, noRefetch)
		assert.True(t, apperr.Is(err, apperr.CodeInternal))
	})
}
