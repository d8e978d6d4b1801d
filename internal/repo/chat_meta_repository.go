package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/apperr"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/db"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/model"
)

type ChatMetaRepository interface {
	Get(ctx context.Context, user, chat primitive.ObjectID) (*model.ChatMeta, error)
	ForUser(ctx context.Context, user primitive.ObjectID) (map[primitive.ObjectID]*model.ChatMeta, error)
	Set(ctx context.Context, user, chat primitive.ObjectID, fields bson.M) (*model.ChatMeta, error)
}

type chatMetaRepository struct {
	con       *mongo.Database
	mongoRepo *db.Repository[model.ChatMeta]
	logger    *zap.Logger
}

func NewChatMetaRepository(con *mongo.Database, repo *db.Repository[model.ChatMeta], logger *zap.Logger) ChatMetaRepository {
	return &chatMetaRepository{
		con:       con,
		mongoRepo: repo,
		logger:    logger,
	}
}

// Get returns the annotation for a (user, chat) pair. A pair that has
// never been written reads as the lazily-created default.
func (r *chatMetaRepository) Get(ctx context.Context, user, chat primitive.ObjectID) (*model.ChatMeta, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("user", user).Eq("chat", chat).Build()
	meta, err := r.mongoRepo.FindOne(ctx, filter)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.DefaultChatMeta(user, chat), nil
		}
		r.logger.Error("chat meta lookup failed",
			zap.String("user_id", user.Hex()),
			zap.String("chat_id", chat.Hex()),
			zap.Error(err),
		)
		return nil, apperr.Internal("chat meta lookup failed").WithCause(err)
	}
	return meta, nil
}

// ForUser returns every annotation the user has, keyed by conversation.
func (r *chatMetaRepository) ForUser(ctx context.Context, user primitive.ObjectID) (map[primitive.ObjectID]*model.ChatMeta, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("user", user).Build()
	metas, err := r.mongoRepo.FindAll(ctx, filter)
	if err != nil {
		r.logger.Error("chat meta list failed", zap.String("user_id", user.Hex()), zap.Error(err))
		return nil, apperr.Internal("chat meta list failed").WithCause(err)
	}

	byChat := make(map[primitive.ObjectID]*model.ChatMeta, len(metas))
	for i := range metas {
		byChat[metas[i].Chat] = &metas[i]
	}
	return byChat, nil
}

// Set upserts annotation fields for the pair. The unique (user, chat)
// index plus upsert gives the lazy-creation semantics: first write creates
// the document with defaults, later writes toggle in place.
func (r *chatMetaRepository) Set(ctx context.Context, user, chat primitive.ObjectID, fields bson.M) (*model.ChatMeta, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	now := time.Now()
	fields["updated_at"] = now

	onInsert := bson.M{
		"user":       user,
		"chat":       chat,
		"created_at": now,
	}
	// Lazily-created documents default to read; skip when the caller is
	// setting the flag itself ($set and $setOnInsert may not share a field).
	if _, ok := fields["is_read"]; !ok {
		onInsert["is_read"] = true
	}

	filter := db.NewFilter().Eq("user", user).Eq("chat", chat).Build()
	update := bson.M{
		"$set":         fields,
		"$setOnInsert": onInsert,
	}

	meta, err := r.mongoRepo.FindOneAndUpdate(ctx, filter, update, true)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Concurrent first writes for the pair; retry against the
			// now-existing document.
			meta, rerr := r.mongoRepo.FindOneAndUpdate(ctx, filter, update, false)
			if rerr != nil {
				return nil, apperr.Internal("chat meta update failed").WithCause(rerr)
			}
			return meta, nil
		}
		r.logger.Error("chat meta upsert failed",
			zap.String("user_id", user.Hex()),
			zap.String("chat_id", chat.Hex()),
			zap.Error(err),
		)
		return nil, apperr.Internal("chat meta update failed").WithCause(err)
	}
	return meta, nil
}
