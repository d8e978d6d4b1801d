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

type ConversationRepository interface {
	FindByID(ctx context.Context, id string) (*model.Conversation, error)
	FindByInviteToken(ctx context.Context, token string) (*model.Conversation, error)
	GetOrCreateDirect(ctx context.Context, a, b primitive.ObjectID) (*model.Conversation, bool, error)
	CreateGroup(ctx context.Context, conv *model.Conversation) (*model.Conversation, error)
	ListForUser(ctx context.Context, user primitive.ObjectID) ([]model.Conversation, error)
	MemberConversationIDs(ctx context.Context, user primitive.ObjectID) ([]primitive.ObjectID, error)
	AddMember(ctx context.Context, id, user primitive.ObjectID) error
	RemoveMember(ctx context.Context, id, user primitive.ObjectID) error
	SetAdmin(ctx context.Context, id, admin primitive.ObjectID) error
	SetGroupInfo(ctx context.Context, id primitive.ObjectID, fields bson.M) error
	SetHidden(ctx context.Context, id, user primitive.ObjectID, hidden bool) error
	SetPinned(ctx context.Context, id, user primitive.ObjectID, pinned bool) error
	SetDeleted(ctx context.Context, id primitive.ObjectID) error
	UpdateLastMessage(ctx context.Context, id primitive.ObjectID, lm model.LastMessage) error
}

type conversationRepository struct {
	con       *mongo.Database
	mongoRepo *db.Repository[model.Conversation]
	logger    *zap.Logger
}

func NewConversationRepository(con *mongo.Database, repo *db.Repository[model.Conversation], logger *zap.Logger) ConversationRepository {
	return &conversationRepository{
		con:       con,
		mongoRepo: repo,
		logger:    logger,
	}
}

func (r *conversationRepository) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	if _, err := parseID(id); err != nil {
		return nil, err
	}

	conv, err := r.mongoRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("conversation not found")
		}
		r.logger.Error("failed to fetch conversation", zap.String("conversation_id", id), zap.Error(err))
		return nil, apperr.Internal("conversation lookup failed").WithCause(err)
	}
	if conv.IsDeleted {
		return nil, apperr.NotFound("conversation not found")
	}
	return conv, nil
}

func (r *conversationRepository) FindByInviteToken(ctx context.Context, token string) (*model.Conversation, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("invite_token", token).Eq("is_deleted", false).Build()
	conv, err := r.mongoRepo.FindOne(ctx, filter)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("invite not found")
		}
		r.logger.Error("failed to resolve invite token", zap.Error(err))
		return nil, apperr.Internal("invite lookup failed").WithCause(err)
	}
	return conv, nil
}

// GetOrCreateDirect finds or creates the single direct conversation for an
// unordered member pair. The unique index on member_key makes the upsert
// race-safe: concurrent callers for the same pair all converge on one
// document, a duplicate-key loser simply refetches.
func (r *conversationRepository) GetOrCreateDirect(ctx context.Context, a, b primitive.ObjectID) (*model.Conversation, bool, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	key := model.DirectMemberKey(a, b)
	// Mongo stores timestamps at millisecond precision; truncate so the
	// round-tripped created_at compares equal below.
	now := time.Now().Truncate(time.Millisecond)

	filter := db.NewFilter().Eq("member_key", key).Eq("is_deleted", false).Build()
	update := bson.M{
		"$setOnInsert": bson.M{
			"is_group":   false,
			"members":    []primitive.ObjectID{a, b},
			"member_key": key,
			"hidden_for": []primitive.ObjectID{},
			"pinned_by":  []primitive.ObjectID{},
			"is_deleted": false,
			"created_at": now,
		},
		"$set": bson.M{"updated_at": now},
	}

	conv, err := r.mongoRepo.FindOneAndUpdate(ctx, filter, update, true)
	return r.resolveDirectUpsert(conv, err, now, key, func() (*model.Conversation, error) {
		return r.mongoRepo.FindOne(ctx, filter)
	})
}

// resolveDirectUpsert turns the raw upsert outcome into (conversation,
// created). A duplicate-key error means a concurrent caller inserted the
// pair's document first; the loser refetches and reports created=false.
func (r *conversationRepository) resolveDirectUpsert(conv *model.Conversation, err error, now time.Time, key string, refetch func() (*model.Conversation, error)) (*model.Conversation, bool, error) {
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			winner, ferr := refetch()
			if ferr != nil {
				return nil, false, apperr.Conflict("direct conversation creation race").WithCause(ferr)
			}
			return winner, false, nil
		}
		r.logger.Error("get-or-create direct failed", zap.String("member_key", key), zap.Error(err))
		return nil, false, apperr.Internal("conversation upsert failed").WithCause(err)
	}

	// $setOnInsert stamps created_at with this call's clock only when the
	// document was inserted by this call.
	created := conv.CreatedAt.Equal(now)
	if created {
		r.logger.Info("direct conversation created",
			zap.String("conversation_id", conv.ID.Hex()),
			zap.String("member_key", key),
		)
	}
	return conv, created, nil
}

func (r *conversationRepository) CreateGroup(ctx context.Context, conv *model.Conversation) (*model.Conversation, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	result, err := r.mongoRepo.Create(ctx, *conv)
	if err != nil {
		r.logger.Error("failed to create group", zap.String("group_name", conv.GroupName), zap.Error(err))
		return nil, apperr.Internal("group creation failed").WithCause(err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		conv.ID = oid
	}
	r.logger.Info("group created",
		zap.String("conversation_id", conv.ID.Hex()),
		zap.String("group_name", conv.GroupName),
		zap.Int("members", len(conv.Members)),
	)
	return conv, nil
}

// ListForUser returns the user's visible conversations newest-first.
func (r *conversationRepository) ListForUser(ctx context.Context, user primitive.ObjectID) ([]model.Conversation, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("members", user).
		Ne("hidden_for", user).
		Eq("is_deleted", false).
		Build()

	sort := bson.D{{Key: "last_message.timestamp", Value: -1}, {Key: "updated_at", Value: -1}}
	convs, err := r.mongoRepo.FindAll(ctx, filter, sort)
	if err != nil {
		r.logger.Error("failed to list conversations", zap.String("user_id", user.Hex()), zap.Error(err))
		return nil, apperr.Internal("conversation list failed").WithCause(err)
	}
	return convs, nil
}

// MemberConversationIDs returns every active conversation the user belongs
// to, hidden ones included. Hidden chats still receive live traffic.
func (r *conversationRepository) MemberConversationIDs(ctx context.Context, user primitive.ObjectID) ([]primitive.ObjectID, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("members", user).
		Eq("is_deleted", false).
		Build()

	ids, err := r.mongoRepo.IDs(ctx, filter)
	if err != nil {
		r.logger.Error("failed to list conversation ids", zap.String("user_id", user.Hex()), zap.Error(err))
		return nil, apperr.Internal("conversation list failed").WithCause(err)
	}
	return ids, nil
}

func (r *conversationRepository) AddMember(ctx context.Context, id, user primitive.ObjectID) error {
	return r.updateOne(ctx, id, bson.M{
		"$addToSet": bson.M{"members": user},
		"$set":      bson.M{"updated_at": time.Now()},
	})
}

func (r *conversationRepository) RemoveMember(ctx context.Context, id, user primitive.ObjectID) error {
	return r.updateOne(ctx, id, bson.M{
		"$pull": bson.M{"members": user},
		"$set":  bson.M{"updated_at": time.Now()},
	})
}

func (r *conversationRepository) SetAdmin(ctx context.Context, id, admin primitive.ObjectID) error {
	return r.updateOne(ctx, id, bson.M{
		"$set": bson.M{"group_admin": admin, "updated_at": time.Now()},
	})
}

// SetGroupInfo updates display metadata fields (name, avatar, description).
func (r *conversationRepository) SetGroupInfo(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updated_at"] = time.Now()
	return r.updateOne(ctx, id, bson.M{"$set": fields})
}

func (r *conversationRepository) SetHidden(ctx context.Context, id, user primitive.ObjectID, hidden bool) error {
	op := "$pull"
	if hidden {
		op = "$addToSet"
	}
	return r.updateOne(ctx, id, bson.M{op: bson.M{"hidden_for": user}})
}

func (r *conversationRepository) SetPinned(ctx context.Context, id, user primitive.ObjectID, pinned bool) error {
	op := "$pull"
	if pinned {
		op = "$addToSet"
	}
	return r.updateOne(ctx, id, bson.M{op: bson.M{"pinned_by": user}})
}

func (r *conversationRepository) SetDeleted(ctx context.Context, id primitive.ObjectID) error {
	return r.updateOne(ctx, id, bson.M{
		"$set": bson.M{"is_deleted": true, "updated_at": time.Now()},
	})
}

// UpdateLastMessage refreshes the conversation summary after a send. New
// traffic also clears hidden_for, so the chat reappears for users who hid it.
func (r *conversationRepository) UpdateLastMessage(ctx context.Context, id primitive.ObjectID, lm model.LastMessage) error {
	return r.updateOne(ctx, id, bson.M{
		"$set": bson.M{
			"last_message": lm,
			"hidden_for":   []primitive.ObjectID{},
			"updated_at":   time.Now(),
		},
	})
}

func (r *conversationRepository) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	result, err := r.mongoRepo.UpdateRaw(ctx, bson.M{"_id": id}, update)
	if err != nil {
		r.logger.Error("conversation update failed", zap.String("conversation_id", id.Hex()), zap.Error(err))
		return apperr.Internal("conversation update failed").WithCause(err)
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound("conversation not found")
	}
	return nil
}
