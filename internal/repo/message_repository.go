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

var (
	ErrInvalidMessage   = errors.New("invalid message: message cannot be nil")
	ErrInvalidChannelID = errors.New("invalid conversation ID: cannot be empty")
)

const messagePageSize = 30

type MessageRepository interface {
	Insert(ctx context.Context, msg *model.Message) (*model.Message, error)
	FindByID(ctx context.Context, id string) (*model.Message, error)
	List(ctx context.Context, conversationID primitive.ObjectID, viewer primitive.ObjectID, clearedAfter *time.Time, page int64) (*db.PaginatedResult[model.Message], error)
	MarkDelivered(ctx context.Context, conversationID primitive.ObjectID, ids []primitive.ObjectID, recipient primitive.ObjectID) ([]primitive.ObjectID, error)
	MarkSeen(ctx context.Context, conversationID, recipient primitive.ObjectID) ([]primitive.ObjectID, error)
	SetReactions(ctx context.Context, id primitive.ObjectID, reactions []model.Reaction) error
	Tombstone(ctx context.Context, id primitive.ObjectID) error
	AddDeletedFor(ctx context.Context, id, user primitive.ObjectID) error
	AddDeletedForConversation(ctx context.Context, conversationID, user primitive.ObjectID) (int64, error)
}

type messageRepository struct {
	con       *mongo.Database
	mongoRepo *db.Repository[model.Message]
	logger    *zap.Logger
}

func NewMessageRepository(con *mongo.Database, repo *db.Repository[model.Message], logger *zap.Logger) MessageRepository {
	return &messageRepository{
		con:       con,
		mongoRepo: repo,
		logger:    logger,
	}
}

// -----------------------------------------------------------------------------
// Insert
// -----------------------------------------------------------------------------

// Insert persists a message, retrying transient Mongo failures with
// exponential backoff. A message that cannot be persisted is never fanned
// out; the caller aborts the send entirely.
func (m *messageRepository) Insert(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if msg == nil {
		return nil, ErrInvalidMessage
	}
	if msg.ConversationID.IsZero() {
		return nil, ErrInvalidChannelID
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, attempt); err != nil {
				return nil, err
			}
		}

		result, err := m.mongoRepo.Create(ctx, *msg)
		if err == nil {
			if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
				msg.ID = oid
			}

			m.logger.Info("message inserted",
				zap.String("message_id", msg.ID.Hex()),
				zap.String("conversation_id", msg.ConversationID.Hex()),
				zap.Int("attempt", attempt+1),
			)
			return msg, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}

		m.logger.Warn("insert attempt failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxRetries),
		)
	}

	m.logger.Error("failed to insert message after all retries",
		zap.Error(lastErr),
		zap.String("conversation_id", msg.ConversationID.Hex()),
	)
	return nil, apperr.Internal("message insert failed").WithCause(lastErr)
}

// -----------------------------------------------------------------------------
// Reads
// -----------------------------------------------------------------------------

func (m *messageRepository) FindByID(ctx context.Context, id string) (*model.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	if _, err := parseID(id); err != nil {
		return nil, err
	}

	msg, err := m.mongoRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("message not found")
		}
		m.logger.Error("failed to fetch message", zap.String("message_id", id), zap.Error(err))
		return nil, apperr.Internal("message lookup failed").WithCause(err)
	}
	return msg, nil
}

// List pages through a conversation's history oldest-first, excluding
// messages the viewer soft-deleted and anything before their last clear.
func (m *messageRepository) List(ctx context.Context, conversationID primitive.ObjectID, viewer primitive.ObjectID, clearedAfter *time.Time, page int64) (*db.PaginatedResult[model.Message], error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	builder := db.NewFilter().
		Eq("conversation_id", conversationID).
		Ne("deleted_for", viewer)
	if clearedAfter != nil {
		builder.Gt("created_at", *clearedAfter)
	}
	filter := builder.Build()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, attempt); err != nil {
				return nil, err
			}
			m.logger.Warn("retrying message list",
				zap.String("conversation_id", conversationID.Hex()),
				zap.Int("attempt", attempt+1),
			)
		}

		result, err := m.mongoRepo.FindWithPagination(ctx, filter, db.PaginationParams{
			Page:     page,
			PageSize: messagePageSize,
			SortBy:   "created_at",
			SortDesc: false,
		})
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	m.logger.Error("message list failed",
		zap.String("conversation_id", conversationID.Hex()),
		zap.Error(lastErr),
	)
	return nil, apperr.Internal("message list failed").WithCause(lastErr)
}

// -----------------------------------------------------------------------------
// Delivery / seen tracking
// -----------------------------------------------------------------------------

// MarkDelivered adds the recipient to the delivery set of each listed
// message they did not send. Monotonic: already-delivered messages are
// filtered out and never re-reported.
func (m *messageRepository) MarkDelivered(ctx context.Context, conversationID primitive.ObjectID, ids []primitive.ObjectID, recipient primitive.ObjectID) ([]primitive.ObjectID, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	if len(ids) == 0 {
		return nil, nil
	}

	filter := db.NewFilter().
		Eq("conversation_id", conversationID).
		In("_id", ids).
		Ne("sender", recipient).
		Ne("delivered_to", recipient).
		Build()

	return m.addToSet(ctx, filter, "delivered_to", recipient)
}

// MarkSeen adds the recipient to the seen set of every message in the
// conversation they did not send, have not seen, and have not deleted.
// Returns only the newly affected ids so fanout never re-notifies.
func (m *messageRepository) MarkSeen(ctx context.Context, conversationID, recipient primitive.ObjectID) ([]primitive.ObjectID, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("conversation_id", conversationID).
		Ne("sender", recipient).
		Ne("seen_by", recipient).
		Ne("deleted_for", recipient).
		Build()

	return m.addToSet(ctx, filter, "seen_by", recipient)
}

func (m *messageRepository) addToSet(ctx context.Context, filter bson.M, field string, user primitive.ObjectID) ([]primitive.ObjectID, error) {
	affected, err := m.mongoRepo.IDs(ctx, filter)
	if err != nil {
		m.logger.Error("receipt candidate query failed", zap.String("field", field), zap.Error(err))
		return nil, apperr.Internal("receipt update failed").WithCause(err)
	}
	if len(affected) == 0 {
		return nil, nil
	}

	update := bson.M{
		"$addToSet": bson.M{field: user},
		"$set":      bson.M{"updated_at": time.Now()},
	}
	if _, err := m.mongoRepo.UpdateManyRaw(ctx, db.NewFilter().In("_id", affected).Build(), update); err != nil {
		m.logger.Error("receipt update failed", zap.String("field", field), zap.Error(err))
		return nil, apperr.Internal("receipt update failed").WithCause(err)
	}
	return affected, nil
}

// -----------------------------------------------------------------------------
// Mutations
// -----------------------------------------------------------------------------

func (m *messageRepository) SetReactions(ctx context.Context, id primitive.ObjectID, reactions []model.Reaction) error {
	return m.updateOne(ctx, id, bson.M{
		"$set": bson.M{"reactions": reactions, "updated_at": time.Now()},
	})
}

// Tombstone irreversibly clears the message body. Delivery and seen
// history stays intact.
func (m *messageRepository) Tombstone(ctx context.Context, id primitive.ObjectID) error {
	return m.updateOne(ctx, id, bson.M{
		"$set": bson.M{
			"deleted_for_everyone": true,
			"updated_at":           time.Now(),
		},
		"$unset": bson.M{
			"text":         "",
			"media":        "",
			"voice_note":   "",
			"forward_from": "",
		},
	})
}

func (m *messageRepository) AddDeletedFor(ctx context.Context, id, user primitive.ObjectID) error {
	return m.updateOne(ctx, id, bson.M{
		"$addToSet": bson.M{"deleted_for": user},
	})
}

// AddDeletedForConversation soft-hides every message in the conversation
// for one user. Other members' views are untouched.
func (m *messageRepository) AddDeletedForConversation(ctx context.Context, conversationID, user primitive.ObjectID) (int64, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("conversation_id", conversationID).
		Ne("deleted_for", user).
		Build()

	result, err := m.mongoRepo.UpdateManyRaw(ctx, filter, bson.M{
		"$addToSet": bson.M{"deleted_for": user},
	})
	if err != nil {
		m.logger.Error("clear conversation failed",
			zap.String("conversation_id", conversationID.Hex()),
			zap.Error(err),
		)
		return 0, apperr.Internal("clear conversation failed").WithCause(err)
	}

	m.logger.Info("conversation cleared",
		zap.String("conversation_id", conversationID.Hex()),
		zap.String("user_id", user.Hex()),
		zap.Int64("messages", result.ModifiedCount),
	)
	return result.ModifiedCount, nil
}

func (m *messageRepository) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	result, err := m.mongoRepo.UpdateRaw(ctx, bson.M{"_id": id}, update)
	if err != nil {
		m.logger.Error("message update failed", zap.String("message_id", id.Hex()), zap.Error(err))
		return apperr.Internal("message update failed").WithCause(err)
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound("message not found")
	}
	return nil
}
