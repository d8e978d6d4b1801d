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

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindManyByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.User, error)
	Search(ctx context.Context, query string, exclude primitive.ObjectID) ([]model.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, fields bson.M) (*model.User, error)
	SetPresence(ctx context.Context, id primitive.ObjectID, online bool, lastSeen *time.Time) error
	Block(ctx context.Context, blocker, blocked primitive.ObjectID) error
	Unblock(ctx context.Context, blocker, blocked primitive.ObjectID) error
}

type userRepository struct {
	con       *mongo.Database
	mongoRepo *db.Repository[model.User]
	logger    *zap.Logger
}

func NewUserRepository(con *mongo.Database, repo *db.Repository[model.User], logger *zap.Logger) UserRepository {
	return &userRepository{
		con:       con,
		mongoRepo: repo,
		logger:    logger,
	}
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	if _, err := parseID(id); err != nil {
		return nil, apperr.NotFound("user not found").WithCause(err)
	}

	user, err := r.mongoRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("user not found")
		}
		r.logger.Error("failed to fetch user", zap.String("user_id", id), zap.Error(err))
		return nil, apperr.Internal("user lookup failed").WithCause(err)
	}
	return user, nil
}

func (r *userRepository) FindManyByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.User, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	if len(ids) == 0 {
		return nil, nil
	}

	filter := db.NewFilter().In("_id", ids).Build()
	users, err := r.mongoRepo.FindAll(ctx, filter)
	if err != nil {
		r.logger.Error("failed to fetch users", zap.Int("count", len(ids)), zap.Error(err))
		return nil, apperr.Internal("user lookup failed").WithCause(err)
	}
	return users, nil
}

func (r *userRepository) Search(ctx context.Context, query string, exclude primitive.ObjectID) ([]model.User, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().
		Or(
			db.NewFilter().Contains("phone", query).Build(),
			db.NewFilter().Contains("name", query).Build(),
		).
		Ne("_id", exclude).
		Eq("is_active", true).
		Build()

	users, err := r.mongoRepo.FindAll(ctx, filter)
	if err != nil {
		r.logger.Error("user search failed", zap.Error(err))
		return nil, apperr.Internal("user search failed").WithCause(err)
	}
	return users, nil
}

// UpdateProfile applies self-service profile fields (name, about, avatar)
// and returns the updated document.
func (r *userRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, fields bson.M) (*model.User, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	fields["updated_at"] = time.Now()
	user, err := r.mongoRepo.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": fields}, false)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("user not found")
		}
		r.logger.Error("profile update failed", zap.String("user_id", id.Hex()), zap.Error(err))
		return nil, apperr.Internal("profile update failed").WithCause(err)
	}
	return user, nil
}

// SetPresence updates the online flag, and stamps last-seen on the final
// disconnect.
func (r *userRepository) SetPresence(ctx context.Context, id primitive.ObjectID, online bool, lastSeen *time.Time) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	update := bson.M{"is_online": online, "updated_at": time.Now()}
	if lastSeen != nil {
		update["last_seen"] = lastSeen
	}

	if _, err := r.mongoRepo.Update(ctx, bson.M{"_id": id}, update); err != nil {
		r.logger.Error("failed to update presence",
			zap.String("user_id", id.Hex()),
			zap.Bool("online", online),
			zap.Error(err),
		)
		return apperr.Internal("presence update failed").WithCause(err)
	}
	return nil
}

// Block records the relationship on both sides so either party can query
// it in O(1).
func (r *userRepository) Block(ctx context.Context, blocker, blocked primitive.ObjectID) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	if _, err := r.mongoRepo.UpdateRaw(ctx,
		bson.M{"_id": blocker},
		bson.M{"$addToSet": bson.M{"blocked_users": blocked}},
	); err != nil {
		return apperr.Internal("block failed").WithCause(err)
	}

	if _, err := r.mongoRepo.UpdateRaw(ctx,
		bson.M{"_id": blocked},
		bson.M{"$addToSet": bson.M{"blocked_by": blocker}},
	); err != nil {
		return apperr.Internal("block failed").WithCause(err)
	}

	r.logger.Info("user blocked",
		zap.String("blocker", blocker.Hex()),
		zap.String("blocked", blocked.Hex()),
	)
	return nil
}

func (r *userRepository) Unblock(ctx context.Context, blocker, blocked primitive.ObjectID) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	if _, err := r.mongoRepo.UpdateRaw(ctx,
		bson.M{"_id": blocker},
		bson.M{"$pull": bson.M{"blocked_users": blocked}},
	); err != nil {
		return apperr.Internal("unblock failed").WithCause(err)
	}

	if _, err := r.mongoRepo.UpdateRaw(ctx,
		bson.M{"_id": blocked},
		bson.M{"$pull": bson.M{"blocked_by": blocker}},
	); err != nil {
		return apperr.Internal("unblock failed").WithCause(err)
	}

	r.logger.Info("user unblocked",
		zap.String("blocker", blocker.Hex()),
		zap.String("blocked", blocked.Hex()),
	)
	return nil
}
