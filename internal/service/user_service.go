package service

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/apperr"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/model"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/repo"
)

// UserService exposes the user directory, self-service profile, and the
// block list.
type UserService interface {
	Get(ctx context.Context, viewerID, userID string) (*model.User, error)
	Search(ctx context.Context, viewerID, query string) ([]model.User, error)
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*model.User, error)
	Block(ctx context.Context, blockerID, blockedID string) error
	Unblock(ctx context.Context, blockerID, blockedID string) error
	BlockedLists(ctx context.Context, userID string) (*BlockedLists, error)
}

// ProfileUpdate carries self-service profile changes; nil fields are left
// untouched.
type ProfileUpdate struct {
	Name   *string
	About  *string
	Avatar *string
}

// BlockedLists holds both sides of a user's block relations.
type BlockedLists struct {
	Blocked   []model.User `json:"blocked"`
	BlockedBy []model.User `json:"blockedBy"`
}

type userService struct {
	users  repo.UserRepository
	logger *zap.Logger
}

func NewUserService(users repo.UserRepository, logger *zap.Logger) UserService {
	return &userService{users: users, logger: logger}
}

// Get fetches a user's profile. When either side has blocked the other
// the live presence fields are withheld.
func (s *userService) Get(ctx context.Context, viewerID, userID string) (*model.User, error) {
	viewer, err := parseUserID(viewerID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.ID != viewer && (user.HasBlocked(viewer) || user.IsBlockedBy(viewer)) {
		user.IsOnline = false
		user.LastSeen = nil
		user.Avatar = nil
	}
	return user, nil
}

func (s *userService) Search(ctx context.Context, viewerID, query string) ([]model.User, error) {
	viewer, err := parseUserID(viewerID)
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []model.User{}, nil
	}
	return s.users.Search(ctx, query, viewer)
}

// UpdateProfile changes the caller's own display fields.
func (s *userService) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*model.User, error) {
	id, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}

	fields := bson.M{}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperr.InvalidArgument("name cannot be empty")
		}
		fields["name"] = name
	}
	if update.About != nil {
		fields["about"] = strings.TrimSpace(*update.About)
	}
	if update.Avatar != nil {
		fields["avatar"] = *update.Avatar
	}
	if len(fields) == 0 {
		return nil, apperr.InvalidArgument("nothing to update")
	}

	user, err := s.users.UpdateProfile(ctx, id, fields)
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", zap.String("user_id", userID))
	return user, nil
}

// Block records the relation on both documents so either side can answer
// block checks from its own doc. Idempotent.
func (s *userService) Block(ctx context.Context, blockerID, blockedID string) error {
	blocker, blocked, err := s.blockPair(ctx, blockerID, blockedID)
	if err != nil {
		return err
	}
	return s.users.Block(ctx, blocker.ID, blocked.ID)
}

func (s *userService) Unblock(ctx context.Context, blockerID, blockedID string) error {
	blocker, blocked, err := s.blockPair(ctx, blockerID, blockedID)
	if err != nil {
		return err
	}
	return s.users.Unblock(ctx, blocker.ID, blocked.ID)
}

func (s *userService) BlockedLists(ctx context.Context, userID string) (*BlockedLists, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	blocked, err := s.users.FindManyByIDs(ctx, user.BlockedUsers)
	if err != nil {
		return nil, err
	}
	blockedBy, err := s.users.FindManyByIDs(ctx, user.BlockedBy)
	if err != nil {
		return nil, err
	}

	return &BlockedLists{Blocked: blocked, BlockedBy: blockedBy}, nil
}

func (s *userService) blockPair(ctx context.Context, blockerID, blockedID string) (*model.User, *model.User, error) {
	if blockerID == blockedID {
		return nil, nil, apperr.InvalidArgument("cannot block yourself")
	}
	blocker, err := s.users.FindByID(ctx, blockerID)
	if err != nil {
		return nil, nil, err
	}
	blocked, err := s.users.FindByID(ctx, blockedID)
	if err != nil {
		return nil, nil, err
	}
	return blocker, blocked, nil
}
