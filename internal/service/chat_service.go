package service

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/apperr"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/model"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/repo"
)

// ChatService is the conversation directory: membership, group metadata,
// invites, and per-member visibility.
type ChatService interface {
	AccessDirect(ctx context.Context, requesterID, otherID string) (*AccessResult, error)
	CreateGroup(ctx context.Context, creatorID string, memberIDs []string, name, avatarURL, description string) (*model.Conversation, error)
	GetForMember(ctx context.Context, conversationID, userID string) (*model.Conversation, error)
	ListForUser(ctx context.Context, userID string) (*ConversationList, error)
	AddMember(ctx context.Context, actorID, conversationID, userID string) (*model.Conversation, error)
	RemoveMember(ctx context.Context, actorID, conversationID, userID string) (*model.Conversation, error)
	LeaveGroup(ctx context.Context, actorID, conversationID string) (*model.Conversation, error)
	UpdateGroupInfo(ctx context.Context, actorID, conversationID string, info GroupInfoUpdate) (*model.Conversation, error)
	JoinViaInvite(ctx context.Context, token, userID string) (*model.Conversation, error)
	SetVisibility(ctx context.Context, userID, conversationID string, update VisibilityUpdate) (*model.ConversationSummary, error)
}

// AccessResult is the outcome of a direct-conversation access.
type AccessResult struct {
	Conversation *model.Conversation
	Created      bool
}

// ConversationList partitions a user's visible conversations.
type ConversationList struct {
	Active   []model.ConversationSummary `json:"active"`
	Archived []model.ConversationSummary `json:"archived"`
}

// GroupInfoUpdate carries admin-only metadata changes; nil fields are
// left untouched.
type GroupInfoUpdate struct {
	Name        *string
	Avatar      *string
	Description *string
}

// VisibilityUpdate carries idempotent per-member toggles; nil fields are
// left untouched.
type VisibilityUpdate struct {
	Hidden   *bool `json:"hidden"`
	Pinned   *bool `json:"pinned"`
	Muted    *bool `json:"muted"`
	Archived *bool `json:"archived"`
	Favorite *bool `json:"favorite"`
	Read     *bool `json:"read"`
}

type chatService struct {
	conversations repo.ConversationRepository
	users         repo.UserRepository
	meta          repo.ChatMetaRepository
	logger        *zap.Logger
}

func NewChatService(conversations repo.ConversationRepository, users repo.UserRepository, meta repo.ChatMetaRepository, logger *zap.Logger) ChatService {
	return &chatService{
		conversations: conversations,
		users:         users,
		meta:          meta,
		logger:        logger,
	}
}

// AccessDirect returns the direct conversation between the requester and
// the other user, creating it if absent. Reusing an existing conversation
// un-hides it for the requester.
func (s *chatService) AccessDirect(ctx context.Context, requesterID, otherID string) (*AccessResult, error) {
	requester, err := parseUserID(requesterID)
	if err != nil {
		return nil, err
	}
	other, err := parseUserID(otherID)
	if err != nil {
		return nil, err
	}
	if requester == other {
		return nil, apperr.InvalidArgument("cannot start a conversation with yourself")
	}

	// The other party must exist before a room is created for the pair.
	if _, err := s.users.FindByID(ctx, otherID); err != nil {
		return nil, err
	}

	conv, created, err := s.conversations.GetOrCreateDirect(ctx, requester, other)
	if err != nil {
		return nil, err
	}

	if !created && conv.IsHiddenFor(requester) {
		if err := s.conversations.SetHidden(ctx, conv.ID, requester, false); err != nil {
			return nil, err
		}
		conv.HiddenFor = removeID(conv.HiddenFor, requester)
	}

	return &AccessResult{Conversation: conv, Created: created}, nil
}

// CreateGroup creates a group conversation. The creator becomes admin and
// is a member even when omitted from the initial list.
func (s *chatService) CreateGroup(ctx context.Context, creatorID string, memberIDs []string, name, avatarURL, description string) (*model.Conversation, error) {
	creator, err := parseUserID(creatorID)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apperr.InvalidArgument("group name is required")
	}

	members := []primitive.ObjectID{creator}
	seen := map[primitive.ObjectID]struct{}{creator: {}}
	for _, id := range memberIDs {
		oid, err := parseUserID(id)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[oid]; dup {
			continue
		}
		seen[oid] = struct{}{}
		members = append(members, oid)
	}

	now := timeNow()
	conv := &model.Conversation{
		IsGroup:     true,
		Members:     members,
		GroupName:   name,
		GroupAvatar: avatarURL,
		Description: description,
		GroupAdmin:  &creator,
		InviteToken: uuid.New().String(),
		HiddenFor:   []primitive.ObjectID{},
		PinnedBy:    []primitive.ObjectID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	return s.conversations.CreateGroup(ctx, conv)
}

// GetForMember fetches a conversation and enforces that the caller
// belongs to it.
func (s *chatService) GetForMember(ctx context.Context, conversationID, userID string) (*model.Conversation, error) {
	user, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}
	conv, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasMember(user) {
		return nil, apperr.Forbidden("not a member of this conversation")
	}
	return conv, nil
}

// ListForUser returns the caller's conversations newest-first, hidden ones
// excluded, partitioned into active and archived by their ChatMeta.
func (s *chatService) ListForUser(ctx context.Context, userID string) (*ConversationList, error) {
	user, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}

	convs, err := s.conversations.ListForUser(ctx, user)
	if err != nil {
		return nil, err
	}

	metas, err := s.meta.ForUser(ctx, user)
	if err != nil {
		return nil, err
	}

	list := &ConversationList{
		Active:   []model.ConversationSummary{},
		Archived: []model.ConversationSummary{},
	}
	for i := range convs {
		meta := metas[convs[i].ID]
		if meta == nil {
			meta = model.DefaultChatMeta(user, convs[i].ID)
		}
		summary := model.NewConversationSummary(&convs[i], meta)
		if meta.Archived {
			list.Archived = append(list.Archived, summary)
		} else {
			list.Active = append(list.Active, summary)
		}
	}
	return list, nil
}

func (s *chatService) AddMember(ctx context.Context, actorID, conversationID, userID string) (*model.Conversation, error) {
	conv, actor, err := s.groupForAdmin(ctx, actorID, conversationID)
	if err != nil {
		return nil, err
	}

	user, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}
	if conv.HasMember(user) {
		return nil, apperr.Conflict("user is already a member")
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.conversations.AddMember(ctx, conv.ID, user); err != nil {
		return nil, err
	}
	conv.Members = append(conv.Members, user)

	s.logger.Info("member added",
		zap.String("conversation_id", conv.ID.Hex()),
		zap.String("user_id", user.Hex()),
		zap.String("actor_id", actor.Hex()),
	)
	return conv, nil
}

func (s *chatService) RemoveMember(ctx context.Context, actorID, conversationID, userID string) (*model.Conversation, error) {
	conv, actor, err := s.groupForAdmin(ctx, actorID, conversationID)
	if err != nil {
		return nil, err
	}

	user, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}
	if user == actor {
		return nil, apperr.InvalidArgument("admin leaves via leave-group")
	}
	if !conv.HasMember(user) {
		return nil, apperr.NotFound("user is not a member")
	}

	if err := s.conversations.RemoveMember(ctx, conv.ID, user); err != nil {
		return nil, err
	}
	conv.Members = removeID(conv.Members, user)
	return conv, nil
}

// LeaveGroup removes the caller from a group. When the admin leaves, the
// longest-standing remaining member inherits the role; a group left empty
// is marked deleted.
func (s *chatService) LeaveGroup(ctx context.Context, actorID, conversationID string) (*model.Conversation, error) {
	actor, err := parseUserID(actorID)
	if err != nil {
		return nil, err
	}

	conv, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsGroup {
		return nil, apperr.InvalidArgument("not a group conversation")
	}
	if !conv.HasMember(actor) {
		return nil, apperr.Forbidden("not a member of this conversation")
	}

	if err := s.conversations.RemoveMember(ctx, conv.ID, actor); err != nil {
		return nil, err
	}
	conv.Members = removeID(conv.Members, actor)

	if len(conv.Members) == 0 {
		if err := s.conversations.SetDeleted(ctx, conv.ID); err != nil {
			return nil, err
		}
		conv.IsDeleted = true
		return conv, nil
	}

	if conv.IsAdmin(actor) {
		successor := conv.Members[0]
		if err := s.conversations.SetAdmin(ctx, conv.ID, successor); err != nil {
			return nil, err
		}
		conv.GroupAdmin = &successor
		s.logger.Info("group admin handed over",
			zap.String("conversation_id", conv.ID.Hex()),
			zap.String("admin_id", successor.Hex()),
		)
	}
	return conv, nil
}

func (s *chatService) UpdateGroupInfo(ctx context.Context, actorID, conversationID string, info GroupInfoUpdate) (*model.Conversation, error) {
	conv, _, err := s.groupForAdmin(ctx, actorID, conversationID)
	if err != nil {
		return nil, err
	}

	fields := bson.M{}
	if info.Name != nil {
		if *info.Name == "" {
			return nil, apperr.InvalidArgument("group name cannot be empty")
		}
		fields["group_name"] = *info.Name
		conv.GroupName = *info.Name
	}
	if info.Avatar != nil {
		fields["group_avatar"] = *info.Avatar
		conv.GroupAvatar = *info.Avatar
	}
	if info.Description != nil {
		fields["description"] = *info.Description
		conv.Description = *info.Description
	}
	if len(fields) == 0 {
		return nil, apperr.InvalidArgument("nothing to update")
	}

	if err := s.conversations.SetGroupInfo(ctx, conv.ID, fields); err != nil {
		return nil, err
	}
	return conv, nil
}

// JoinViaInvite appends the caller to the group behind an invite token.
func (s *chatService) JoinViaInvite(ctx context.Context, token, userID string) (*model.Conversation, error) {
	user, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, apperr.NotFound("invite not found")
	}

	conv, err := s.conversations.FindByInviteToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !conv.IsGroup {
		return nil, apperr.NotFound("invite not found")
	}
	if conv.HasMember(user) {
		return nil, apperr.Conflict("already a member")
	}

	if err := s.conversations.AddMember(ctx, conv.ID, user); err != nil {
		return nil, err
	}
	conv.Members = append(conv.Members, user)

	s.logger.Info("member joined via invite",
		zap.String("conversation_id", conv.ID.Hex()),
		zap.String("user_id", user.Hex()),
	)
	return conv, nil
}

// SetVisibility applies idempotent per-member toggles. Hidden and pinned
// live on the conversation's member arrays; the rest on ChatMeta.
func (s *chatService) SetVisibility(ctx context.Context, userID, conversationID string, update VisibilityUpdate) (*model.ConversationSummary, error) {
	user, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}

	conv, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasMember(user) {
		return nil, apperr.Forbidden("not a member of this conversation")
	}

	if update.Hidden != nil {
		if err := s.conversations.SetHidden(ctx, conv.ID, user, *update.Hidden); err != nil {
			return nil, err
		}
		if *update.Hidden {
			conv.HiddenFor = append(removeID(conv.HiddenFor, user), user)
		} else {
			conv.HiddenFor = removeID(conv.HiddenFor, user)
		}
	}
	if update.Pinned != nil {
		if err := s.conversations.SetPinned(ctx, conv.ID, user, *update.Pinned); err != nil {
			return nil, err
		}
		if *update.Pinned {
			conv.PinnedBy = append(removeID(conv.PinnedBy, user), user)
		} else {
			conv.PinnedBy = removeID(conv.PinnedBy, user)
		}
	}

	fields := bson.M{}
	if update.Muted != nil {
		fields["muted"] = *update.Muted
	}
	if update.Archived != nil {
		fields["archived"] = *update.Archived
	}
	if update.Favorite != nil {
		fields["is_favorite"] = *update.Favorite
	}
	if update.Read != nil {
		fields["is_read"] = *update.Read
	}

	var meta *model.ChatMeta
	if len(fields) > 0 {
		meta, err = s.meta.Set(ctx, user, conv.ID, fields)
	} else {
		meta, err = s.meta.Get(ctx, user, conv.ID)
	}
	if err != nil {
		return nil, err
	}

	summary := model.NewConversationSummary(conv, meta)
	return &summary, nil
}

// groupForAdmin loads a group and enforces the admin-only rule.
func (s *chatService) groupForAdmin(ctx context.Context, actorID, conversationID string) (*model.Conversation, primitive.ObjectID, error) {
	actor, err := parseUserID(actorID)
	if err != nil {
		return nil, primitive.NilObjectID, err
	}

	conv, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return nil, primitive.NilObjectID, err
	}
	if !conv.IsGroup {
		return nil, primitive.NilObjectID, apperr.InvalidArgument("not a group conversation")
	}
	if !conv.IsAdmin(actor) {
		return nil, primitive.NilObjectID, apperr.Forbidden("only the group admin may do this")
	}
	return conv, actor, nil
}
