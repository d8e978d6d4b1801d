package service

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/apperr"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/model"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/repo"
)

// MessageService is the message store and delivery tracker.
type MessageService interface {
	Send(ctx context.Context, input SendInput) (*SendResult, error)
	Forward(ctx context.Context, senderID, sourceMessageID, targetConversationID string) (*SendResult, error)
	List(ctx context.Context, userID, conversationID string, page int64) (*MessagePage, error)
	MarkDelivered(ctx context.Context, userID, conversationID string, messageIDs []string) (*ReceiptResult, error)
	MarkSeen(ctx context.Context, userID, conversationID string) (*ReceiptResult, error)
	React(ctx context.Context, userID, messageID, emoji string) (*ReactResult, error)
	DeleteForEveryone(ctx context.Context, userID, messageID string) (*DeleteResult, error)
	DeleteForMe(ctx context.Context, userID, messageID string) (*DeleteResult, error)
	ClearConversation(ctx context.Context, userID, conversationID string) error
}

// SendInput is the content of a new message. Exactly one attachment may
// accompany the text; a forward snapshot replaces both.
type SendInput struct {
	ConversationID string
	SenderID       string
	Text           string
	Media          *model.Media
	VoiceNote      *model.VoiceNote
	ReplyTo        string
	Forward        *model.ForwardSnapshot
	TempID         string
}

// SendResult is a committed message plus the context fanout needs.
type SendResult struct {
	View         model.MessageView
	Conversation *model.Conversation
}

// MessagePage is one page of a conversation's history.
type MessagePage struct {
	Messages   []model.MessageView `json:"messages"`
	Total      int64               `json:"total"`
	Page       int64               `json:"page"`
	TotalPages int64               `json:"totalPages"`
}

// ReceiptResult is the set of messages newly affected by a delivery or
// seen receipt. Empty when the operation was a no-op.
type ReceiptResult struct {
	ConversationID string
	MessageIDs     []string
}

// ReactResult is a message's full reaction list after a toggle.
type ReactResult struct {
	ConversationID string
	MessageID      string
	Reactions      []model.Reaction
}

// DeleteResult identifies a deleted message and the deletion scope.
type DeleteResult struct {
	ConversationID string
	MessageID      string
	Everyone       bool
}

type messageService struct {
	messages      repo.MessageRepository
	conversations repo.ConversationRepository
	users         repo.UserRepository
	meta          repo.ChatMetaRepository
	logger        *zap.Logger
}

func NewMessageService(messages repo.MessageRepository, conversations repo.ConversationRepository, users repo.UserRepository, meta repo.ChatMetaRepository, logger *zap.Logger) MessageService {
	return &messageService{
		messages:      messages,
		conversations: conversations,
		users:         users,
		meta:          meta,
		logger:        logger,
	}
}

// Send validates, persists, and summarizes a new message. Fanout is the
// caller's job and must happen only after this returns successfully.
func (s *messageService) Send(ctx context.Context, input SendInput) (*SendResult, error) {
	sender, err := parseUserID(input.SenderID)
	if err != nil {
		return nil, err
	}

	msg := &model.Message{
		Sender:      sender,
		Text:        strings.TrimSpace(input.Text),
		Media:       input.Media,
		VoiceNote:   input.VoiceNote,
		ForwardFrom: input.Forward,
		TempID:      input.TempID,
	}
	if !msg.HasContent() {
		return nil, apperr.InvalidArgument("message content is empty")
	}
	if input.Media != nil && input.VoiceNote != nil {
		return nil, apperr.InvalidArgument("at most one attachment per message")
	}

	conv, err := s.conversations.FindByID(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasMember(sender) {
		return nil, apperr.Forbidden("not a member of this conversation")
	}

	senderUser, err := s.users.FindByID(ctx, input.SenderID)
	if err != nil {
		return nil, err
	}

	if !conv.IsGroup {
		if err := s.checkBlocked(senderUser, conv); err != nil {
			return nil, err
		}
	}

	if input.ReplyTo != "" {
		ref, err := s.messages.FindByID(ctx, input.ReplyTo)
		if err != nil {
			return nil, err
		}
		if ref.ConversationID != conv.ID {
			return nil, apperr.InvalidArgument("reply target is in another conversation")
		}
		msg.ReplyTo = &ref.ID
	}

	now := timeNow()
	msg.ConversationID = conv.ID
	msg.SeenBy = []primitive.ObjectID{sender} // self-seen on send
	msg.DeliveredTo = []primitive.ObjectID{}
	msg.Reactions = []model.Reaction{}
	msg.DeletedFor = []primitive.ObjectID{}
	msg.CreatedAt = now
	msg.UpdatedAt = now

	msg, err = s.messages.Insert(ctx, msg)
	if err != nil {
		return nil, err
	}

	// The message is committed; a summary failure must not undo the send.
	if err := s.conversations.UpdateLastMessage(ctx, conv.ID, model.LastMessage{
		Text:      msg.Preview(),
		Sender:    sender,
		Timestamp: msg.CreatedAt,
	}); err != nil {
		s.logger.Warn("last-message summary update failed",
			zap.String("conversation_id", conv.ID.Hex()),
			zap.Error(err),
		)
	}

	return &SendResult{
		View:         newMessageView(msg, senderUser),
		Conversation: conv,
	}, nil
}

// Forward snapshots an existing message and sends the copy into another
// conversation. The snapshot survives later deletion of the source.
func (s *messageService) Forward(ctx context.Context, senderID, sourceMessageID, targetConversationID string) (*SendResult, error) {
	sender, err := parseUserID(senderID)
	if err != nil {
		return nil, err
	}

	source, err := s.messages.FindByID(ctx, sourceMessageID)
	if err != nil {
		return nil, err
	}
	if source.DeletedForEveryone || source.DeletedForUser(sender) {
		return nil, apperr.NotFound("message not found")
	}

	sourceConv, err := s.conversations.FindByID(ctx, source.ConversationID.Hex())
	if err != nil {
		return nil, err
	}
	if !sourceConv.HasMember(sender) {
		return nil, apperr.Forbidden("not a member of this conversation")
	}

	origSender, err := s.users.FindByID(ctx, source.Sender.Hex())
	if err != nil {
		return nil, err
	}

	snapshot := &model.ForwardSnapshot{
		MessageID:  source.ID.Hex(),
		SenderID:   origSender.ID.Hex(),
		SenderName: origSender.DisplayName(),
		Text:       source.Text,
		Media:      source.Media,
		VoiceNote:  source.VoiceNote,
	}
	if origSender.Avatar != nil {
		snapshot.SenderAvatar = *origSender.Avatar
	}

	return s.Send(ctx, SendInput{
		ConversationID: targetConversationID,
		SenderID:       senderID,
		Forward:        snapshot,
	})
}

// List pages through a conversation's history for one viewer. Tombstoned
// messages keep their place with an empty body.
func (s *messageService) List(ctx context.Context, userID, conversationID string, page int64) (*MessagePage, error) {
	viewer, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}

	conv, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasMember(viewer) {
		return nil, apperr.Forbidden("not a member of this conversation")
	}

	meta, err := s.meta.Get(ctx, viewer, conv.ID)
	if err != nil {
		return nil, err
	}

	result, err := s.messages.List(ctx, conv.ID, viewer, meta.LastClearedAt, page)
	if err != nil {
		return nil, err
	}

	views, err := s.buildViews(ctx, result.Data)
	if err != nil {
		return nil, err
	}

	return &MessagePage{
		Messages:   views,
		Total:      result.Total,
		Page:       result.Page,
		TotalPages: result.TotalPages,
	}, nil
}

func (s *messageService) MarkDelivered(ctx context.Context, userID, conversationID string, messageIDs []string) (*ReceiptResult, error) {
	recipient, conv, err := s.memberOf(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(messageIDs))
	for _, id := range messageIDs {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, apperr.InvalidArgument("malformed message id").WithCause(err)
		}
		ids = append(ids, oid)
	}

	affected, err := s.messages.MarkDelivered(ctx, conv.ID, ids, recipient)
	if err != nil {
		return nil, err
	}
	return receiptResult(conversationID, affected), nil
}

// MarkSeen is monotonic: re-invoking with no new messages yields an empty
// affected set, and fanout is skipped entirely.
func (s *messageService) MarkSeen(ctx context.Context, userID, conversationID string) (*ReceiptResult, error) {
	recipient, conv, err := s.memberOf(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	affected, err := s.messages.MarkSeen(ctx, conv.ID, recipient)
	if err != nil {
		return nil, err
	}

	// Viewing a conversation also marks it read for the viewer.
	if _, err := s.meta.Set(ctx, recipient, conv.ID, bson.M{"is_read": true}); err != nil {
		s.logger.Warn("chat meta read flag update failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
	}

	return receiptResult(conversationID, affected), nil
}

// React toggles the caller's reaction: same emoji removes it, a different
// emoji replaces it, at most one reaction per user per message.
func (s *messageService) React(ctx context.Context, userID, messageID, emoji string) (*ReactResult, error) {
	user, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}
	if emoji == "" {
		return nil, apperr.InvalidArgument("emoji is required")
	}

	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.DeletedForEveryone {
		return nil, apperr.NotFound("message not found")
	}

	conv, err := s.conversations.FindByID(ctx, msg.ConversationID.Hex())
	if err != nil {
		return nil, err
	}
	if !conv.HasMember(user) {
		return nil, apperr.Forbidden("not a member of this conversation")
	}

	reactions, changed := model.ToggleReaction(msg.Reactions, user, emoji)
	if changed {
		if err := s.messages.SetReactions(ctx, msg.ID, reactions); err != nil {
			return nil, err
		}
	}

	return &ReactResult{
		ConversationID: conv.ID.Hex(),
		MessageID:      msg.ID.Hex(),
		Reactions:      reactions,
	}, nil
}

// DeleteForEveryone tombstones a message. Sender-only and idempotent;
// delivery and seen history is preserved.
func (s *messageService) DeleteForEveryone(ctx context.Context, userID, messageID string) (*DeleteResult, error) {
	user, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}

	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Sender != user {
		return nil, apperr.Forbidden("only the sender may delete for everyone")
	}

	if !msg.DeletedForEveryone {
		if err := s.messages.Tombstone(ctx, msg.ID); err != nil {
			return nil, err
		}
	}

	return &DeleteResult{
		ConversationID: msg.ConversationID.Hex(),
		MessageID:      msg.ID.Hex(),
		Everyone:       true,
	}, nil
}

func (s *messageService) DeleteForMe(ctx context.Context, userID, messageID string) (*DeleteResult, error) {
	user, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}

	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	conv, err := s.conversations.FindByID(ctx, msg.ConversationID.Hex())
	if err != nil {
		return nil, err
	}
	if !conv.HasMember(user) {
		return nil, apperr.Forbidden("not a member of this conversation")
	}

	if !msg.DeletedForUser(user) {
		if err := s.messages.AddDeletedFor(ctx, msg.ID, user); err != nil {
			return nil, err
		}
	}

	return &DeleteResult{
		ConversationID: msg.ConversationID.Hex(),
		MessageID:      msg.ID.Hex(),
		Everyone:       false,
	}, nil
}

// ClearConversation soft-hides the entire history for the caller and
// stamps their clear watermark. Nothing is physically purged.
func (s *messageService) ClearConversation(ctx context.Context, userID, conversationID string) error {
	user, conv, err := s.memberOf(ctx, userID, conversationID)
	if err != nil {
		return err
	}

	if _, err := s.messages.AddDeletedForConversation(ctx, conv.ID, user); err != nil {
		return err
	}

	now := timeNow()
	if _, err := s.meta.Set(ctx, user, conv.ID, bson.M{"last_cleared_at": now}); err != nil {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (s *messageService) memberOf(ctx context.Context, userID, conversationID string) (primitive.ObjectID, *model.Conversation, error) {
	user, err := parseUserID(userID)
	if err != nil {
		return primitive.NilObjectID, nil, err
	}
	conv, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return primitive.NilObjectID, nil, err
	}
	if !conv.HasMember(user) {
		return primitive.NilObjectID, nil, apperr.Forbidden("not a member of this conversation")
	}
	return user, conv, nil
}

// checkBlocked rejects a direct send when either party has blocked the
// other.
func (s *messageService) checkBlocked(sender *model.User, conv *model.Conversation) error {
	for _, member := range conv.Members {
		if member == sender.ID {
			continue
		}
		if sender.IsBlockedBy(member) {
			return apperr.Forbidden("you are blocked by this user")
		}
		if sender.HasBlocked(member) {
			return apperr.Forbidden("you have blocked this user")
		}
	}
	return nil
}

// buildViews joins messages with their senders' display fields, one user
// fetch per distinct sender.
func (s *messageService) buildViews(ctx context.Context, msgs []model.Message) ([]model.MessageView, error) {
	senderSet := map[primitive.ObjectID]struct{}{}
	for i := range msgs {
		senderSet[msgs[i].Sender] = struct{}{}
	}
	senderIDs := make([]primitive.ObjectID, 0, len(senderSet))
	for id := range senderSet {
		senderIDs = append(senderIDs, id)
	}

	users, err := s.users.FindManyByIDs(ctx, senderIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*model.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	views := make([]model.MessageView, 0, len(msgs))
	for i := range msgs {
		views = append(views, newMessageView(&msgs[i], byID[msgs[i].Sender]))
	}
	return views, nil
}

func newMessageView(msg *model.Message, sender *model.User) model.MessageView {
	view := model.MessageView{Message: *msg}
	view.SenderInfo.ID = msg.Sender.Hex()
	if sender != nil {
		view.SenderInfo.Name = sender.DisplayName()
		view.SenderInfo.Avatar = sender.Avatar
	}
	return view
}

func receiptResult(conversationID string, affected []primitive.ObjectID) *ReceiptResult {
	ids := make([]string, len(affected))
	for i, id := range affected {
		ids[i] = id.Hex()
	}
	return &ReceiptResult{ConversationID: conversationID, MessageIDs: ids}
}
