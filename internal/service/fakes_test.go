package service

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/apperr"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/db"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/model"
)

// In-memory fakes mirroring the repository semantics the services rely on.
// Single-goroutine use only.

// ---------------------------------------------------------------------------
// users

type fakeUserRepo struct {
	users map[primitive.ObjectID]*model.User
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	f := &fakeUserRepo{users: make(map[primitive.ObjectID]*model.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.NotFound("user not found")
	}
	user, ok := f.users[oid]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserRepo) FindManyByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.User, error) {
	out := []model.User{}
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) Search(ctx context.Context, query string, exclude primitive.ObjectID) ([]model.User, error) {
	out := []model.User{}
	for _, u := range f.users {
		if u.ID == exclude {
			continue
		}
		if strings.Contains(strings.ToLower(u.DisplayName()), strings.ToLower(query)) ||
			strings.Contains(u.Phone, query) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) UpdateProfile(ctx context.Context, id primitive.ObjectID, fields bson.M) (*model.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	for field, value := range fields {
		switch field {
		case "name":
			name := value.(string)
			user.Name = &name
		case "about":
			user.About = value.(string)
		case "avatar":
			avatar := value.(string)
			user.Avatar = &avatar
		}
	}
	user.UpdatedAt = time.Now()
	clone := *user
	return &clone, nil
}

func (f *fakeUserRepo) SetPresence(ctx context.Context, id primitive.ObjectID, online bool, lastSeen *time.Time) error {
	if u, ok := f.users[id]; ok {
		u.IsOnline = online
		u.LastSeen = lastSeen
	}
	return nil
}

func (f *fakeUserRepo) Block(ctx context.Context, blocker, blocked primitive.ObjectID) error {
	if u, ok := f.users[blocker]; ok && !u.HasBlocked(blocked) {
		u.BlockedUsers = append(u.BlockedUsers, blocked)
	}
	if u, ok := f.users[blocked]; ok && !u.IsBlockedBy(blocker) {
		u.BlockedBy = append(u.BlockedBy, blocker)
	}
	return nil
}

func (f *fakeUserRepo) Unblock(ctx context.Context, blocker, blocked primitive.ObjectID) error {
	if u, ok := f.users[blocker]; ok {
		u.BlockedUsers = removeID(u.BlockedUsers, blocked)
	}
	if u, ok := f.users[blocked]; ok {
		u.BlockedBy = removeID(u.BlockedBy, blocker)
	}
	return nil
}

// ---------------------------------------------------------------------------
// conversations

type fakeConversationRepo struct {
	convs map[primitive.ObjectID]*model.Conversation
}

func newFakeConversationRepo(convs ...*model.Conversation) *fakeConversationRepo {
	f := &fakeConversationRepo{convs: make(map[primitive.ObjectID]*model.Conversation)}
	for _, c := range convs {
		if c.ID.IsZero() {
			c.ID = primitive.NewObjectID()
		}
		f.convs[c.ID] = c
	}
	return f
}

func (f *fakeConversationRepo) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.NotFound("conversation not found")
	}
	conv, ok := f.convs[oid]
	if !ok || conv.IsDeleted {
		return nil, apperr.NotFound("conversation not found")
	}
	clone := *conv
	return &clone, nil
}

func (f *fakeConversationRepo) FindByInviteToken(ctx context.Context, token string) (*model.Conversation, error) {
	for _, c := range f.convs {
		if c.InviteToken == token && !c.IsDeleted {
			clone := *c
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("invite not found")
}

func (f *fakeConversationRepo) GetOrCreateDirect(ctx context.Context, a, b primitive.ObjectID) (*model.Conversation, bool, error) {
	key := model.DirectMemberKey(a, b)
	for _, c := range f.convs {
		if c.MemberKey == key && !c.IsDeleted {
			clone := *c
			return &clone, false, nil
		}
	}
	conv := &model.Conversation{
		ID:        primitive.NewObjectID(),
		Members:   []primitive.ObjectID{a, b},
		MemberKey: key,
		HiddenFor: []primitive.ObjectID{},
		PinnedBy:  []primitive.ObjectID{},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.convs[conv.ID] = conv
	clone := *conv
	return &clone, true, nil
}

func (f *fakeConversationRepo) CreateGroup(ctx context.Context, conv *model.Conversation) (*model.Conversation, error) {
	conv.ID = primitive.NewObjectID()
	f.convs[conv.ID] = conv
	clone := *conv
	return &clone, nil
}

func (f *fakeConversationRepo) ListForUser(ctx context.Context, user primitive.ObjectID) ([]model.Conversation, error) {
	out := []model.Conversation{}
	for _, c := range f.convs {
		if c.IsDeleted || !c.HasMember(user) || c.IsHiddenFor(user) {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeConversationRepo) MemberConversationIDs(ctx context.Context, user primitive.ObjectID) ([]primitive.ObjectID, error) {
	out := []primitive.ObjectID{}
	for _, c := range f.convs {
		if !c.IsDeleted && c.HasMember(user) {
			out = append(out, c.ID)
		}
	}
	return out, nil
}

func (f *fakeConversationRepo) get(id primitive.ObjectID) (*model.Conversation, error) {
	conv, ok := f.convs[id]
	if !ok {
		return nil, apperr.NotFound("conversation not found")
	}
	return conv, nil
}

func (f *fakeConversationRepo) AddMember(ctx context.Context, id, user primitive.ObjectID) error {
	conv, err := f.get(id)
	if err != nil {
		return err
	}
	if !conv.HasMember(user) {
		conv.Members = append(conv.Members, user)
	}
	return nil
}

func (f *fakeConversationRepo) RemoveMember(ctx context.Context, id, user primitive.ObjectID) error {
	conv, err := f.get(id)
	if err != nil {
		return err
	}
	conv.Members = removeID(conv.Members, user)
	return nil
}

func (f *fakeConversationRepo) SetAdmin(ctx context.Context, id, admin primitive.ObjectID) error {
	conv, err := f.get(id)
	if err != nil {
		return err
	}
	conv.GroupAdmin = &admin
	return nil
}

func (f *fakeConversationRepo) SetGroupInfo(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	conv, err := f.get(id)
	if err != nil {
		return err
	}
	if v, ok := fields["group_name"].(string); ok {
		conv.GroupName = v
	}
	if v, ok := fields["group_avatar"].(string); ok {
		conv.GroupAvatar = v
	}
	if v, ok := fields["description"].(string); ok {
		conv.Description = v
	}
	return nil
}

func (f *fakeConversationRepo) SetHidden(ctx context.Context, id, user primitive.ObjectID, hidden bool) error {
	conv, err := f.get(id)
	if err != nil {
		return err
	}
	conv.HiddenFor = removeID(conv.HiddenFor, user)
	if hidden {
		conv.HiddenFor = append(conv.HiddenFor, user)
	}
	return nil
}

func (f *fakeConversationRepo) SetPinned(ctx context.Context, id, user primitive.ObjectID, pinned bool) error {
	conv, err := f.get(id)
	if err != nil {
		return err
	}
	conv.PinnedBy = removeID(conv.PinnedBy, user)
	if pinned {
		conv.PinnedBy = append(conv.PinnedBy, user)
	}
	return nil
}

func (f *fakeConversationRepo) SetDeleted(ctx context.Context, id primitive.ObjectID) error {
	conv, err := f.get(id)
	if err != nil {
		return err
	}
	conv.IsDeleted = true
	return nil
}

func (f *fakeConversationRepo) UpdateLastMessage(ctx context.Context, id primitive.ObjectID, lm model.LastMessage) error {
	conv, err := f.get(id)
	if err != nil {
		return err
	}
	conv.LastMessage = &lm
	conv.HiddenFor = []primitive.ObjectID{}
	conv.UpdatedAt = time.Now()
	return nil
}

// ---------------------------------------------------------------------------
// messages

type fakeMessageRepo struct {
	msgs []*model.Message
}

func newFakeMessageRepo(msgs ...*model.Message) *fakeMessageRepo {
	f := &fakeMessageRepo{}
	for _, m := range msgs {
		if m.ID.IsZero() {
			m.ID = primitive.NewObjectID()
		}
		f.msgs = append(f.msgs, m)
	}
	return f
}

func (f *fakeMessageRepo) Insert(ctx context.Context, msg *model.Message) (*model.Message, error) {
	msg.ID = primitive.NewObjectID()
	f.msgs = append(f.msgs, msg)
	clone := *msg
	return &clone, nil
}

func (f *fakeMessageRepo) FindByID(ctx context.Context, id string) (*model.Message, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.NotFound("message not found")
	}
	for _, m := range f.msgs {
		if m.ID == oid {
			clone := *m
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("message not found")
}

func (f *fakeMessageRepo) List(ctx context.Context, conversationID, viewer primitive.ObjectID, clearedAfter *time.Time, page int64) (*db.PaginatedResult[model.Message], error) {
	data := []model.Message{}
	for _, m := range f.msgs {
		if m.ConversationID != conversationID || m.DeletedForUser(viewer) {
			continue
		}
		if clearedAfter != nil && !m.CreatedAt.After(*clearedAfter) {
			continue
		}
		data = append(data, *m)
	}
	return &db.PaginatedResult[model.Message]{
		Data:       data,
		Total:      int64(len(data)),
		Page:       page,
		TotalPages: 1,
	}, nil
}

func (f *fakeMessageRepo) MarkDelivered(ctx context.Context, conversationID primitive.ObjectID, ids []primitive.ObjectID, recipient primitive.ObjectID) ([]primitive.ObjectID, error) {
	wanted := make(map[primitive.ObjectID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	affected := []primitive.ObjectID{}
	for _, m := range f.msgs {
		if m.ConversationID != conversationID || m.Sender == recipient {
			continue
		}
		if _, ok := wanted[m.ID]; !ok {
			continue
		}
		delivered := false
		for _, d := range m.DeliveredTo {
			if d == recipient {
				delivered = true
				break
			}
		}
		if delivered || m.DeletedForUser(recipient) {
			continue
		}
		m.DeliveredTo = append(m.DeliveredTo, recipient)
		affected = append(affected, m.ID)
	}
	return affected, nil
}

func (f *fakeMessageRepo) SetReactions(ctx context.Context, id primitive.ObjectID, reactions []model.Reaction) error {
	for _, m := range f.msgs {
		if m.ID == id {
			m.Reactions = reactions
			return nil
		}
	}
	return apperr.NotFound("message not found")
}

func (f *fakeMessageRepo) MarkSeen(ctx context.Context, conversationID, recipient primitive.ObjectID) ([]primitive.ObjectID, error) {
	affected := []primitive.ObjectID{}
	for _, m := range f.msgs {
		if m.ConversationID != conversationID || m.Sender == recipient {
			continue
		}
		if m.SeenByUser(recipient) || m.DeletedForUser(recipient) {
			continue
		}
		m.SeenBy = append(m.SeenBy, recipient)
		affected = append(affected, m.ID)
	}
	return affected, nil
}

func (f *fakeMessageRepo) Tombstone(ctx context.Context, id primitive.ObjectID) error {
	for _, m := range f.msgs {
		if m.ID == id {
			m.Tombstone()
			return nil
		}
	}
	return apperr.NotFound("message not found")
}

func (f *fakeMessageRepo) AddDeletedFor(ctx context.Context, id, user primitive.ObjectID) error {
	for _, m := range f.msgs {
		if m.ID == id && !m.DeletedForUser(user) {
			m.DeletedFor = append(m.DeletedFor, user)
			return nil
		}
	}
	return nil
}

func (f *fakeMessageRepo) AddDeletedForConversation(ctx context.Context, conversationID, user primitive.ObjectID) (int64, error) {
	var n int64
	for _, m := range f.msgs {
		if m.ConversationID == conversationID && !m.DeletedForUser(user) {
			m.DeletedFor = append(m.DeletedFor, user)
			n++
		}
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// chat meta

type metaKey struct {
	user primitive.ObjectID
	chat primitive.ObjectID
}

type fakeChatMetaRepo struct {
	metas map[metaKey]*model.ChatMeta
}

func newFakeChatMetaRepo() *fakeChatMetaRepo {
	return &fakeChatMetaRepo{metas: make(map[metaKey]*model.ChatMeta)}
}

func (f *fakeChatMetaRepo) Get(ctx context.Context, user, chat primitive.ObjectID) (*model.ChatMeta, error) {
	if meta, ok := f.metas[metaKey{user, chat}]; ok {
		clone := *meta
		return &clone, nil
	}
	return model.DefaultChatMeta(user, chat), nil
}

func (f *fakeChatMetaRepo) ForUser(ctx context.Context, user primitive.ObjectID) (map[primitive.ObjectID]*model.ChatMeta, error) {
	out := make(map[primitive.ObjectID]*model.ChatMeta)
	for key, meta := range f.metas {
		if key.user == user {
			clone := *meta
			out[key.chat] = &clone
		}
	}
	return out, nil
}

func (f *fakeChatMetaRepo) Set(ctx context.Context, user, chat primitive.ObjectID, fields bson.M) (*model.ChatMeta, error) {
	key := metaKey{user, chat}
	meta, ok := f.metas[key]
	if !ok {
		meta = model.DefaultChatMeta(user, chat)
		f.metas[key] = meta
	}
	for field, value := range fields {
		switch field {
		case "is_read":
			meta.IsRead = value.(bool)
		case "is_favorite":
			meta.IsFavorite = value.(bool)
		case "muted":
			meta.Muted = value.(bool)
		case "archived":
			meta.Archived = value.(bool)
		case "last_cleared_at":
			t := value.(time.Time)
			meta.LastClearedAt = &t
		}
	}
	meta.UpdatedAt = time.Now()
	clone := *meta
	return &clone, nil
}
