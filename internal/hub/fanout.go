package hub

import (
	"go.uber.org/zap"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/event"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/model"
)

// Fanout is best-effort per connection: enqueue with a timeout, kick the
// client when its egress stays full, never abort the loop. It always runs
// after the triggering write has been committed.

// PublishToRoom delivers an event to every client in a room. The skip
// predicate filters recipients; nil means deliver to all.
func (h *Hub) PublishToRoom(roomID string, ev event.WsEvent, skip func(*Client) bool) {
	for _, c := range h.roomClients(roomID) {
		if skip != nil && skip(c) {
			continue
		}
		h.deliver(c, ev, roomID)
	}
}

// SendToUser delivers an event to every live connection of one user.
func (h *Hub) SendToUser(userID string, ev event.WsEvent) {
	for _, c := range h.clientsForUser(userID) {
		h.deliver(c, ev, "")
	}
}

// BroadcastToRooms delivers one event across several rooms, at most once
// per client even when rooms overlap. The originator's own clients are
// skipped.
func (h *Hub) BroadcastToRooms(roomIDs []string, ev event.WsEvent, originUserID string) {
	seen := make(map[string]struct{})
	for _, roomID := range roomIDs {
		for _, c := range h.roomClients(roomID) {
			if c.userID == originUserID {
				continue
			}
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
			h.deliver(c, ev, roomID)
		}
	}
}

// NotifyConversationNew joins every member's live connections to the room
// and tells each member to refresh their conversation list.
func (h *Hub) NotifyConversationNew(conv *model.Conversation) {
	out := event.NewWsEvent(event.EventConversationNew, event.ConversationNewEvent{
		Conversation: *conv,
	})
	roomID := conv.ID.Hex()
	for _, member := range conv.Members {
		userID := member.Hex()
		h.JoinUser(userID, roomID)
		h.SendToUser(userID, out)
	}
}

// NotifyMembership announces a membership or metadata change to the room.
// Added users are joined to the live room first so they receive it too;
// removed users are detached after their last notification.
func (h *Hub) NotifyMembership(conv *model.Conversation, change, subjectID, actorID string) {
	roomID := conv.ID.Hex()

	if change == event.MembershipAdded && subjectID != "" {
		h.JoinUser(subjectID, roomID)
		h.SendToUser(subjectID, event.NewWsEvent(event.EventConversationNew, event.ConversationNewEvent{
			Conversation: *conv,
		}))
	}

	out := event.NewWsEvent(event.EventMembershipChanged, event.MembershipChangedEvent{
		ConversationID: roomID,
		Change:         change,
		UserID:         subjectID,
		ActorID:        actorID,
	})

	gone := (change == event.MembershipRemoved || change == event.MembershipLeft) && subjectID != ""
	if !gone {
		h.PublishToRoom(roomID, out, nil)
		return
	}

	// The subject's connections are still joined to the room at this point;
	// skip them here and deliver their single copy directly before detaching.
	h.PublishToRoom(roomID, out, func(c *Client) bool {
		return c.userID == subjectID
	})
	h.SendToUser(subjectID, out)
	h.DetachUser(subjectID, roomID)
}

func (h *Hub) deliver(c *Client, ev event.WsEvent, roomID string) {
	if c.SafeSend(ev, sendTimeout) {
		return
	}
	if c.IsClosed() {
		// disconnect race: the client is already being unregistered
		return
	}
	// egress full -> apply policy
	h.logger.Warn("egress full",
		zap.String("client_id", c.ID),
		zap.String("room_id", roomID),
	)
	if kickOnFull {
		// Unregister (safe async)
		h.unregister <- c
	}
}
