package model

// Read-model projections assembled once per query or fanout, instead of
// ad-hoc field lookups scattered across call sites.

// SenderInfo is the slice of a user shown next to a message.
type SenderInfo struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Avatar *string `json:"avatar"`
}

// MessageView is a message joined with its sender's display fields.
type MessageView struct {
	Message
	SenderInfo SenderInfo `json:"senderInfo"`
}

// ConversationSummary is a conversation joined with the caller's ChatMeta.
type ConversationSummary struct {
	Conversation
	IsRead     bool `json:"isRead"`
	IsFavorite bool `json:"isFavorite"`
	Muted      bool `json:"muted"`
	Archived   bool `json:"archived"`
	Pinned     bool `json:"pinned"`
}

// NewConversationSummary builds the caller's view of a conversation.
func NewConversationSummary(c *Conversation, meta *ChatMeta) ConversationSummary {
	s := ConversationSummary{Conversation: *c, IsRead: true}
	if meta != nil {
		s.IsRead = meta.IsRead
		s.IsFavorite = meta.IsFavorite
		s.Muted = meta.Muted
		s.Archived = meta.Archived
		s.Pinned = c.IsPinnedBy(meta.User)
	}
	return s
}
