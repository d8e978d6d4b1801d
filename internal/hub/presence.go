package hub

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/repo"
)

// Presence tracks live connection ids per user. A user is online while at
// least one connection is open; the first connection and the last
// disconnect are the only transitions that persist and broadcast. Keying
// by connection id makes both calls idempotent per connection, so a
// connection torn down before its Connect ran cannot leave a phantom entry.
type Presence struct {
	mu    sync.Mutex
	conns map[string]map[string]struct{}

	users  repo.UserRepository
	logger *zap.Logger
}

func NewPresence(users repo.UserRepository, logger *zap.Logger) *Presence {
	return &Presence{
		conns:  make(map[string]map[string]struct{}),
		users:  users,
		logger: logger,
	}
}

// Connect records one connection. Returns true when this connection took
// the user from offline to online.
func (p *Presence) Connect(ctx context.Context, userID, connID string) bool {
	p.mu.Lock()
	set, ok := p.conns[userID]
	if !ok {
		set = make(map[string]struct{})
		p.conns[userID] = set
	}
	_, known := set[connID]
	set[connID] = struct{}{}
	wentOnline := !known && len(set) == 1
	p.mu.Unlock()

	if wentOnline {
		p.persist(ctx, userID, true, nil)
	}
	return wentOnline
}

// Disconnect records one closed connection. Returns true and the last-seen
// timestamp when this was the user's final connection. Unknown connections
// are a no-op.
func (p *Presence) Disconnect(ctx context.Context, userID, connID string) (bool, time.Time) {
	p.mu.Lock()
	set, ok := p.conns[userID]
	if !ok {
		p.mu.Unlock()
		return false, time.Time{}
	}
	if _, ok := set[connID]; !ok {
		p.mu.Unlock()
		return false, time.Time{}
	}
	delete(set, connID)
	wentOffline := len(set) == 0
	if wentOffline {
		delete(p.conns, userID)
	}
	p.mu.Unlock()

	if !wentOffline {
		return false, time.Time{}
	}

	lastSeen := time.Now()
	p.persist(ctx, userID, false, &lastSeen)
	return true, lastSeen
}

// IsOnline reports whether the user has at least one live connection on
// this node.
func (p *Presence) IsOnline(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns[userID]) > 0
}

// Snapshot returns the ids of every user currently online on this node.
func (p *Presence) Snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, 0, len(p.conns))
	for id := range p.conns {
		out = append(out, id)
	}
	return out
}

// persist mirrors the transition into the user document. In-memory state
// stays authoritative for broadcasting even when the write fails.
func (p *Presence) persist(ctx context.Context, userID string, online bool, lastSeen *time.Time) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		p.logger.Error("malformed user id in presence update", zap.String("user_id", userID))
		return
	}
	if err := p.users.SetPresence(ctx, id, online, lastSeen); err != nil {
		p.logger.Warn("presence persist failed",
			zap.String("user_id", userID),
			zap.Bool("online", online),
			zap.Error(err),
		)
	}
}
