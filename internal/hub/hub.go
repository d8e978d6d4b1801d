package hub

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/event"
)

const (
	shardCount = 64 // tune: 16/64/128 depending on load
)

type inboundMessage struct {
	event  event.WsEvent
	client *Client
}

type clientBucket struct {
	sync.RWMutex
	rooms map[string]map[string]*Client
}

// Hub routes events between connected clients. Rooms are conversation ids,
// sharded by hash to keep lock contention low; a per-user index backs
// direct delivery and presence.
type Hub struct {
	shards     [shardCount]*clientBucket
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundMessage

	// userID -> clientID -> client
	users   map[string]map[string]*Client
	usersMu sync.RWMutex

	chat   *ChatHandler
	logger *zap.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		register:   make(chan *Client, 1024),
		unregister: make(chan *Client, 1024),
		inbound:    make(chan inboundMessage, 4096), // buffer for burst handling
		users:      make(map[string]map[string]*Client),
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}

	for i := 0; i < shardCount; i++ {
		h.shards[i] = &clientBucket{
			rooms: make(map[string]map[string]*Client),
		}
	}

	// run manager loop
	go h.run()

	// start worker loop
	for i := 0; i < workerPoolSize; i++ {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			for {
				select {
				case <-h.ctx.Done():
					return
				case in := <-h.inbound:
					h.handleEvent(in.event, in.client)
				}
			}
		}()
	}

	return h
}

// SetChatHandler sets the inbound event handler. Must be called before the
// first client connects.
func (h *Hub) SetChatHandler(ch *ChatHandler) {
	h.chat = ch
}

func (h *Hub) handleEvent(ev event.WsEvent, c *Client) {
	if strings.HasPrefix(ev.Event, "chat:") && h.chat != nil {
		h.chat.HandleChatEvent(ev, c)
		return
	}
	h.logger.Warn("unknown event type",
		zap.String("event", ev.Event),
		zap.String("client_id", c.ID),
	)
}

func (h *Hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		}
	}
}

func getShard(roomID string) uint32 {
	if roomID == "" {
		return 0
	}

	s := sha1.Sum([]byte(roomID))
	return binary.BigEndian.Uint32(s[:4]) % shardCount
}

func (h *Hub) addClient(c *Client) {
	h.usersMu.Lock()
	conns, ok := h.users[c.userID]
	if !ok {
		conns = make(map[string]*Client)
		h.users[c.userID] = conns
	}
	conns[c.ID] = c
	h.usersMu.Unlock()
}

func (h *Hub) removeClient(c *Client) {
	for _, roomID := range c.Rooms() {
		h.removeFromRoom(c, roomID)
	}

	h.usersMu.Lock()
	if conns, ok := h.users[c.userID]; ok {
		delete(conns, c.ID)
		if len(conns) == 0 {
			delete(h.users, c.userID)
		}
	}
	h.usersMu.Unlock()

	c.Close()

	// Disconnect handling writes to the database; it must not stall the
	// manager loop that drains register/unregister.
	if h.chat != nil {
		go h.chat.handleDisconnect(c)
	}
}

// JoinRoom adds a client to a conversation room.
func (h *Hub) JoinRoom(c *Client, roomID string) {
	sh := getShard(roomID)
	b := h.shards[sh]
	b.Lock()
	room, ok := b.rooms[roomID]
	if !ok {
		room = make(map[string]*Client)
		b.rooms[roomID] = room
	}
	room[c.ID] = c
	b.Unlock()

	c.joinRoom(roomID)
}

// LeaveRoom removes a client from a conversation room.
func (h *Hub) LeaveRoom(c *Client, roomID string) {
	h.removeFromRoom(c, roomID)
	c.leaveRoom(roomID)
}

func (h *Hub) removeFromRoom(c *Client, roomID string) {
	sh := getShard(roomID)
	b := h.shards[sh]
	b.Lock()
	defer b.Unlock()

	if room, ok := b.rooms[roomID]; ok {
		delete(room, c.ID)
		if len(room) == 0 {
			delete(b.rooms, roomID)
		}
	}
}

// JoinUser joins every live connection of a user to a room. Used when the
// user is added to a conversation while online.
func (h *Hub) JoinUser(userID, roomID string) {
	for _, c := range h.clientsForUser(userID) {
		h.JoinRoom(c, roomID)
	}
}

// DetachUser removes every live connection of a user from a room.
func (h *Hub) DetachUser(userID, roomID string) {
	for _, c := range h.clientsForUser(userID) {
		h.LeaveRoom(c, roomID)
	}
}

// roomClients returns a snapshot of the clients joined to a room.
func (h *Hub) roomClients(roomID string) []*Client {
	sh := getShard(roomID)
	b := h.shards[sh]

	b.RLock()
	room, ok := b.rooms[roomID]
	if !ok || len(room) == 0 {
		b.RUnlock()
		return nil
	}
	clients := make([]*Client, 0, len(room))
	for _, c := range room {
		clients = append(clients, c)
	}
	b.RUnlock()
	return clients
}

func (h *Hub) clientsForUser(userID string) []*Client {
	h.usersMu.RLock()
	defer h.usersMu.RUnlock()

	conns, ok := h.users[userID]
	if !ok {
		return nil
	}
	clients := make([]*Client, 0, len(conns))
	for _, c := range conns {
		clients = append(clients, c)
	}
	return clients
}

// IsConnected reports whether the user has at least one live connection.
func (h *Hub) IsConnected(userID string) bool {
	h.usersMu.RLock()
	defer h.usersMu.RUnlock()
	_, ok := h.users[userID]
	return ok
}

func (h *Hub) Stop() {
	h.cancel()

	// Close all client connections
	for _, shard := range h.shards {
		shard.RLock()
		for _, room := range shard.rooms {
			for _, client := range room {
				client.Close()
			}
		}
		shard.RUnlock()
	}

	// inbound stays open: reader goroutines may still be mid-send into it
	// while they wind down, and a send on a closed channel panics. Workers
	// exit through ctx instead.
	h.wg.Wait()
}
