package hub

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/event"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/repo"
)

// Gateway attaches authenticated WebSocket connections to the hub: it
// upgrades the request, joins the client to every conversation room the
// user belongs to, and announces the presence transition.
type Gateway struct {
	hub           *Hub
	presence      *Presence
	conversations repo.ConversationRepository
	upgrader      websocket.Upgrader
	logger        *zap.Logger
}

func NewGateway(h *Hub, presence *Presence, conversations repo.ConversationRepository, allowedOrigins []string, logger *zap.Logger) *Gateway {
	return &Gateway{
		hub:           h,
		presence:      presence,
		conversations: conversations,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// non-browser clients
			return true
		}
		if _, ok := set["*"]; ok {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// ServeWS upgrades an already-authenticated request. Authentication is the
// caller's responsibility and must happen before the upgrade so a rejected
// handshake still gets a proper HTTP status.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// Room membership is read before the upgrade; a dead database should
	// fail the handshake, not strand a connected client in no rooms.
	rooms, err := g.conversations.MemberConversationIDs(r.Context(), uid)
	if err != nil {
		g.logger.Error("room lookup failed on connect", zap.String("user_id", userID), zap.Error(err))
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	// Presence is recorded before the client goes live: a connection that
	// dies mid-handshake is then torn down as a normal disconnect instead
	// of leaving a connect that never pairs with one.
	connID := uuid.New().String()
	wentOnline := g.presence.Connect(ctx, userID, connID)

	client := RegisterClient(userID, connID, conn, g.hub)
	if client == nil {
		g.presence.Disconnect(ctx, userID, connID)
		return
	}

	for _, id := range rooms {
		g.hub.JoinRoom(client, id.Hex())
	}

	if wentOnline {
		out := event.NewWsEvent(event.EventPresenceChanged, event.PresenceEvent{
			UserID:   userID,
			IsOnline: true,
		})
		g.hub.BroadcastToRooms(client.Rooms(), out, userID)
	}
}
