package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	pkgredis "github.com/tracepaper/core/internal/pkg/redis"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

// NewHub creates the gateway hub. rc may be nil when Redis is disabled.
func NewHub(rc *pkgredis.Client, logger *zap.Logger, adminTokenValidator func(string) bool) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	sio := socketio.NewServer(nil, nil)
	h := &Hub{
		roomBySID:           make(map[string]string),
		roomCount:           make(map[string]int),
		logSubs:             make(map[string]adminLogSubscription),
		broadcast:           make(chan Message, 256),
		register:            make(chan clientMeta, 256),
		unregister:          make(chan clientMeta, 256),
		rc:                  rc,
		logger:              logger,
		sio:                 sio,
		adminTokenValidator: adminTokenValidator,
	}
	h.registerNamespaces()
	return h
}

// Run starts the hub loop and, when Redis is configured, the cross-instance subscriber.
func (h *Hub) Run(ctx context.Context) {
	if h.rc != nil {
		go h.subscribeRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.sio.Close(nil)
			return

		case c := <-h.register:
			h.registerClient(c)

		case c := <-h.unregister:
			h.unregisterClient(c)

		case msg := <-h.broadcast:
			h.deliver(msg)

			if h.rc != nil {
				channel := redisChanPublic
				if msg.Room == RoomAdmin {
					channel = redisChanAdmin
				}
				data, err := json.Marshal(msg)
				if err != nil {
					continue
				}
				if err := h.rc.Publish(ctx, channel, string(data)); err != nil {
					h.logger.Warn("gateway publish failed", zap.String("channel", channel), zap.Error(err))
				}
			}
		}
	}
}

func (h *Hub) registerClient(c clientMeta) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if oldRoom, ok := h.roomBySID[c.sid]; ok {
		if oldRoom == c.room {
			return
		}
		if h.roomCount[oldRoom] > 0 {
			h.roomCount[oldRoom]--
		}
	}

	h.roomBySID[c.sid] = c.room
	h.roomCount[c.room]++
}

func (h *Hub) unregisterClient(c clientMeta) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.roomBySID[c.sid]
	if !ok {
		return
	}

	delete(h.roomBySID, c.sid)
	if h.roomCount[room] > 0 {
		h.roomCount[room]--
	}
}

// Broadcast sends an event to all clients in the given room (or all if room="").
func (h *Hub) Broadcast(event string, payload interface{}, room string) {
	h.broadcast <- Message{Event: event, Payload: payload, Room: room}
}

// BroadcastAdmin sends to admin room only.
func (h *Hub) BroadcastAdmin(event string, payload interface{}) {
	h.Broadcast(event, payload, RoomAdmin)
}

// BroadcastPublic sends to the public room.
func (h *Hub) BroadcastPublic(event string, payload interface{}) {
	h.Broadcast(event, payload, RoomPublic)
}

// ClientCount returns the number of connected clients (optionally filtered by room).
func (h *Hub) ClientCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if room == "" {
		return len(h.roomBySID)
	}
	return h.roomCount[room]
}

// Handler returns the socket.io HTTP handler mounted at /socket.io.
func (h *Hub) Handler() http.Handler {
	return h.sio.ServeHandler(nil)
}
