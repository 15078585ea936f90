package gateway

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

func (h *Hub) gatewayMessageFormat(event string, payload interface{}, code *int) gatewayPayload {
	return gatewayPayload{
		Type: event,
		Data: payload,
		Code: code,
	}
}

func (h *Hub) deliver(msg Message) {
	frame := h.gatewayMessageFormat(msg.Event, msg.Payload, msg.Code)
	for _, nsp := range namespacesForRoom(msg.Room) {
		h.sio.Of(nsp, nil).Emit("message", frame)
	}
}

// namespacesForRoom maps a broadcast room to the socket.io namespaces it
// reaches. The empty room means both.
func namespacesForRoom(room string) []string {
	switch room {
	case RoomAdmin:
		return []string{namespaceAdmin}
	case RoomPublic:
		return []string{namespaceWeb}
	case "":
		return []string{namespaceAdmin, namespaceWeb}
	default:
		return nil
	}
}

// subscribeRedis replays broadcasts published by other server instances so
// every instance's clients see the same event stream.
func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.rc.Subscribe(ctx, redisChanAdmin, redisChanPublic)
	go func() {
		<-ctx.Done()
		_ = pubsub.Close()
	}()

	for redisMsg := range pubsub.Channel() {
		var msg Message
		if err := json.Unmarshal([]byte(redisMsg.Payload), &msg); err != nil {
			h.logger.Warn("gateway: bad redis frame", zap.Error(err))
			continue
		}
		h.deliver(msg)
	}
}
