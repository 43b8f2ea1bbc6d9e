// handlers/socket.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"arena-combat-server/models"
	"arena-combat-server/services"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SocketMessage is the envelope framing every inbound socket exchange.
type SocketMessage struct {
	Type    string          `json:"type"` // "action", "join", "ping"
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SocketHandlers bridges room WebSocket connections onto the action pipeline
// and the broadcast hub.
type SocketHandlers struct {
	Rooms    *services.RoomService
	Pipeline *services.ActionPipeline
	Hub      *services.Hub
}

func SetupSocketRoutes(app *fiber.App, h *SocketHandlers) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/rooms/:roomId", websocket.New(h.HandleRoomSocket))
}

// HandleRoomSocket subscribes the connection to the room's primary, state and
// reliable channels and pumps inbound messages through the pipeline. The
// writer goroutine is the only one touching the socket for writes; direct
// replies are funneled through the subscriber channel.
func (h *SocketHandlers) HandleRoomSocket(c *websocket.Conn) {
	roomID := c.Params("roomId")
	connID := uuid.NewString()

	sub := h.Hub.Subscribe(connID,
		services.RoomChannel(roomID),
		services.RoomStateChannel(roomID),
		services.RoomReliableChannel(roomID),
	)
	done := make(chan struct{})
	defer func() {
		close(done)
		sub.Close()
		_ = c.Close()
	}()

	go func() {
		for {
			select {
			case data := <-sub.Messages:
				if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	// reply queues a direct message for this connection only.
	reply := func(payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		select {
		case sub.Messages <- data:
		default:
			log.Printf("[ws] dropping reply for slow connection %s", connID)
		}
	}

	log.Printf("[ws] connection %s attached to room %s", connID, roomID)

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] connection %s read error: %v", connID, err)
			}
			break
		}

		var msg SocketMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			reply(fiber.Map{"type": "error", "error": "invalid message format"})
			continue
		}

		switch msg.Type {
		case "action":
			h.handleAction(roomID, msg.Payload, reply)
		case "join":
			h.handleJoin(roomID, msg.Payload, reply)
		case "ping":
			reply(fiber.Map{"type": "pong", "timestamp": time.Now().UnixMilli()})
		default:
			reply(fiber.Map{"type": "error", "error": "unknown message type: " + msg.Type})
		}
	}

	log.Printf("[ws] connection %s detached from room %s", connID, roomID)
}

func (h *SocketHandlers) handleAction(roomID string, payload json.RawMessage, reply func(any)) {
	var action models.Action
	if err := json.Unmarshal(payload, &action); err != nil {
		reply(fiber.Map{"type": "error", "error": "invalid action payload"})
		return
	}
	// Actions from the wire are never trusted as critical.
	action.IsCritical = false

	if _, err := h.Pipeline.Process(context.Background(), roomID, &action); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidAction),
			errors.Is(err, services.ErrUnknownPlayer),
			errors.Is(err, services.ErrMatchNotRunning):
			reply(fiber.Map{"type": "error", "error": err.Error()})
		default:
			log.Printf("[ws] action for room %s failed: %v", roomID, err)
			reply(fiber.Map{"type": "error", "error": "failed to process action"})
		}
	}
}

type socketJoinPayload struct {
	PlayerID string `json:"playerId"`
}

// handleJoin announces a socket-level join and replays the current room state
// on the state channel.
func (h *SocketHandlers) handleJoin(roomID string, payload json.RawMessage, reply func(any)) {
	var req socketJoinPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.PlayerID == "" {
		reply(fiber.Map{"type": "error", "error": "playerId is required"})
		return
	}

	room, err := h.Rooms.GetRoom(context.Background(), roomID)
	if err != nil || room == nil {
		reply(fiber.Map{"type": "error", "error": "room not found"})
		return
	}

	h.Hub.Publish(services.RoomChannel(roomID), fiber.Map{
		"type":      "player_joined",
		"playerId":  req.PlayerID,
		"roomId":    roomID,
		"timestamp": time.Now().UnixMilli(),
	})
	h.Pipeline.PublishRoomState(room)
}
