// handlers/rooms.go
package handlers

import (
	"errors"
	"log"

	"arena-combat-server/models"
	"arena-combat-server/services"

	"github.com/gofiber/fiber/v2"
)

// RoomHandlers exposes the room lifecycle over HTTP.
type RoomHandlers struct {
	Rooms    *services.RoomService
	Matches  *services.MatchService
	Pipeline *services.ActionPipeline
}

func SetupRoomRoutes(app *fiber.App, h *RoomHandlers) {
	app.Post("/api/rooms", h.CreateRoom)
	app.Get("/api/rooms", h.ListRooms)
	app.Get("/api/rooms/available", h.ListAvailable)
	app.Post("/api/rooms/clear", h.ClearRooms)
	app.Get("/api/rooms/:roomId", h.GetRoom)
	app.Post("/api/rooms/:roomId/join", h.JoinRoom)
	app.Put("/api/rooms/:roomId/status", h.UpdateStatus)
	app.Post("/api/rooms/:roomId/action", h.ProcessAction)
}

type createRoomRequest struct {
	HostID        string         `json:"hostId"`
	HostName      string         `json:"hostName"`
	HostCharacter map[string]any `json:"hostCharacter"`
}

// CreateRoom opens a new waiting room for the host.
func (h *RoomHandlers) CreateRoom(c *fiber.Ctx) error {
	var req createRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.HostID == "" || req.HostName == "" || req.HostCharacter == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   models.JoinErrMissingFields,
			"message": "hostId, hostName and hostCharacter are required",
		})
	}

	room, err := h.Rooms.CreateRoom(c.Context(), req.HostID, req.HostName, req.HostCharacter)
	if err != nil {
		log.Printf("[http] create room failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": models.JoinErrInternal})
	}
	return c.JSON(room)
}

type joinRoomRequest struct {
	GuestID        string         `json:"guestId"`
	GuestName      string         `json:"guestName"`
	GuestCharacter map[string]any `json:"guestCharacter"`
}

// JoinRoom fills the guest slot and, when the room flips to playing, creates
// the match and attaches its id to the room.
func (h *RoomHandlers) JoinRoom(c *fiber.Ctx) error {
	roomID := c.Params("roomId")

	var req joinRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.GuestID == "" || req.GuestName == "" || req.GuestCharacter == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   models.JoinErrMissingFields,
			"message": "guestId, guestName and guestCharacter are required",
		})
	}

	result, err := h.Rooms.JoinRoom(c.Context(), roomID, req.GuestID, req.GuestName, req.GuestCharacter)
	if err != nil {
		log.Printf("[http] join room %s failed: %v", roomID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": models.JoinErrInternal})
	}
	if !result.Success {
		return c.Status(joinStatusCode(result.ErrorCode)).JSON(fiber.Map{
			"error":   result.ErrorCode,
			"message": result.ErrorMessage,
		})
	}

	room := result.Room
	if room.Status == models.RoomStatusPlaying && room.GameID == "" {
		match, err := h.Matches.CreateFromRoom(c.Context(), room)
		if err != nil {
			log.Printf("[http] match creation for room %s failed: %v", roomID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": models.JoinErrInternal})
		}
		room, err = h.Rooms.SetGameID(c.Context(), roomID, match.ID)
		if err != nil {
			log.Printf("[http] attaching match to room %s failed: %v", roomID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": models.JoinErrInternal})
		}
		h.Pipeline.PublishRoomState(room)
	}
	return c.JSON(room)
}

// joinStatusCode maps join error codes onto HTTP statuses.
func joinStatusCode(code string) int {
	switch code {
	case models.JoinErrRoomNotFound:
		return fiber.StatusNotFound
	case models.JoinErrRoomFull, models.JoinErrRoomInProgress,
		models.JoinErrRoomFinished, models.JoinErrRoomNotAvailable:
		return fiber.StatusConflict
	case models.JoinErrInternal:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusBadRequest
	}
}

// GetRoom returns one room by id.
func (h *RoomHandlers) GetRoom(c *fiber.Ctx) error {
	room, err := h.Rooms.GetRoom(c.Context(), c.Params("roomId"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": models.JoinErrInternal})
	}
	if room == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": models.JoinErrRoomNotFound})
	}
	return c.JSON(room)
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Winner string `json:"winner"`
}

// UpdateStatus moves a room forward through its lifecycle.
func (h *RoomHandlers) UpdateStatus(c *fiber.Ctx) error {
	roomID := c.Params("roomId")

	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}

	room, err := h.Rooms.UpdateStatus(c.Context(), roomID, req.Status, req.Winner)
	if err != nil {
		if errors.Is(err, services.ErrStatusRegression) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": models.JoinErrInternal})
	}
	if room == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": models.JoinErrRoomNotFound})
	}
	h.Pipeline.PublishRoomState(room)
	return c.JSON(room)
}

// ProcessAction is the REST ingestion path: the action runs through the same
// pipeline as socket traffic.
func (h *RoomHandlers) ProcessAction(c *fiber.Ctx) error {
	roomID := c.Params("roomId")

	var action models.Action
	if err := c.BodyParser(&action); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if action.PlayerID == "" {
		if id, ok := c.Locals("player_id").(string); ok {
			action.PlayerID = id
		}
	}
	// Clients never mint critical actions over HTTP either.
	action.IsCritical = false

	match, err := h.Pipeline.Process(c.Context(), roomID, &action)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidAction),
			errors.Is(err, services.ErrUnknownPlayer),
			errors.Is(err, services.ErrMatchNotRunning):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		default:
			log.Printf("[http] action for room %s failed: %v", roomID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": models.JoinErrInternal})
		}
	}
	if match != nil {
		return c.JSON(match)
	}
	return c.JSON(fiber.Map{"accepted": true})
}

// ListRooms returns every room.
func (h *RoomHandlers) ListRooms(c *fiber.Ctx) error {
	rooms, err := h.Rooms.ListRooms(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": models.JoinErrInternal})
	}
	return c.JSON(rooms)
}

// ListAvailable returns rooms still waiting for a guest.
func (h *RoomHandlers) ListAvailable(c *fiber.Ctx) error {
	rooms, err := h.Rooms.ListAvailable(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": models.JoinErrInternal})
	}
	return c.JSON(rooms)
}

// ClearRooms wipes every room. Debug aid.
func (h *RoomHandlers) ClearRooms(c *fiber.Ctx) error {
	deleted, err := h.Rooms.Clear(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": models.JoinErrInternal})
	}
	return c.JSON(fiber.Map{"deleted": deleted})
}
