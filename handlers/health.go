// handlers/health.go
package handlers

import (
	"time"

	"arena-combat-server/services"

	"github.com/gofiber/fiber/v2"
)

type HealthHandlers struct {
	Rooms   *services.RoomService
	Matches *services.MatchService
	Hub     *services.Hub
	Store   services.Store
}

func SetupHealthRoutes(app *fiber.App, h *HealthHandlers) {
	app.Get("/health", h.Health)
	app.Get("/api/debug/state", h.DebugState)
}

func (h *HealthHandlers) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UnixMilli(),
	})
}

// DebugState reports cache sizes and storage row counts for each collection.
func (h *HealthHandlers) DebugState(c *fiber.Ctx) error {
	counts := fiber.Map{}
	for _, collection := range []string{
		services.CollectionRooms,
		services.CollectionMatches,
		services.CollectionUsers,
	} {
		records, err := h.Store.LoadAll(c.Context(), collection)
		if err != nil {
			counts[collection] = fiber.Map{"error": err.Error()}
			continue
		}
		counts[collection] = len(records)
	}

	return c.JSON(fiber.Map{
		"storage":        counts,
		"cachedRooms":    h.Rooms.CachedRoomCount(),
		"cachedGames":    h.Matches.CachedMatchCount(),
		"activeChannels": h.Hub.ActiveChannelCount(),
		"timestamp":      time.Now().UnixMilli(),
	})
}
