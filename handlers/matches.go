// handlers/matches.go
package handlers

import (
	"errors"
	"log"

	"arena-combat-server/models"
	"arena-combat-server/services"

	"github.com/gofiber/fiber/v2"
)

// MatchHandlers exposes the combat engine directly, without going through a
// room. Used by local/offline clients and the test scripts.
type MatchHandlers struct {
	Matches *services.MatchService
}

func SetupMatchRoutes(app *fiber.App, h *MatchHandlers) {
	app.Post("/api/games", h.CreateMatch)
	app.Get("/api/games", h.ListMatches)
	app.Post("/api/games/action", h.ProcessAction)
	app.Get("/api/games/:id", h.GetMatch)
}

type createMatchRequest struct {
	Player1 struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"player1"`
	Player2 struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"player2"`
}

// CreateMatch starts a match between two named players.
func (h *MatchHandlers) CreateMatch(c *fiber.Ctx) error {
	var req createMatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Player1.ID == "" || req.Player2.ID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "both players are required"})
	}

	match, err := h.Matches.CreateMatch(c.Context(),
		models.PlayerState{ID: req.Player1.ID, Name: req.Player1.Name},
		models.PlayerState{ID: req.Player2.ID, Name: req.Player2.Name},
	)
	if err != nil {
		log.Printf("[http] create match failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create match"})
	}
	return c.JSON(match)
}

// GetMatch returns a match by id.
func (h *MatchHandlers) GetMatch(c *fiber.Ctx) error {
	match, err := h.Matches.GetMatch(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "storage error"})
	}
	if match == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "match not found"})
	}
	return c.JSON(match)
}

// ListMatches returns every stored match.
func (h *MatchHandlers) ListMatches(c *fiber.Ctx) error {
	matches, err := h.Matches.ListMatches(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "storage error"})
	}
	return c.JSON(matches)
}

// ProcessAction applies a combat action straight to the engine.
func (h *MatchHandlers) ProcessAction(c *fiber.Ctx) error {
	var action models.Action
	if err := c.BodyParser(&action); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}

	match, _, err := h.Matches.ApplyAction(c.Context(), &action)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMatchNotRunning),
			errors.Is(err, services.ErrUnknownPlayer):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		default:
			log.Printf("[http] match action failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "storage error"})
		}
	}
	return c.JSON(match)
}
