// middleware/player_context.go
package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// PlayerContextMiddleware extracts the player identity headers sent by the
// game client and attaches them to the request context. Action payloads that
// omit an explicit playerId fall back to these values.
func PlayerContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("player_id", c.Get("X-Player-ID"))
		c.Locals("player_name", c.Get("X-Player-Name"))
		return c.Next()
	}
}
