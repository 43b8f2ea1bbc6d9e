// handlers/users.go
package handlers

import (
	"errors"
	"log"

	"arena-combat-server/models"
	"arena-combat-server/services"

	"github.com/gofiber/fiber/v2"
)

// UserHandlers exposes player profile, currency and inventory CRUD.
type UserHandlers struct {
	Users *services.UserService
}

func SetupUserRoutes(app *fiber.App, h *UserHandlers) {
	app.Post("/api/users", h.CreateUser)
	app.Get("/api/users", h.ListUsers)
	app.Get("/api/users/:id", h.GetUser)
	app.Put("/api/users/:id", h.UpdateUser)
	app.Delete("/api/users/:id", h.DeleteUser)
	app.Post("/api/users/:id/rating", h.ApplyMatchResult)
	app.Post("/api/users/:id/currency", h.AdjustCurrency)
	app.Post("/api/users/:id/inventory", h.AddToInventory)
	app.Get("/api/users/:id/inventory/:itemId", h.HasItem)
}

type createUserRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *UserHandlers) CreateUser(c *fiber.Ctx) error {
	var req createUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}

	user, err := h.Users.CreateUser(c.Context(), req.ID, req.Name, req.Email)
	if err != nil {
		log.Printf("[http] create user failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create user"})
	}
	return c.JSON(user)
}

func (h *UserHandlers) GetUser(c *fiber.Ctx) error {
	user, err := h.Users.GetUser(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "storage error"})
	}
	if user == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	}
	return c.JSON(user)
}

func (h *UserHandlers) ListUsers(c *fiber.Ctx) error {
	users, err := h.Users.ListUsers(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "storage error"})
	}
	return c.JSON(users)
}

func (h *UserHandlers) UpdateUser(c *fiber.Ctx) error {
	var user models.User
	if err := c.BodyParser(&user); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	user.ID = c.Params("id")

	if err := h.Users.UpdateUser(c.Context(), &user); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "storage error"})
	}
	return c.JSON(user)
}

func (h *UserHandlers) DeleteUser(c *fiber.Ctx) error {
	if err := h.Users.DeleteUser(c.Context(), c.Params("id")); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "storage error"})
	}
	return c.JSON(fiber.Map{"deleted": c.Params("id")})
}

type ratingRequest struct {
	Win bool `json:"win"`
}

// ApplyMatchResult adjusts rating and rewards after a match outcome.
func (h *UserHandlers) ApplyMatchResult(c *fiber.Ctx) error {
	var req ratingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}

	user, err := h.Users.ApplyMatchResult(c.Context(), c.Params("id"), req.Win)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "storage error"})
	}
	return c.JSON(user)
}

type currencyRequest struct {
	Coins int `json:"coin"`
	Gems  int `json:"gem"`
}

func (h *UserHandlers) AdjustCurrency(c *fiber.Ctx) error {
	var req currencyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}

	user, err := h.Users.AdjustCurrency(c.Context(), c.Params("id"), req.Coins, req.Gems)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "storage error"})
	}
	return c.JSON(user)
}

type inventoryRequest struct {
	ItemID string `json:"itemId"`
}

func (h *UserHandlers) AddToInventory(c *fiber.Ctx) error {
	var req inventoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.ItemID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "itemId is required"})
	}

	user, err := h.Users.AddToInventory(c.Context(), c.Params("id"), req.ItemID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "storage error"})
	}
	return c.JSON(user)
}

func (h *UserHandlers) HasItem(c *fiber.Ctx) error {
	has, err := h.Users.HasItem(c.Context(), c.Params("id"), c.Params("itemId"))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "storage error"})
	}
	return c.JSON(fiber.Map{"itemId": c.Params("itemId"), "owned": has})
}
