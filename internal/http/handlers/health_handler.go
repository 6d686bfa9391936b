package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"

	"wastenot/internal/repos"
)

type HealthHandler struct {
	DB *sqlx.DB
}

func (h *HealthHandler) storage(c *fiber.Ctx) string {
	if err := repos.Ping(c.UserContext(), h.DB); err != nil {
		return "unavailable"
	}
	return "ok"
}

func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Welcome to the wastenot surplus exchange API", "storage": h.storage(c)})
}

func (h *HealthHandler) Healthz(c *fiber.Ctx) error {
	if st := h.storage(c); st != "ok" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"ok": false, "storage": st})
	}
	return c.JSON(fiber.Map{"ok": true, "storage": "ok"})
}
