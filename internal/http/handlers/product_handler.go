package handlers

import (
	"github.com/gofiber/fiber/v2"

	"wastenot/internal/services"
)

type ProductHandler struct {
	Catalog services.Catalog
}

func (h *ProductHandler) List(c *fiber.Ctx) error {
	return ok(c, fiber.StatusOK, "products", h.Catalog.Products())
}
