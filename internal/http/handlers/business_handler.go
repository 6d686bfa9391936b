package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "wastenot/internal/log"
	"wastenot/internal/services"
	"wastenot/internal/validate"
)

type BusinessHandler struct {
	Businesses *services.BusinessService
}

// POST /api/local_businesses
func (h *BusinessHandler) Create(c *fiber.Ctx) error {
	var in services.NewBusiness
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	if _, okText := validate.Text(in.Name, 120); !okText {
		return badField(c, "name", "too long")
	}
	if _, okText := validate.Text(in.Address, 240); !okText {
		return badField(c, "address", "too long")
	}
	b, err := h.Businesses.Create(c.UserContext(), in)
	if err != nil {
		return fail(c, "business.create", err)
	}
	applog.Audit(c, "business.create", map[string]any{"business_id": b.BusinessID})
	return ok(c, fiber.StatusCreated, "local business registered", b)
}

// GET /api/local_businesses
func (h *BusinessHandler) List(c *fiber.Ctx) error {
	list, err := h.Businesses.List(c.UserContext())
	if err != nil {
		return fail(c, "business.list", err)
	}
	return ok(c, fiber.StatusOK, "local businesses", list)
}
