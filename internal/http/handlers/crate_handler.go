package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "wastenot/internal/log"
	"wastenot/internal/services"
	"wastenot/internal/validate"
)

type CrateHandler struct {
	Crates         *services.CrateService
	DefaultStoreID string
}

// POST /api/surplus_crates
func (h *CrateHandler) Create(c *fiber.Ctx) error {
	var in services.NewCrate
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	sid, okID := validate.OptionalID(in.StoreID)
	if !okID {
		return badField(c, "storeId", "invalid store id")
	}
	if sid == "" {
		sid = h.DefaultStoreID
	}
	in.StoreID = sid
	window, okText := validate.Text(in.PickupWindow, 120)
	if !okText {
		return badField(c, "pickupWindow", "too long")
	}
	in.PickupWindow = window

	crate, err := h.Crates.Create(c.UserContext(), in)
	if err != nil {
		return fail(c, "crate.create", err)
	}
	applog.Audit(c, "crate.create", map[string]any{"crate_id": crate.CrateID, "store_id": crate.StoreID, "items": len(crate.Items)})
	return ok(c, fiber.StatusCreated, "surplus crate listed", crate)
}

// GET /api/surplus_crates/store/:storeId
func (h *CrateHandler) ByStore(c *fiber.Ctx) error {
	sid, okID := validate.ID(c.Params("storeId"))
	if !okID {
		return badField(c, "storeId", "invalid store id")
	}
	crates, err := h.Crates.ListByStore(c.UserContext(), sid)
	if err != nil {
		return fail(c, "crate.list_store", err)
	}
	return ok(c, fiber.StatusOK, "store crates", crates)
}

// GET /api/surplus_crates/available
func (h *CrateHandler) Available(c *fiber.Ctx) error {
	crates, err := h.Crates.ListAvailable(c.UserContext())
	if err != nil {
		return fail(c, "crate.list_available", err)
	}
	return ok(c, fiber.StatusOK, "available crates", crates)
}
