package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "wastenot/internal/log"
	"wastenot/internal/services"
	"wastenot/internal/validate"
)

type InventoryHandler struct {
	Inv            *services.InventoryService
	DefaultStoreID string
}

// POST /api/inventory_items
func (h *InventoryHandler) Create(c *fiber.Ctx) error {
	var in services.NewInventoryItem
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	pid, okID := validate.ID(in.ProductID)
	if !okID {
		return badField(c, "productId", "must be a non-empty id")
	}
	sid, okID := validate.OptionalID(in.StoreID)
	if !okID {
		return badField(c, "storeId", "invalid store id")
	}
	if sid == "" {
		sid = h.DefaultStoreID
	}
	date, okDate := validate.Date(in.PurchaseDate)
	if !okDate {
		return badField(c, "purchaseDate", "must be YYYY-MM-DD")
	}
	in.ProductID, in.StoreID, in.PurchaseDate = pid, sid, date

	item, err := h.Inv.CreateItem(c.UserContext(), in)
	if err != nil {
		return fail(c, "inventory.create", err)
	}
	applog.Audit(c, "inventory.create", map[string]any{"inventory_item_id": item.InventoryItemID, "product_id": item.ProductID, "quantity": item.Quantity})
	return ok(c, fiber.StatusCreated, "inventory item created", item)
}

// GET /api/inventory_items/store/:storeId/at-risk
func (h *InventoryHandler) AtRisk(c *fiber.Ctx) error {
	sid, okID := validate.ID(c.Params("storeId"))
	if !okID {
		return badField(c, "storeId", "invalid store id")
	}
	items, err := h.Inv.ListAtRisk(c.UserContext(), sid)
	if err != nil {
		return fail(c, "inventory.at_risk", err)
	}
	return ok(c, fiber.StatusOK, "at-risk inventory", items)
}
