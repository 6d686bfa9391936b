package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "wastenot/internal/log"
	"wastenot/internal/services"
	"wastenot/internal/validate"
)

type OfferHandler struct {
	Offers *services.OfferService
}

// POST /api/surplus_crates/:crateId/offers
func (h *OfferHandler) Submit(c *fiber.Ctx) error {
	crateID, okID := validate.ID(c.Params("crateId"))
	if !okID {
		return badField(c, "crateId", "invalid crate id")
	}
	var in services.NewOffer
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	bid, okID := validate.ID(in.BusinessID)
	if !okID {
		return badField(c, "businessId", "must be a non-empty id")
	}
	in.BusinessID = bid

	offer, err := h.Offers.Submit(c.UserContext(), crateID, in)
	if err != nil {
		return fail(c, "offer.submit", err)
	}
	applog.Audit(c, "offer.submit", map[string]any{"crate_id": crateID, "offer_id": offer.OfferID, "business_id": bid})
	return ok(c, fiber.StatusCreated, "offer submitted", offer)
}

// GET /api/surplus_crates/:crateId/offers
func (h *OfferHandler) List(c *fiber.Ctx) error {
	crateID, okID := validate.ID(c.Params("crateId"))
	if !okID {
		return badField(c, "crateId", "invalid crate id")
	}
	offers, err := h.Offers.List(c.UserContext(), crateID)
	if err != nil {
		return fail(c, "offer.list", err)
	}
	return ok(c, fiber.StatusOK, "crate offers", offers)
}

// PUT /api/surplus_crates/:crateId/offers/:offerId/respond?response_status=accepted|rejected
func (h *OfferHandler) Respond(c *fiber.Ctx) error {
	crateID, okID := validate.ID(c.Params("crateId"))
	if !okID {
		return badField(c, "crateId", "invalid crate id")
	}
	offerID, okID := validate.ID(c.Params("offerId"))
	if !okID {
		return badField(c, "offerId", "invalid offer id")
	}
	decision, okDec := validate.Decision(c.Query("response_status"))
	if !okDec {
		return badField(c, "response_status", "must be 'accepted' or 'rejected'")
	}

	offer, err := h.Offers.Respond(c.UserContext(), crateID, offerID, decision)
	if err != nil {
		return fail(c, "offer.respond", err)
	}
	applog.Audit(c, "offer.respond", map[string]any{"crate_id": crateID, "offer_id": offerID, "status": string(offer.Status)})
	return ok(c, fiber.StatusOK, "offer "+string(offer.Status), offer)
}
