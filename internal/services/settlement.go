package services

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"wastenot/internal/domain"
	"wastenot/internal/events"
	applog "wastenot/internal/log"
	"wastenot/internal/repos"
)

// Settlement runs the steps that follow an accepted offer:
//
//  1. offer pending -> accepted
//  2. crate -> sold, stamped with buyer and price
//  3. FIFO depletion of every line item at the crate's store
//  4. remaining pending offers -> rejected
//  5. re-read the accepted offer
//
// Steps 1 and 2 commit together. Depletion problems are reported to the
// event sink and never undo the sale.
type Settlement struct {
	DB     *sqlx.DB
	Crates *repos.CrateRepo
	Offers *repos.OfferRepo
	Ledger *InventoryService
	Events events.Sink
	Now    Clock
}

func NewSettlement(db *sqlx.DB, crates *repos.CrateRepo, offers *repos.OfferRepo, ledger *InventoryService, sink events.Sink) *Settlement {
	return &Settlement{DB: db, Crates: crates, Offers: offers, Ledger: ledger, Events: sink, Now: systemClock}
}

type SettlementReport struct {
	Offer      domain.Offer        `json:"offer"`
	Crate      domain.SurplusCrate `json:"crate"`
	Depletions []DepletionReport   `json:"depletions"`
	Rejected   []string            `json:"rejected"`
}

func (s *Settlement) Settle(ctx context.Context, crateID, offerID string) (SettlementReport, error) {
	var rep SettlementReport

	err := repos.InTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		crates, offers := s.Crates.With(tx), s.Offers.With(tx)
		offer, err := offers.Get(ctx, crateID, offerID)
		if err != nil {
			return err
		}
		ok, err := offers.Resolve(ctx, crateID, offerID, domain.OfferAccepted)
		if err != nil {
			return err
		}
		if !ok {
			return domain.InvalidState("offer", offerID, "no longer pending")
		}
		ok, err = crates.MarkSold(ctx, crateID, offer.BusinessID, offer.OfferPrice)
		if err != nil {
			return err
		}
		if !ok {
			return domain.InvalidState("crate", crateID, "already sold")
		}
		rep.Crate, err = crates.Get(ctx, crateID)
		return err
	})
	if err != nil {
		return rep, err
	}
	now := s.Now()
	sold := events.New(events.CrateSold, now, map[string]any{
		"business_id": *rep.Crate.SoldToBusinessID,
		"final_price": rep.Crate.FinalPrice.String(),
	})
	sold.StoreID, sold.CrateID, sold.OfferID = rep.Crate.StoreID, crateID, offerID
	emit(ctx, s.Events, sold)

	rep.Depletions = s.deplete(ctx, rep.Crate, now)

	if rep.Rejected, err = s.rejectSiblings(ctx, crateID, offerID, now); err != nil {
		applog.Error(nil, "settlement.reject_siblings.fail", err, map[string]any{"crate_id": crateID, "offer_id": offerID})
		return rep, err
	}

	if rep.Offer, err = s.Offers.Get(ctx, crateID, offerID); err != nil {
		return rep, err
	}
	return rep, nil
}

// deplete runs the ledger for each line item and swallows every failure.
func (s *Settlement) deplete(ctx context.Context, crate domain.SurplusCrate, now time.Time) []DepletionReport {
	out := make([]DepletionReport, 0, len(crate.Items))
	for _, item := range crate.Items {
		dr, err := s.Ledger.Deplete(ctx, item.ProductID, crate.StoreID, item.Quantity)
		out = append(out, dr)
		switch {
		case err != nil:
			e := events.New(events.DepletionFailed, now, map[string]any{
				"product_id": item.ProductID, "quantity": item.Quantity, "depleted": dr.Depleted, "error": err.Error(),
			})
			e.StoreID, e.CrateID = crate.StoreID, crate.CrateID
			emit(ctx, s.Events, e)
		case dr.Warning() != nil:
			e := events.New(events.PartialDepletion, now, map[string]any{
				"product_id":  item.ProductID,
				"requested":   dr.Requested,
				"depleted":    dr.Depleted,
				"unsatisfied": dr.Unsatisfied,
				"no_stock":    !dr.Touched(),
			})
			e.StoreID, e.CrateID = crate.StoreID, crate.CrateID
			emit(ctx, s.Events, e)
		}
	}
	return out
}

func (s *Settlement) rejectSiblings(ctx context.Context, crateID, acceptedID string, now time.Time) ([]string, error) {
	pending, err := s.Offers.ListByStatus(ctx, crateID, domain.OfferPending)
	if err != nil {
		return nil, err
	}
	rejected := []string{}
	for _, o := range pending {
		if o.OfferID == acceptedID {
			continue
		}
		ok, err := s.Offers.Resolve(ctx, crateID, o.OfferID, domain.OfferRejected)
		if err != nil {
			return rejected, err
		}
		if !ok {
			continue
		}
		rejected = append(rejected, o.OfferID)
		e := events.New(events.OfferRejected, now, map[string]any{"business_id": o.BusinessID, "reason": "crate sold"})
		e.CrateID, e.OfferID = crateID, o.OfferID
		emit(ctx, s.Events, e)
	}
	return rejected, nil
}
