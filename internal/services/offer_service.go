package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"wastenot/internal/domain"
	"wastenot/internal/events"
	applog "wastenot/internal/log"
	"wastenot/internal/repos"
)

type OfferService struct {
	DB         *sqlx.DB
	Crates     *repos.CrateRepo
	Offers     *repos.OfferRepo
	Settlement *Settlement
	Events     events.Sink
	Now        Clock
}

func NewOfferService(db *sqlx.DB, crates *repos.CrateRepo, offers *repos.OfferRepo, settlement *Settlement, sink events.Sink) *OfferService {
	return &OfferService{DB: db, Crates: crates, Offers: offers, Settlement: settlement, Events: sink, Now: systemClock}
}

type NewOffer struct {
	BusinessID string          `json:"businessId"`
	OfferPrice decimal.Decimal `json:"offerPrice"`
}

// Submit attaches a pending offer to a crate that is listed or has offers.
// The crate guard and the insert share one transaction, so an offer can
// never land on a crate that was sold in between.
func (s *OfferService) Submit(ctx context.Context, crateID string, in NewOffer) (domain.Offer, error) {
	in.BusinessID = strings.TrimSpace(in.BusinessID)
	if in.BusinessID == "" {
		return domain.Offer{}, domain.InvalidInput("businessId", "is required")
	}
	if !in.OfferPrice.IsPositive() {
		return domain.Offer{}, domain.InvalidInput("offerPrice", "must be positive")
	}
	if err := repos.Ping(ctx, s.DB); err != nil {
		return domain.Offer{}, err
	}

	now := s.Now()
	o := domain.Offer{
		OfferID:    uuid.NewString(),
		CrateID:    crateID,
		BusinessID: in.BusinessID,
		OfferPrice: in.OfferPrice,
		Status:     domain.OfferPending,
		OfferedAt:  stamp(now),
	}
	err := repos.InTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		crates := s.Crates.With(tx)
		ok, err := crates.OpenForOffer(ctx, crateID)
		if err != nil {
			return err
		}
		if !ok {
			c, err := crates.Get(ctx, crateID)
			if err != nil {
				return err
			}
			return domain.InvalidState("crate", crateID, fmt.Sprintf("not available for offers (status: %s)", c.Status))
		}
		return s.Offers.With(tx).Create(ctx, o)
	})
	if err != nil {
		return domain.Offer{}, err
	}
	e := events.New(events.OfferSubmitted, now, map[string]any{"business_id": o.BusinessID, "offer_price": o.OfferPrice.String()})
	e.CrateID, e.OfferID = crateID, o.OfferID
	emit(ctx, s.Events, e)
	return o, nil
}

// List returns a crate's offers, newest first.
func (s *OfferService) List(ctx context.Context, crateID string) ([]domain.Offer, error) {
	if err := repos.Ping(ctx, s.DB); err != nil {
		return nil, err
	}
	if _, err := s.Crates.Get(ctx, crateID); err != nil {
		return nil, err
	}
	offers, err := s.Offers.ListByCrate(ctx, crateID)
	if err != nil {
		return nil, err
	}
	if offers == nil {
		offers = []domain.Offer{}
	}
	return offers, nil
}

// Respond resolves a pending offer. Accepting settles the crate; rejecting
// touches only the offer.
func (s *OfferService) Respond(ctx context.Context, crateID, offerID, decision string) (domain.Offer, error) {
	status, ok := domain.ParseDecision(decision)
	if !ok {
		return domain.Offer{}, domain.InvalidInput("response_status", "must be 'accepted' or 'rejected'")
	}
	if err := repos.Ping(ctx, s.DB); err != nil {
		return domain.Offer{}, err
	}
	crate, err := s.Crates.Get(ctx, crateID)
	if err != nil {
		return domain.Offer{}, err
	}
	offer, err := s.Offers.Get(ctx, crateID, offerID)
	if err != nil {
		return domain.Offer{}, err
	}
	if offer.Status != domain.OfferPending {
		return domain.Offer{}, domain.InvalidState("offer", offerID, fmt.Sprintf("not pending (status: %s)", offer.Status))
	}

	if status == domain.OfferAccepted {
		if crate.Status == domain.CrateSold {
			return domain.Offer{}, domain.InvalidState("crate", crateID, "already sold")
		}
		rep, err := s.Settlement.Settle(ctx, crateID, offerID)
		if err != nil {
			return domain.Offer{}, err
		}
		return rep.Offer, nil
	}

	ok, err = s.Offers.Resolve(ctx, crateID, offerID, domain.OfferRejected)
	if err != nil {
		return domain.Offer{}, err
	}
	if !ok {
		return domain.Offer{}, domain.InvalidState("offer", offerID, "no longer pending")
	}
	applog.Audit(nil, "offer.rejected", map[string]any{"crate_id": crateID, "offer_id": offerID})
	return s.Offers.Get(ctx, crateID, offerID)
}
