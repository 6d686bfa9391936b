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
	"wastenot/internal/repos"
)

type CrateService struct {
	DB     *sqlx.DB
	Crates *repos.CrateRepo
	Events events.Sink
	Now    Clock
}

func NewCrateService(db *sqlx.DB, crates *repos.CrateRepo, sink events.Sink) *CrateService {
	return &CrateService{DB: db, Crates: crates, Events: sink, Now: systemClock}
}

type NewCrate struct {
	StoreID      string             `json:"storeId"`
	Items        []domain.CrateItem `json:"items"`
	ListingPrice decimal.Decimal    `json:"listingPrice"`
	PickupWindow string             `json:"pickupWindow"`
}

func (in NewCrate) validate() error {
	if len(in.Items) == 0 {
		return domain.InvalidInput("items", "surplus crate must contain at least one item")
	}
	for i, it := range in.Items {
		if strings.TrimSpace(it.ProductID) == "" {
			return domain.InvalidInput(fmt.Sprintf("items[%d].productId", i), "is required")
		}
		if it.Quantity <= 0 {
			return domain.InvalidInput(fmt.Sprintf("items[%d].quantity", i), "must be positive")
		}
	}
	if in.ListingPrice.IsNegative() {
		return domain.InvalidInput("listingPrice", "must not be negative")
	}
	return nil
}

// Create lists a new crate. Sold fields start out null.
func (s *CrateService) Create(ctx context.Context, in NewCrate) (domain.SurplusCrate, error) {
	if err := in.validate(); err != nil {
		return domain.SurplusCrate{}, err
	}
	if err := repos.Ping(ctx, s.DB); err != nil {
		return domain.SurplusCrate{}, err
	}
	now := s.Now()
	pickup := strings.TrimSpace(in.PickupWindow)
	if pickup == "" {
		pickup = domain.DefaultPickupWindow
	}
	c := domain.SurplusCrate{
		CrateID:      uuid.NewString(),
		StoreID:      defaultStore(strings.TrimSpace(in.StoreID)),
		Items:        in.Items,
		ListingPrice: in.ListingPrice,
		PickupWindow: pickup,
		Status:       domain.CrateListed,
		ListedAt:     stamp(now),
	}
	if err := s.Crates.Create(ctx, c); err != nil {
		return domain.SurplusCrate{}, err
	}
	e := events.New(events.CrateListed, now, map[string]any{"items": len(c.Items), "listing_price": c.ListingPrice.String()})
	e.StoreID, e.CrateID = c.StoreID, c.CrateID
	emit(ctx, s.Events, e)
	return c, nil
}

func (s *CrateService) Get(ctx context.Context, id string) (domain.SurplusCrate, error) {
	if err := repos.Ping(ctx, s.DB); err != nil {
		return domain.SurplusCrate{}, err
	}
	return s.Crates.Get(ctx, id)
}

// ListByStore returns every crate of a store, newest first.
func (s *CrateService) ListByStore(ctx context.Context, storeID string) ([]domain.SurplusCrate, error) {
	if err := repos.Ping(ctx, s.DB); err != nil {
		return nil, err
	}
	return s.Crates.ListByStore(ctx, storeID)
}

// ListAvailable returns crates still in the listed state, newest first.
func (s *CrateService) ListAvailable(ctx context.Context) ([]domain.SurplusCrate, error) {
	if err := repos.Ping(ctx, s.DB); err != nil {
		return nil, err
	}
	return s.Crates.ListByStatus(ctx, domain.CrateListed)
}
