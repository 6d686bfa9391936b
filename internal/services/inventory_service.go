package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"wastenot/internal/domain"
	"wastenot/internal/events"
	applog "wastenot/internal/log"
	"wastenot/internal/repos"
)

const defaultMaxRetries = 5

type InventoryService struct {
	DB      *sqlx.DB
	Inv     *repos.InventoryRepo
	Catalog Catalog
	Events  events.Sink
	Now     Clock
	// MaxRetries bounds compare-and-set retries on one batch.
	MaxRetries int
}

func NewInventoryService(db *sqlx.DB, inv *repos.InventoryRepo, catalog Catalog, sink events.Sink) *InventoryService {
	return &InventoryService{DB: db, Inv: inv, Catalog: catalog, Events: sink, Now: systemClock, MaxRetries: defaultMaxRetries}
}

type NewInventoryItem struct {
	ProductID    string `json:"productId"`
	StoreID      string `json:"storeId"`
	Quantity     int    `json:"quantity"`
	PurchaseDate string `json:"purchaseDate"`
}

// CreateItem records an intake batch. Expiry is purchase date plus the
// product's shelf life.
func (s *InventoryService) CreateItem(ctx context.Context, in NewInventoryItem) (domain.InventoryItem, error) {
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.StoreID = defaultStore(strings.TrimSpace(in.StoreID))
	if in.ProductID == "" {
		return domain.InventoryItem{}, domain.InvalidInput("productId", "is required")
	}
	if in.Quantity < 0 {
		return domain.InventoryItem{}, domain.InvalidInput("quantity", "must not be negative")
	}
	product, err := GetProduct(s.Catalog, in.ProductID)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	expiry, err := domain.ExpiryDate(in.PurchaseDate, product.TypicalShelfLifeDays)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	if err := repos.Ping(ctx, s.DB); err != nil {
		return domain.InventoryItem{}, err
	}

	now := s.Now()
	item := domain.InventoryItem{
		InventoryItemID: uuid.NewString(),
		ProductID:       in.ProductID,
		StoreID:         in.StoreID,
		Quantity:        in.Quantity,
		PurchaseDate:    in.PurchaseDate,
		ExpiryDate:      expiry,
		Status:          domain.Classify(expiry, now),
		ProductName:     product.Name,
		Unit:            product.Unit,
	}
	if err := s.Inv.Create(ctx, item); err != nil {
		return domain.InventoryItem{}, err
	}
	e := events.New(events.InventoryReceived, now, map[string]any{
		"inventory_item_id": item.InventoryItemID, "product_id": item.ProductID, "quantity": item.Quantity,
	})
	e.StoreID = item.StoreID
	emit(ctx, s.Events, e)
	return item, nil
}

// ListAtRisk returns a store's expired, at-risk and nearing-expiry batches,
// earliest expiry first. Cached statuses are reconciled on the way out.
func (s *InventoryService) ListAtRisk(ctx context.Context, storeID string) ([]domain.InventoryItem, error) {
	if err := repos.Ping(ctx, s.DB); err != nil {
		return nil, err
	}
	items, err := s.Inv.ListByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	out := make([]domain.InventoryItem, 0, len(items))
	for _, it := range items {
		current := domain.Classify(it.ExpiryDate, now)
		if current != it.Status {
			if err := s.Inv.RefreshStatus(ctx, it.InventoryItemID, it.Status, current); err != nil {
				applog.Warn(nil, "inventory.status.refresh.fail", err, map[string]any{"inventory_item_id": it.InventoryItemID})
			}
			it.Status = current
		}
		if p, ok := s.Catalog.Product(it.ProductID); ok {
			it.Unit = p.Unit
		} else {
			it.Unit = "unknown"
			applog.Warn(nil, "inventory.product.unknown", nil, map[string]any{"product_id": it.ProductID, "inventory_item_id": it.InventoryItemID})
		}
		if current == domain.StatusUnknownDateFormat {
			applog.Warn(nil, "inventory.expiry.unparseable", nil, map[string]any{"inventory_item_id": it.InventoryItemID, "expiry_date": it.ExpiryDate})
			continue
		}
		if current.AtRisk() {
			out = append(out, it)
		}
	}
	return out, nil
}

type BatchDepletion struct {
	InventoryItemID string `json:"inventoryItemId"`
	Before          int    `json:"before"`
	After           int    `json:"after"`
}

type DepletionReport struct {
	ProductID   string           `json:"productId"`
	StoreID     string           `json:"storeId"`
	Requested   int              `json:"requested"`
	Depleted    int              `json:"depleted"`
	Unsatisfied int              `json:"unsatisfied"`
	Batches     []BatchDepletion `json:"batches"`
}

// Touched reports whether any batch quantity changed.
func (r DepletionReport) Touched() bool { return len(r.Batches) > 0 }

// Warning returns a PartialDepletionWarning when stock fell short, else nil.
func (r DepletionReport) Warning() error {
	if r.Unsatisfied == 0 {
		return nil
	}
	return &domain.Error{
		Kind:   domain.KindPartialDepletionWarning,
		Entity: "product",
		ID:     r.ProductID,
		Msg:    fmt.Sprintf("store %s short by %d of %d", r.StoreID, r.Unsatisfied, r.Requested),
	}
}

// Deplete consumes quantity from the earliest-expiring batches first.
// A shortfall is not an error; it shows up in the report's Unsatisfied.
// Every batch write is a compare-and-set on the quantity last read, so
// concurrent depletions never drive a batch below zero.
func (s *InventoryService) Deplete(ctx context.Context, productID, storeID string, quantity int) (DepletionReport, error) {
	rep := DepletionReport{ProductID: productID, StoreID: storeID, Requested: quantity, Batches: []BatchDepletion{}}
	if productID == "" || quantity <= 0 {
		applog.Warn(nil, "inventory.deplete.invalid", nil, map[string]any{"product_id": productID, "store_id": storeID, "quantity": quantity})
		if productID == "" {
			return rep, domain.InvalidInput("productId", "is required")
		}
		return rep, domain.InvalidInput("quantity", "must be positive")
	}

	batches, err := s.Inv.InStock(ctx, productID, storeID)
	if err != nil {
		return rep, err
	}

	remaining := quantity
	for _, b := range batches {
		if remaining == 0 {
			break
		}
		took, err := s.takeFrom(ctx, b, remaining, &rep)
		if err != nil {
			rep.Depleted = quantity - remaining
			rep.Unsatisfied = remaining
			return rep, err
		}
		remaining -= took
	}
	rep.Depleted = quantity - remaining
	rep.Unsatisfied = remaining
	return rep, nil
}

// takeFrom removes up to want units from one batch and returns how many it took.
func (s *InventoryService) takeFrom(ctx context.Context, b domain.InventoryItem, want int, rep *DepletionReport) (int, error) {
	maxRetries := s.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	current := b.Quantity
	for attempt := 0; ; attempt++ {
		if current <= 0 {
			return 0, nil
		}
		take := min(current, want)
		ok, err := s.Inv.CompareAndSetQty(ctx, b.InventoryItemID, current, current-take)
		if err != nil {
			return 0, err
		}
		if ok {
			rep.Batches = append(rep.Batches, BatchDepletion{InventoryItemID: b.InventoryItemID, Before: current, After: current - take})
			return take, nil
		}
		if attempt >= maxRetries {
			return 0, domain.Conflict("inventoryItem", b.InventoryItemID, "quantity kept changing during depletion")
		}
		if current, err = s.Inv.Qty(ctx, b.InventoryItemID); err != nil {
			return 0, err
		}
	}
}
