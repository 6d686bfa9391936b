package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"wastenot/internal/events"
	"wastenot/internal/repos"
	"wastenot/internal/services"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) ofType(t events.Type) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// tickClock starts at a fixed instant and advances one second per call.
type tickClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *tickClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type env struct {
	db       *sqlx.DB
	sink     *recorder
	clock    *tickClock
	invRepo  *repos.InventoryRepo
	crates   *services.CrateService
	offers   *services.OfferService
	ledger   *services.InventoryService
	settle   *services.Settlement
	business *services.BusinessService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := repos.OpenDB("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	sink := &recorder{}
	clock := &tickClock{now: time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)}

	invRepo := repos.NewInventoryRepo(db)
	crateRepo := repos.NewCrateRepo(db)
	offerRepo := repos.NewOfferRepo(db)

	ledger := services.NewInventoryService(db, invRepo, services.DefaultCatalog(), sink)
	ledger.Now = clock.Now
	ledger.MaxRetries = 1000
	crates := services.NewCrateService(db, crateRepo, sink)
	crates.Now = clock.Now
	settle := services.NewSettlement(db, crateRepo, offerRepo, ledger, sink)
	settle.Now = clock.Now
	offers := services.NewOfferService(db, crateRepo, offerRepo, settle, sink)
	offers.Now = clock.Now

	return &env{
		db: db, sink: sink, clock: clock, invRepo: invRepo,
		crates: crates, offers: offers, ledger: ledger, settle: settle,
		business: services.NewBusinessService(db, repos.NewBusinessRepo(db)),
	}
}

// batch records an intake and returns its id.
func (e *env) batch(t *testing.T, productID string, qty int, purchased string) string {
	t.Helper()
	it, err := e.ledger.CreateItem(context.Background(), services.NewInventoryItem{
		ProductID: productID, StoreID: "walmart_001", Quantity: qty, PurchaseDate: purchased,
	})
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	return it.InventoryItemID
}

func (e *env) qty(t *testing.T, id string) int {
	t.Helper()
	q, err := e.invRepo.Qty(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return q
}
