package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"wastenot/internal/domain"
	"wastenot/internal/events"
	"wastenot/internal/services"
)

func (e *env) crate(t *testing.T, items ...domain.CrateItem) domain.SurplusCrate {
	t.Helper()
	c, err := e.crates.Create(context.Background(), services.NewCrate{
		StoreID: "walmart_001", Items: items, ListingPrice: decimal.NewFromInt(15),
	})
	if err != nil {
		t.Fatalf("create crate: %v", err)
	}
	return c
}

func (e *env) offer(t *testing.T, crateID, business string, price int64) domain.Offer {
	t.Helper()
	o, err := e.offers.Submit(context.Background(), crateID, services.NewOffer{
		BusinessID: business, OfferPrice: decimal.NewFromInt(price),
	})
	if err != nil {
		t.Fatalf("submit offer: %v", err)
	}
	return o
}

func milk(qty int) domain.CrateItem {
	return domain.CrateItem{ProductID: "prod_milk", Name: "Organic Milk", Quantity: qty}
}

func TestAcceptPicksExactlyOneWinner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.crate(t, milk(1))
	o1 := e.offer(t, c.CrateID, "biz_cafe", 10)
	o2 := e.offer(t, c.CrateID, "biz_bakery", 12)

	got, err := e.offers.Respond(ctx, c.CrateID, o2.OfferID, "accepted")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.OfferAccepted {
		t.Fatalf("want accepted, got %s", got.Status)
	}

	first, _ := e.offers.List(ctx, c.CrateID)
	statuses := map[string]domain.OfferStatus{}
	for _, o := range first {
		statuses[o.OfferID] = o.Status
	}
	if statuses[o1.OfferID] != domain.OfferRejected || statuses[o2.OfferID] != domain.OfferAccepted {
		t.Fatalf("unexpected offer statuses %v", statuses)
	}

	sold, err := e.crates.Get(ctx, c.CrateID)
	if err != nil {
		t.Fatal(err)
	}
	if sold.Status != domain.CrateSold || sold.SoldToBusinessID == nil || *sold.SoldToBusinessID != "biz_bakery" {
		t.Fatalf("crate not sold to biz_bakery: %+v", sold)
	}
	if sold.FinalPrice == nil || !sold.FinalPrice.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("want final price 12, got %v", sold.FinalPrice)
	}
	if len(e.sink.ofType(events.CrateSold)) != 1 || len(e.sink.ofType(events.OfferRejected)) != 1 {
		t.Fatalf("want one crate.sold and one offer.rejected event, got %+v", e.sink.events)
	}
}

func TestRespondIsNotRepeatable(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.crate(t, milk(1))
	o1 := e.offer(t, c.CrateID, "biz_cafe", 10)
	o2 := e.offer(t, c.CrateID, "biz_bakery", 12)

	if _, err := e.offers.Respond(ctx, c.CrateID, o1.OfferID, "rejected"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.offers.Respond(ctx, c.CrateID, o1.OfferID, "accepted"); !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Fatalf("re-deciding a rejected offer: want InvalidStateTransition, got %v", err)
	}

	if _, err := e.offers.Respond(ctx, c.CrateID, o2.OfferID, "accepted"); err != nil {
		t.Fatal(err)
	}
	for _, d := range []string{"accepted", "rejected"} {
		if _, err := e.offers.Respond(ctx, c.CrateID, o2.OfferID, d); !errors.Is(err, domain.ErrInvalidStateTransition) {
			t.Fatalf("%s on accepted offer: want InvalidStateTransition, got %v", d, err)
		}
	}
	if n := len(e.sink.ofType(events.CrateSold)); n != 1 {
		t.Fatalf("crate sold %d times", n)
	}
	o, _ := e.offers.List(ctx, c.CrateID)
	for _, x := range o {
		if x.OfferID == o2.OfferID && x.Status != domain.OfferAccepted {
			t.Fatalf("accepted offer changed to %s", x.Status)
		}
	}
}

func TestRejectLeavesCrateOpen(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.crate(t, milk(1))
	o := e.offer(t, c.CrateID, "biz_cafe", 10)

	got, err := e.offers.Respond(ctx, c.CrateID, o.OfferID, "rejected")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.OfferRejected {
		t.Fatalf("want rejected, got %s", got.Status)
	}
	after, _ := e.crates.Get(ctx, c.CrateID)
	if after.Status != domain.CrateOfferReceived || after.SoldToBusinessID != nil || after.FinalPrice != nil {
		t.Fatalf("reject must not touch the crate: %+v", after)
	}
}

func TestRespondValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.crate(t, milk(1))
	o := e.offer(t, c.CrateID, "biz_cafe", 10)

	if _, err := e.offers.Respond(ctx, c.CrateID, o.OfferID, "maybe"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("bad decision: want InvalidInput, got %v", err)
	}
	if _, err := e.offers.Respond(ctx, "nope", o.OfferID, "accepted"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing crate: want NotFound, got %v", err)
	}
	if _, err := e.offers.Respond(ctx, c.CrateID, "nope", "accepted"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing offer: want NotFound, got %v", err)
	}
	other := e.crate(t, milk(1))
	if _, err := e.offers.Respond(ctx, other.CrateID, o.OfferID, "accepted"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("offer from another crate: want NotFound, got %v", err)
	}
}

func TestSaleDepletesOldestBatchFirst(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	older := e.batch(t, "prod_milk", 2, "2024-01-01")
	newer := e.batch(t, "prod_milk", 10, "2024-01-04")

	c := e.crate(t, milk(4))
	o := e.offer(t, c.CrateID, "biz_cafe", 9)
	if _, err := e.offers.Respond(ctx, c.CrateID, o.OfferID, "accepted"); err != nil {
		t.Fatal(err)
	}
	if e.qty(t, older) != 0 || e.qty(t, newer) != 8 {
		t.Fatalf("want [0 8], got [%d %d]", e.qty(t, older), e.qty(t, newer))
	}
	if n := len(e.sink.ofType(events.PartialDepletion)); n != 0 {
		t.Fatalf("unexpected partial depletion events: %d", n)
	}
}

func TestSaleWinsOverShortStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := e.batch(t, "prod_milk", 1, "2024-01-01")

	c := e.crate(t, milk(3), domain.CrateItem{ProductID: "prod_apple", Name: "Apples", Quantity: 2})
	o := e.offer(t, c.CrateID, "biz_cafe", 9)

	rep, err := e.settle.Settle(ctx, c.CrateID, o.OfferID)
	if err != nil {
		t.Fatalf("short stock must not fail the sale: %v", err)
	}
	if rep.Crate.Status != domain.CrateSold || rep.Offer.Status != domain.OfferAccepted {
		t.Fatalf("sale not committed: %+v", rep)
	}
	if e.qty(t, b) != 0 {
		t.Fatalf("available stock should be consumed, got %d", e.qty(t, b))
	}
	if len(rep.Depletions) != 2 || rep.Depletions[0].Unsatisfied != 2 || rep.Depletions[1].Unsatisfied != 2 {
		t.Fatalf("unexpected depletion reports %+v", rep.Depletions)
	}
	warnings := e.sink.ofType(events.PartialDepletion)
	if len(warnings) != 2 {
		t.Fatalf("want two partial depletion warnings, got %d", len(warnings))
	}
	if warnings[1].Payload["no_stock"] != true {
		t.Fatalf("apple had no stock at all: %+v", warnings[1].Payload)
	}
}

func TestConcurrentAcceptsOnSameCrate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := e.batch(t, "prod_milk", 10, "2024-01-01")
	c := e.crate(t, milk(4))
	o1 := e.offer(t, c.CrateID, "biz_cafe", 10)
	o2 := e.offer(t, c.CrateID, "biz_bakery", 12)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{o1.OfferID, o2.OfferID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = e.offers.Respond(ctx, c.CrateID, id, "accepted")
		}(i, id)
	}
	wg.Wait()

	var ok, conflict int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInvalidStateTransition):
			conflict++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if ok != 1 || conflict != 1 {
		t.Fatalf("want one winner and one InvalidStateTransition, got ok=%d conflict=%d", ok, conflict)
	}

	offers, _ := e.offers.List(ctx, c.CrateID)
	accepted := 0
	for _, o := range offers {
		switch o.Status {
		case domain.OfferAccepted:
			accepted++
		case domain.OfferPending:
			t.Fatalf("offer %s still pending on a sold crate", o.OfferID)
		}
	}
	if accepted != 1 {
		t.Fatalf("want exactly one accepted offer, got %d", accepted)
	}
	if e.qty(t, b) != 6 {
		t.Fatalf("inventory depleted more than once: qty=%d", e.qty(t, b))
	}
}

func TestEventTimestampsFollowServiceClock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.batch(t, "prod_milk", 5, "2024-01-03")
	c := e.crate(t, milk(2))
	o1 := e.offer(t, c.CrateID, "biz_cafe", 10)
	e.offer(t, c.CrateID, "biz_bakery", 9)

	settleAt := time.Date(2024, 1, 6, 15, 30, 0, 0, time.UTC)
	e.clock.set(settleAt)
	if _, err := e.offers.Respond(ctx, c.CrateID, o1.OfferID, "accepted"); err != nil {
		t.Fatal(err)
	}

	listed := e.sink.ofType(events.CrateListed)
	if len(listed) != 1 || listed[0].Timestamp.Format("2006-01-02T15:04:05.000000") != c.ListedAt {
		t.Fatalf("crate.listed should carry listedAt %s, got %+v", c.ListedAt, listed)
	}
	submitted := e.sink.ofType(events.OfferSubmitted)
	if len(submitted) != 2 || submitted[0].Timestamp.Format("2006-01-02T15:04:05.000000") != o1.OfferedAt {
		t.Fatalf("offer.submitted should carry offeredAt %s, got %+v", o1.OfferedAt, submitted)
	}

	sold := e.sink.ofType(events.CrateSold)
	rejected := e.sink.ofType(events.OfferRejected)
	if len(sold) != 1 || len(rejected) != 1 {
		t.Fatalf("expected one sale and one rejection, got %d/%d", len(sold), len(rejected))
	}
	want := settleAt.Add(time.Second)
	if !sold[0].Timestamp.Equal(want) || !rejected[0].Timestamp.Equal(want) {
		t.Fatalf("settlement events should share the settlement clock reading %s: sold=%s rejected=%s",
			want, sold[0].Timestamp, rejected[0].Timestamp)
	}
}
