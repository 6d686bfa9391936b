// Package events carries settlement and ledger events to an observability sink.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	applog "wastenot/internal/log"
)

type Type string

const (
	CrateSold         Type = "crate.sold"
	OfferRejected     Type = "offer.rejected"
	PartialDepletion  Type = "inventory.partial_depletion"
	DepletionFailed   Type = "inventory.depletion_failed"
	OfferSubmitted    Type = "offer.submitted"
	CrateListed       Type = "crate.listed"
	InventoryReceived Type = "inventory.received"
)

type Event struct {
	ID        uuid.UUID      `json:"id"`
	Type      Type           `json:"type"`
	StoreID   string         `json:"store_id,omitempty"`
	CrateID   string         `json:"crate_id,omitempty"`
	OfferID   string         `json:"offer_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Warning reports whether the event should be surfaced at warn level.
func (e Event) Warning() bool {
	return e.Type == PartialDepletion || e.Type == DepletionFailed
}

type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// New stamps a fresh id; at is the caller's clock reading.
func New(t Type, at time.Time, payload map[string]any) Event {
	return Event{ID: uuid.New(), Type: t, Timestamp: at.UTC(), Payload: payload}
}

// LogSink writes events to the structured log.
type LogSink struct{}

func (LogSink) Publish(_ context.Context, e Event) error {
	fields := map[string]any{"event_id": e.ID.String()}
	for k, v := range e.Payload {
		fields[k] = v
	}
	if e.StoreID != "" {
		fields["store_id"] = e.StoreID
	}
	if e.CrateID != "" {
		fields["crate_id"] = e.CrateID
	}
	if e.OfferID != "" {
		fields["offer_id"] = e.OfferID
	}
	if e.Warning() {
		applog.Warn(nil, string(e.Type), nil, fields)
		return nil
	}
	applog.Audit(nil, string(e.Type), fields)
	return nil
}

// Multi fans out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
