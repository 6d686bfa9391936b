package services

import (
	"context"
	"time"

	"wastenot/internal/domain"
	"wastenot/internal/events"
	applog "wastenot/internal/log"
)

// Clock returns the current time; tests pin it.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

func stamp(t time.Time) string { return t.UTC().Format("2006-01-02T15:04:05.000000") }

// emit never fails the caller; a sink error is only logged.
func emit(ctx context.Context, sink events.Sink, e events.Event) {
	if sink == nil {
		return
	}
	if err := sink.Publish(ctx, e); err != nil {
		applog.Error(nil, "events.publish.fail", err, map[string]any{"type": string(e.Type)})
	}
}

func defaultStore(id string) string {
	if id == "" {
		return domain.DefaultStoreID
	}
	return id
}
