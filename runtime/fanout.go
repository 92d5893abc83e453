package runtime

import (
	"context"
	"log/slog"

	"chatline/contract"
	"chatline/domain/event"
)

// EventFanout broadcasts collection change events to every subscriber
// sink registered for the event's collection.
//
// It provides best-effort fan-out with no guarantees regarding
// durability or retries; a sink that errors is skipped, not removed.
// Because a single goroutine drains the channel, delivery order per
// subscriber matches emission order.
type EventFanout struct {
	log      *slog.Logger
	events   chan event.Event
	registry contract.IRegistry
}

func NewEventFanout(log *slog.Logger, events chan event.Event, registry contract.IRegistry) *EventFanout {
	return &EventFanout{log: log, events: events, registry: registry}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.events:
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fanout")
			return nil
		}
	}
}

func (w *EventFanout) Fanout(ctx context.Context, evt event.Event) {
	for _, sink := range w.registry.SinksFor(evt.Collection) {
		if err := sink.Consume(ctx, evt); err != nil {
			w.log.Debug("Sink rejected event", "collection", evt.Collection, "event", evt.Type, "error", err)
		}
	}
}

// Emit queues an event without ever blocking the caller. When the
// buffer is full the event is dropped, which is acceptable for
// best-effort notifications.
func Emit(log *slog.Logger, events chan<- event.Event, evt event.Event) {
	select {
	case events <- evt:
	default:
		log.Warn("Event buffer full, notification lost", "collection", evt.Collection, "event", evt.Type)
	}
}
