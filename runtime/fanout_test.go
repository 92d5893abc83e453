package runtime

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"chatline/domain/event"

	"github.com/stretchr/testify/require"
)

func Test_Fanout_DeliversInEmissionOrder(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sink := &recordingSink{}
	registry.Subscribe("conn-1", []event.Collection{event.Messages}, sink)

	events := make(chan event.Event, 8)
	fanout := NewEventFanout(slog.Default(), events, registry)

	ctx := context.Background()
	records := []string{"record-0", "record-1", "record-2"}
	for _, record := range records {
		Emit(slog.Default(), events, event.Event{
			Collection: event.Messages,
			Type:       event.Created,
			At:         time.Now().UTC(),
			Record:     record,
		})
	}
	for range records {
		fanout.Fanout(ctx, <-events)
	}

	req.Len(sink.events, 3)
	for i, record := range records {
		req.Equal(record, sink.events[i].Record)
	}
}

func Test_Fanout_SkipsOtherCollections(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sink := &recordingSink{}
	registry.Subscribe("conn-1", []event.Collection{event.Users}, sink)

	events := make(chan event.Event, 1)
	fanout := NewEventFanout(slog.Default(), events, registry)
	fanout.Fanout(context.Background(), event.Event{Collection: event.Messages, Type: event.Created})

	req.Empty(sink.events)
}

func Test_Emit_DropsWhenBufferFull(t *testing.T) {
	req := require.New(t)
	events := make(chan event.Event, 1)

	Emit(slog.Default(), events, event.Event{Collection: event.Messages, Type: event.Created, Record: "kept"})
	Emit(slog.Default(), events, event.Event{Collection: event.Messages, Type: event.Created, Record: "dropped"})

	req.Len(events, 1)
	req.Equal("kept", (<-events).Record)
}
