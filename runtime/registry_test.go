package runtime

import (
	"context"
	"testing"

	"chatline/contract"
	"chatline/domain/event"

	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []event.Event
}

func (s *recordingSink) Consume(_ context.Context, e event.Event) error {
	s.events = append(s.events, e)
	return nil
}

func Test_Registry_SubscribeAndResolve(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	both := &recordingSink{}
	messagesOnly := &recordingSink{}
	registry.Subscribe("conn-1", []event.Collection{event.Users, event.Messages}, both)
	registry.Subscribe("conn-2", []event.Collection{event.Messages}, messagesOnly)

	req.Len(registry.SinksFor(event.Messages), 2)
	req.Len(registry.SinksFor(event.Users), 1)
}

func Test_Registry_Unsubscribe_Everywhere(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	sink := &recordingSink{}
	registry.Subscribe("conn-1", []event.Collection{event.Users, event.Messages}, sink)
	registry.Unsubscribe("conn-1")

	req.Nil(registry.SinksFor(event.Users))
	req.Nil(registry.SinksFor(event.Messages))
}

func Test_Registry_UnknownCollection(t *testing.T) {
	require.Nil(t, NewRegistry().SinksFor(event.Collection("ghosts")))
}

var _ contract.IRegistry = (*Registry)(nil)
