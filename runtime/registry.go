package runtime

import (
	"sync"

	"chatline/contract"
	"chatline/domain/event"
)

type Set map[string]struct{}

// Registry tracks live subscribers and the collections they listen to.
// One subscriber (a websocket connection) may follow several
// collections; its sink is stored once and resolved per collection.
type Registry struct {
	mu          sync.RWMutex
	sinks       map[string]contract.EventSink
	subscribers map[event.Collection]Set
}

func NewRegistry() *Registry {
	return &Registry{
		sinks:       make(map[string]contract.EventSink),
		subscribers: make(map[event.Collection]Set),
	}
}

// Subscribe registers a subscriber's sink and attaches it to the given
// collections. Collections are initialized on the fly.
func (r *Registry) Subscribe(subscriberID string, collections []event.Collection, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sinks[subscriberID] = sink
	for _, c := range collections {
		if _, ok := r.subscribers[c]; !ok {
			r.subscribers[c] = make(Set)
		}
		r.subscribers[c][subscriberID] = struct{}{}
	}
}

// Unsubscribe removes a subscriber everywhere. Empty collection sets are
// dropped to avoid unbounded growth over time.
func (r *Registry) Unsubscribe(subscriberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sinks, subscriberID)
	for c, members := range r.subscribers {
		delete(members, subscriberID)
		if len(members) == 0 {
			delete(r.subscribers, c)
		}
	}
}

// SinksFor resolves the active sinks listening to a collection.
// Returns nil when nobody listens.
func (r *Registry) SinksFor(collection event.Collection) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.subscribers[collection]
	if !ok {
		return nil
	}
	var active []contract.EventSink
	for subscriberID := range members {
		if sink, exists := r.sinks[subscriberID]; exists {
			active = append(active, sink)
		}
	}
	return active
}
