package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"chatline/domain/event"
)

// Handler receives the raw record of one pushed collection event.
// Handlers run synchronously on the realtime reader goroutine, so the
// order they observe is the order the server emitted.
type Handler func(record json.RawMessage)

type Query struct {
	Search string
	Cursor *string
	Limit  int
	Skip   int
}

// Page is the find envelope with records left undecoded so callers can
// unmarshal into their own record type.
type Page struct {
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Skip   int               `json:"skip"`
	Data   []json.RawMessage `json:"data"`
	Cursor *string           `json:"cursor,omitempty"`
}

// Collection exposes one named collection: CRUD over REST plus event
// handler registration for pushed changes.
type Collection struct {
	name   event.Collection
	client *Client

	mu       sync.RWMutex
	handlers map[event.Type][]Handler
}

func newCollection(name event.Collection, client *Client) *Collection {
	return &Collection{
		name:     name,
		client:   client,
		handlers: make(map[event.Type][]Handler),
	}
}

func (c *Collection) Name() string {
	return string(c.name)
}

func (c *Collection) Find(ctx context.Context, query Query) (Page, error) {
	values := url.Values{}
	if query.Search != "" {
		values.Set("search", query.Search)
	}
	if query.Cursor != nil {
		values.Set("cursor", *query.Cursor)
	}
	if query.Limit > 0 {
		values.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.Skip > 0 {
		values.Set("skip", strconv.Itoa(query.Skip))
	}

	path := c.path()
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var page Page
	err := c.client.do(ctx, http.MethodGet, path, nil, &page, true)
	return page, err
}

// Create posts a record. The users collection accepts creation without
// a session (that is how accounts come to exist); everything else needs
// one.
func (c *Collection) Create(ctx context.Context, record any) (json.RawMessage, error) {
	var created json.RawMessage
	err := c.client.do(ctx, http.MethodPost, c.path(), record, &created, c.name != event.Users)
	return created, err
}

func (c *Collection) Get(ctx context.Context, id string) (json.RawMessage, error) {
	var record json.RawMessage
	err := c.client.do(ctx, http.MethodGet, c.path()+"/"+id, nil, &record, true)
	return record, err
}

func (c *Collection) Patch(ctx context.Context, id string, record any) (json.RawMessage, error) {
	var patched json.RawMessage
	err := c.client.do(ctx, http.MethodPatch, c.path()+"/"+id, record, &patched, true)
	return patched, err
}

func (c *Collection) Remove(ctx context.Context, id string) (json.RawMessage, error) {
	var removed json.RawMessage
	err := c.client.do(ctx, http.MethodDelete, c.path()+"/"+id, nil, &removed, true)
	return removed, err
}

// On registers a handler for one event type. Handlers are invoked in
// registration order.
func (c *Collection) On(eventType event.Type, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[eventType] = append(c.handlers[eventType], handler)
}

func (c *Collection) dispatch(eventType event.Type, record json.RawMessage) {
	c.mu.RLock()
	handlers := c.handlers[eventType]
	c.mu.RUnlock()

	for _, handler := range handlers {
		handler(record)
	}
}

func (c *Collection) path() string {
	return fmt.Sprintf("/api/%s", c.name)
}
