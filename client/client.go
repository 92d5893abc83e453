// Package client is the application-facing facade over the chat API.
// It owns the session state, resolves named collections and, once
// connected, dispatches pushed collection events to registered handlers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"chatline/domain"
	"chatline/domain/event"
	"chatline/errors"
)

// Session is the resolved value of a successful authentication.
type Session struct {
	Token string      `json:"accessToken"`
	User  domain.User `json:"user"`
}

type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger

	mu          sync.RWMutex
	session     *Session
	collections map[event.Collection]*Collection

	rt *realtime
}

func New(baseURL string, log *slog.Logger) *Client {
	return &Client{
		baseURL:     baseURL,
		http:        &http.Client{Timeout: 30 * time.Second},
		log:         log,
		collections: make(map[event.Collection]*Collection),
	}
}

type authenticationRequest struct {
	Strategy string `json:"strategy"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Authenticate resolves credentials into a session. On failure the
// client keeps whatever session it had before the call.
func (c *Client) Authenticate(ctx context.Context, strategy, email, password string) (Session, error) {
	var session Session
	err := c.do(ctx, http.MethodPost, "/api/authentication",
		authenticationRequest{Strategy: strategy, Email: email, Password: password},
		&session, false)
	if err != nil {
		if errors.Is(err, errors.ErrNotAuthenticated) {
			return Session{}, errors.ErrInvalidCredentials
		}
		return Session{}, err
	}

	c.mu.Lock()
	c.session = &session
	c.mu.Unlock()
	c.log.Debug("Authenticated", "user", session.User.Email)
	return session, nil
}

// Logout discards the session. The token itself stays valid until it
// expires; forgetting it is all a stateless scheme needs.
func (c *Client) Logout() {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
	c.disconnect()
}

// Session returns the current session, or nil when unauthenticated.
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Service resolves a collection by name. The same instance is returned
// on every call so event handlers registered on it stay attached.
func (c *Client) Service(name string) (*Collection, error) {
	if !event.Known(name) {
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownCollection, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	collection, ok := c.collections[event.Collection(name)]
	if !ok {
		collection = newCollection(event.Collection(name), c)
		c.collections[event.Collection(name)] = collection
	}
	return collection, nil
}

// Close drops the realtime connection and the session.
func (c *Client) Close() {
	c.Logout()
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.Token
}

func (c *Client) collection(name event.Collection) *Collection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collections[name]
}

// do runs one REST round trip. Network failures surface as transport
// errors; HTTP failure statuses map back to the sentinel taxonomy.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authenticated bool) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authenticated {
		token := c.token()
		if token == "" {
			return errors.ErrNotAuthenticated
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func statusError(resp *http.Response) error {
	var body errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Error == "" {
		body.Error = http.StatusText(resp.StatusCode)
	}

	var sentinel error
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		sentinel = errors.ErrNotAuthenticated
	case http.StatusForbidden:
		sentinel = errors.ErrForbidden
	case http.StatusBadRequest:
		sentinel = errors.ErrValidation
	case http.StatusNotFound:
		sentinel = errors.ErrNotFound
	case http.StatusConflict:
		sentinel = errors.ErrUserAlreadyExists
	default:
		return fmt.Errorf("%w: %s", errors.ErrTransport, body.Error)
	}
	return fmt.Errorf("%w: %s", sentinel, body.Error)
}
