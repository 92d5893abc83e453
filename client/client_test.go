package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"chatline/auth"
	"chatline/domain"
	"chatline/domain/event"
	"chatline/errors"
	"chatline/moderation"
	"chatline/repositories"
	"chatline/runtime"
	"chatline/server"
	"chatline/services"

	"github.com/blugelabs/bluge"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const testPassword = "Sup3r$ecretPass!"

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelError)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })

	moderator, err := moderation.NewModerator(nil, '*', log)
	require.NoError(t, err)

	events := make(chan event.Event, 16)
	registry := runtime.NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = runtime.NewEventFanout(log, events, registry).Run(ctx) }()

	userRepo := repositories.NewUserRepository(db)
	tokens := auth.NewTokenIssuer("client-test-secret", time.Hour)
	srv := server.NewServer(
		log,
		tokens,
		services.NewAuthService(userRepo, tokens),
		services.NewUserService(userRepo, events, log),
		services.NewMessageService(
			userRepo,
			repositories.NewMessageRepository(db, log, nil),
			repositories.NewMessageIndex(writer, log),
			&moderator,
			events,
			log,
			0,
		),
		registry,
	)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c := New(newBackend(t).URL, logs.GetLoggerFromLevel(slog.LevelError))
	t.Cleanup(c.Close)
	return c
}

func register(t *testing.T, c *Client, email string) {
	t.Helper()
	users, err := c.Service("users")
	require.NoError(t, err)
	_, err = users.Create(context.Background(), map[string]string{
		"email": email, "password": testPassword,
	})
	require.NoError(t, err)
}

func TestServiceRejectsUnknownCollections(t *testing.T) {
	req := require.New(t)
	c := newTestClient(t)

	_, err := c.Service("rooms")
	req.ErrorIs(err, errors.ErrUnknownCollection)

	users, err := c.Service("users")
	req.NoError(err)
	messages, err := c.Service("messages")
	req.NoError(err)
	req.Equal("users", users.Name())
	req.Equal("messages", messages.Name())

	// Same instance on every resolution so registered handlers survive.
	again, err := c.Service("messages")
	req.NoError(err)
	req.Same(messages, again)
}

func TestAuthenticateFailureLeavesSessionUntouched(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newTestClient(t)
	register(t, c, "keeper@example.com")

	_, err := c.Authenticate(ctx, "local", "keeper@example.com", "WrongPass123!")
	req.ErrorIs(err, errors.ErrInvalidCredentials)
	req.Nil(c.Session())

	session, err := c.Authenticate(ctx, "local", "keeper@example.com", testPassword)
	req.NoError(err)
	req.NotEmpty(session.Token)

	// A later failed attempt must not discard the working session.
	_, err = c.Authenticate(ctx, "local", "keeper@example.com", "WrongPass123!")
	req.ErrorIs(err, errors.ErrInvalidCredentials)
	req.NotNil(c.Session())
	req.Equal(session.Token, c.Session().Token)

	c.Logout()
	req.Nil(c.Session())

	// Signed out: protected calls fail without reaching the wire.
	messages, err := c.Service("messages")
	req.NoError(err)
	_, err = messages.Find(ctx, Query{})
	req.ErrorIs(err, errors.ErrNotAuthenticated)
}

func TestCollectionsRequireSession(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newTestClient(t)

	messages, err := c.Service("messages")
	req.NoError(err)

	_, err = messages.Find(ctx, Query{})
	req.ErrorIs(err, errors.ErrNotAuthenticated)
	_, err = messages.Create(ctx, map[string]string{"body": "nope"})
	req.ErrorIs(err, errors.ErrNotAuthenticated)
	req.ErrorIs(c.Connect(ctx), errors.ErrNotAuthenticated)
}

func TestFindReportsTotals(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newTestClient(t)
	register(t, c, "totals@example.com")

	_, err := c.Authenticate(ctx, "local", "totals@example.com", testPassword)
	req.NoError(err)

	messages, err := c.Service("messages")
	req.NoError(err)
	for _, body := range []string{"one", "two", "three"} {
		_, err := messages.Create(ctx, map[string]string{"body": body})
		req.NoError(err)
	}

	page, err := messages.Find(ctx, Query{Limit: 2})
	req.NoError(err)
	req.Equal(3, page.Total)
	req.Len(page.Data, 2)

	users, err := c.Service("users")
	req.NoError(err)
	userPage, err := users.Find(ctx, Query{})
	req.NoError(err)
	req.Equal(1, userPage.Total)
}

func TestRealtimeEventsArriveInOrder(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := newTestClient(t)
	register(t, c, "stream@example.com")

	_, err := c.Authenticate(ctx, "local", "stream@example.com", testPassword)
	req.NoError(err)

	messages, err := c.Service("messages")
	req.NoError(err)

	received := make(chan string, 8)
	messages.On(event.Created, func(record json.RawMessage) {
		var message domain.Message
		if err := json.Unmarshal(record, &message); err == nil {
			received <- message.Body
		}
	})

	req.NoError(c.Connect(ctx))
	time.Sleep(100 * time.Millisecond)

	bodies := []string{"first", "second", "third"}
	for _, body := range bodies {
		_, err := messages.Create(ctx, map[string]string{"body": body})
		req.NoError(err)
	}

	for _, want := range bodies {
		select {
		case got := <-received:
			req.Equal(want, got)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}
