package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chatline/auth"
	"chatline/domain"
	"chatline/domain/event"
	"chatline/moderation"
	"chatline/repositories"
	"chatline/runtime"
	"chatline/services"

	"github.com/blugelabs/bluge"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const testPassword = "Sup3r$ecretPass!"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelError)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })

	moderator, err := moderation.NewModerator([]string{"mushroom"}, '*', log)
	require.NoError(t, err)

	events := make(chan event.Event, 16)
	registry := runtime.NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = runtime.NewEventFanout(log, events, registry).Run(ctx) }()

	userRepo := repositories.NewUserRepository(db)
	messageRepo := repositories.NewMessageRepository(db, log, nil)
	index := repositories.NewMessageIndex(writer, log)

	tokens := auth.NewTokenIssuer("server-test-secret", time.Hour)
	srv := NewServer(
		log,
		tokens,
		services.NewAuthService(userRepo, tokens),
		services.NewUserService(userRepo, events, log),
		services.NewMessageService(userRepo, messageRepo, index, &moderator, events, log, 0),
		registry,
	)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, ts *httptest.Server, path, token string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func registerAndLogin(t *testing.T, ts *httptest.Server, email string) services.Session {
	t.Helper()
	resp := postJSON(t, ts, "/api/users", "", map[string]string{"email": email, "password": testPassword})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, ts, "/api/authentication", "", map[string]string{
		"strategy": "local", "email": email, "password": testPassword,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[services.Session](t, resp)
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/definitely/not/a/route")
	req.NoError(err)
	req.Equal(http.StatusNotFound, resp.StatusCode)
	req.Equal("application/json", resp.Header.Get("Content-Type"))

	body := decodeBody[errorResponse](t, resp)
	req.Equal(http.StatusNotFound, body.Code)
	req.Contains(body.Error, "/definitely/not/a/route")
}

func TestAuthenticationFlow(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	session := registerAndLogin(t, ts, "flow@example.com")
	req.NotEmpty(session.Token)
	req.Equal("flow@example.com", session.User.Email)

	// Wrong password resolves with the generic credentials error.
	resp := postJSON(t, ts, "/api/authentication", "", map[string]string{
		"strategy": "local", "email": "flow@example.com", "password": "WrongPass123!",
	})
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Unknown strategies are rejected before credentials are checked.
	resp = postJSON(t, ts, "/api/authentication", "", map[string]string{
		"strategy": "oauth", "email": "flow@example.com", "password": testPassword,
	})
	req.Equal(http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/api/messages")
	req.NoError(err)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, ts, "/api/messages", "", map[string]string{"body": "hello"})
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestMessageLifecycle(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)
	session := registerAndLogin(t, ts, "author@example.com")

	resp := postJSON(t, ts, "/api/messages", session.Token, map[string]string{"body": "fresh mushroom soup"})
	req.Equal(http.StatusCreated, resp.StatusCode)
	created := decodeBody[domain.Message](t, resp)
	req.Equal("fresh ******** soup", created.Body)
	req.NotNil(created.Author)
	req.Equal(session.User.ID, created.Author.ID)

	httpReq, err := http.NewRequest(http.MethodGet, ts.URL+"/api/messages", nil)
	req.NoError(err)
	httpReq.Header.Set("Authorization", "Bearer "+session.Token)
	resp, err = ts.Client().Do(httpReq)
	req.NoError(err)
	req.Equal(http.StatusOK, resp.StatusCode)
	page := decodeBody[messagesResponse](t, resp)
	req.Equal(1, page.Total)
	req.Len(page.Data, 1)
	req.Equal(created.ID, page.Data[0].ID)

	httpReq, err = http.NewRequest(
		http.MethodDelete,
		fmt.Sprintf("%s/api/messages/%s", ts.URL, created.ID),
		nil,
	)
	req.NoError(err)
	httpReq.Header.Set("Authorization", "Bearer "+session.Token)
	resp, err = ts.Client().Do(httpReq)
	req.NoError(err)
	req.Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestUsersFindReportsTotal(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	session := registerAndLogin(t, ts, "first@example.com")
	for i := 0; i < 3; i++ {
		resp := postJSON(t, ts, "/api/users", "", map[string]string{
			"email":    fmt.Sprintf("extra%d@example.com", i),
			"password": testPassword,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	httpReq, err := http.NewRequest(http.MethodGet, ts.URL+"/api/users?limit=2", nil)
	req.NoError(err)
	httpReq.Header.Set("Authorization", "Bearer "+session.Token)
	resp, err := ts.Client().Do(httpReq)
	req.NoError(err)
	req.Equal(http.StatusOK, resp.StatusCode)

	page := decodeBody[domain.Page[domain.User]](t, resp)
	req.Equal(4, page.Total)
	req.Len(page.Data, 2)
}

func TestWebsocketPushesCreatedEvents(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)
	session := registerAndLogin(t, ts, "socket@example.com")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws?token=" + session.Token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	req.NoError(err)
	defer conn.Close()

	// Give the handler goroutine time to register the subscription.
	time.Sleep(100 * time.Millisecond)

	resp := postJSON(t, ts, "/api/messages", session.Token, map[string]string{"body": "realtime ping"})
	req.Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	req.NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	var evt struct {
		Collection event.Collection `json:"collection"`
		Type       event.Type       `json:"event"`
		Record     domain.Message   `json:"record"`
	}
	req.NoError(conn.ReadJSON(&evt))
	req.Equal(event.Messages, evt.Collection)
	req.Equal(event.Created, evt.Type)
	req.Equal("realtime ping", evt.Record.Body)
}
