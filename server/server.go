package server

import (
	"log/slog"
	"net/http"

	"chatline/auth"
	"chatline/contract"
	"chatline/services"

	"github.com/gorilla/mux"
)

// Server exposes the collections over REST under /api plus a websocket
// endpoint pushing collection change events.
type Server struct {
	log            *slog.Logger
	tokens         *auth.TokenIssuer
	authService    services.IAuthService
	userService    services.IUserService
	messageService services.IMessageService
	registry       contract.IRegistry
}

func NewServer(
	log *slog.Logger,
	tokens *auth.TokenIssuer,
	authService services.IAuthService,
	userService services.IUserService,
	messageService services.IMessageService,
	registry contract.IRegistry,
) *Server {
	return &Server{
		log:            log,
		tokens:         tokens,
		authService:    authService,
		userService:    userService,
		messageService: messageService,
		registry:       registry,
	}
}

type route struct {
	method    string
	path      string
	handler   http.HandlerFunc
	protected bool
}

// routes is the static route table. Registration is first-match; every
// unmatched path falls through to the JSON 404 handler.
func (s *Server) routes() []route {
	return []route{
		{http.MethodPost, "/api/authentication", s.handleLogin, false},
		{http.MethodPost, "/api/users", s.handleRegister, false},
		{http.MethodGet, "/api/users", s.handleFindUsers, true},
		{http.MethodGet, "/api/users/{id}", s.handleGetUser, true},
		{http.MethodGet, "/api/messages", s.handleFindMessages, true},
		{http.MethodPost, "/api/messages", s.handleCreateMessage, true},
		{http.MethodPatch, "/api/messages/{id}", s.handlePatchMessage, true},
		{http.MethodDelete, "/api/messages/{id}", s.handleRemoveMessage, true},
		{http.MethodGet, "/api/ws", s.handleWebSocket, true},
		{http.MethodGet, "/api/health", s.handleHealth, false},
	}
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	for _, rt := range s.routes() {
		handler := rt.handler
		if rt.protected {
			handler = s.requireAuth(handler)
		}
		r.HandleFunc(rt.path, handler).Methods(rt.method)
	}
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	return r
}
