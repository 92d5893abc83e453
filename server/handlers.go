package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"chatline/domain"
	"chatline/errors"
	"chatline/services"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
)

type authenticationRequest struct {
	Strategy string `json:"strategy"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req authenticationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", errors.ErrValidation, err))
		return
	}
	if req.Strategy != "local" {
		s.writeError(w, fmt.Errorf("%w: unsupported strategy %q", errors.ErrValidation, req.Strategy))
		return
	}

	session, err := s.authService.Login(req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, session)
}

type registrationRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", errors.ErrValidation, err))
		return
	}

	user, err := s.userService.Register(req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleFindUsers(w http.ResponseWriter, r *http.Request) {
	page, err := s.userService.Find(intParam(r, "limit"), intParam(r, "skip"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.userService.Get(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

// messagesResponse augments the page with the resume cursor of the
// chronological scan.
type messagesResponse struct {
	domain.Page[domain.Message]
	Cursor *string `json:"cursor,omitempty"`
}

func (s *Server) handleFindMessages(w http.ResponseWriter, r *http.Request) {
	query := services.MessageQuery{
		Search: r.URL.Query().Get("search"),
		Limit:  intParam(r, "limit"),
	}
	if c := r.URL.Query().Get("cursor"); c != "" {
		query.Cursor = &c
	}

	page, cursor, err := s.messageService.Find(r.Context(), query)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, messagesResponse{Page: page, Cursor: cursor})
}

type messageRequest struct {
	Body string `json:"body"`
}

func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		s.writeError(w, errors.ErrNotAuthenticated)
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", errors.ErrValidation, err))
		return
	}

	message, err := s.messageService.Post(r.Context(), claims.UserID, req.Body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, message)
}

func (s *Server) handlePatchMessage(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		s.writeError(w, errors.ErrNotAuthenticated)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: invalid message id", errors.ErrValidation))
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", errors.ErrValidation, err))
		return
	}

	message, err := s.messageService.Patch(r.Context(), id, claims.UserID, req.Body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, message)
}

func (s *Server) handleRemoveMessage(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		s.writeError(w, errors.ErrNotAuthenticated)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: invalid message id", errors.ErrValidation))
		return
	}

	message, err := s.messageService.Remove(r.Context(), id, claims.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, message)
}

type healthResponse struct {
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	CPUPercent float64   `json:"cpuPercent"`
	RAMPercent float32   `json:"ramPercent"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "UP", Timestamp: time.Now().UTC()}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		resp.CPUPercent, _ = proc.CPUPercent()
		resp.RAMPercent, _ = proc.MemoryPercent()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusNotFound, errorResponse{
		Error: fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path),
		Code:  http.StatusNotFound,
	})
}

func intParam(r *http.Request, name string) int {
	value, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || value < 0 {
		return 0
	}
	return value
}
