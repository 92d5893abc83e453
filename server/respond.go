package server

import (
	"encoding/json"
	"net/http"

	"chatline/errors"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("Response encoding failed", "error", err)
	}
}

// writeError maps the sentinel taxonomy to HTTP statuses. Anything
// unrecognized is a 500 with a generic body so internals never leak.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, errors.ErrInvalidCredentials),
		errors.Is(err, errors.ErrNotAuthenticated):
		status, message = http.StatusUnauthorized, err.Error()
	case errors.Is(err, errors.ErrForbidden):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, errors.ErrValidation),
		errors.Is(err, errors.ErrInvalidPassword):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, errors.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, errors.ErrUserAlreadyExists):
		status, message = http.StatusConflict, err.Error()
	default:
		s.log.Error("Unhandled error", "error", err)
	}

	s.writeJSON(w, status, errorResponse{Error: message, Code: status})
}
