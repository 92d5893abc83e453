package server

import (
	"context"
	"net/http"
	"strings"

	"chatline/auth"
	"chatline/errors"
)

type contextKey string

const claimsKey contextKey = "claims"

// requireAuth validates the Bearer token and stores its claims in the
// request context. Websocket clients cannot set headers from a browser,
// so a token query parameter is accepted as a fallback.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			tokenString = r.URL.Query().Get("token")
		}
		if tokenString == "" {
			s.writeError(w, errors.ErrNotAuthenticated)
			return
		}

		claims, err := s.tokens.Verify(tokenString)
		if err != nil {
			s.log.Debug("Token validation failed", "error", err)
			s.writeError(w, errors.ErrNotAuthenticated)
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

func claimsFrom(r *http.Request) (*auth.CustomClaims, bool) {
	claims, ok := r.Context().Value(claimsKey).(*auth.CustomClaims)
	return claims, ok
}
