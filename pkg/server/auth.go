package server

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gridwatch/dcimpact/pkg/log"
)

type contextKey string

const identityContextKey contextKey = "identity"

// authMiddleware requires a verified bearer token when a verifier is
// configured. Without one every request is let through.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("reqPath", r.URL.Path)))

		if s.verifier == nil {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			log.Ctx(ctx).WarnContext(ctx, "missing auth header")
			writeJSONError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			log.Ctx(ctx).WarnContext(ctx, "invalid auth header")
			writeJSONError(w, "invalid auth header", http.StatusBadRequest)
			return
		}

		id, err := s.verifier(ctx, token)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "token validation failed", slog.Any("error", err))
			writeJSONError(w, "invalid auth token", http.StatusUnauthorized)
			return
		}
		if !s.emailAllowed(id.Email) {
			log.Ctx(ctx).WarnContext(ctx, "email not allowed", slog.String("email", id.Email))
			writeJSONError(w, "forbidden", http.StatusForbidden)
			return
		}

		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("authSubject", id.Subject)))
		log.Ctx(ctx).DebugContext(ctx, "authenticated request", slog.String("email", id.Email))
		ctx = context.WithValue(ctx, identityContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) emailAllowed(email string) bool {
	if len(s.allowedEmails) == 0 {
		return true
	}
	if email == "" {
		return false
	}
	for _, allowed := range s.allowedEmails {
		if subtle.ConstantTimeCompare([]byte(email), []byte(allowed)) == 1 {
			return true
		}
	}
	return false
}

func getIdentity(r *http.Request) identity {
	if id, ok := r.Context().Value(identityContextKey).(identity); ok {
		return id
	}
	return identity{}
}
