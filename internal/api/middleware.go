package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// BearerAuth returns middleware that validates the Authorization: Bearer <token> header.
// Uses crypto/subtle.ConstantTimeCompare to prevent timing attacks.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// UserIDHeader carries the caller's user id for preference lookups.
const UserIDHeader = "X-User-ID"

type contextKeyUserID struct{}

// UserID parses X-User-ID into the request context. A missing or malformed
// header leaves the request anonymous.
func UserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := uuid.Parse(r.Header.Get(UserIDHeader)); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), contextKeyUserID{}, id))
		}
		next.ServeHTTP(w, r)
	})
}

// UserIDFrom returns the user id stored by UserID.
func UserIDFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(contextKeyUserID{}).(uuid.UUID)
	return id, ok
}
