package middleware

import (
	"encoding/json"
	"net/http"

	"nestkeep/internal/auth"
)

// Identity headers set by the authenticating gateway in front of this
// service. The engine trusts them as-is; it never sees credentials.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
	HeaderUserName  = "X-User-Name"
	HeaderHousehold = "X-Household-Id"
)

// RequireIdentity populates the request context with the caller identity
// from the gateway headers. Requests without a user id are rejected; the
// household header is optional so sitter-only callers pass through.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := auth.Identity{
			UserID:      r.Header.Get(HeaderUserID),
			Email:       r.Header.Get(HeaderUserEmail),
			Name:        r.Header.Get(HeaderUserName),
			HouseholdID: r.Header.Get(HeaderHousehold),
		}
		if id.UserID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
			return
		}

		ctx := auth.WithIdentity(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
