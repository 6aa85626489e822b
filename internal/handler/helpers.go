package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"nestkeep/internal/auth"
	"nestkeep/internal/docstore"
	"nestkeep/internal/invite"
	"nestkeep/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps domain errors onto HTTP statuses. Unknown errors become a
// generic 500 so internals never leak to clients.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUserNotAuthenticated):
		writeErrorMessage(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, auth.ErrNoCurrentHousehold):
		writeErrorMessage(w, http.StatusForbidden, "no active household")
	case errors.Is(err, session.ErrSessionNotFound):
		writeErrorMessage(w, http.StatusNotFound, "session not found")
	case errors.Is(err, session.ErrInvalidStatusTransition):
		writeErrorMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, invite.ErrInvalidInviteCode):
		writeErrorMessage(w, http.StatusNotFound, "invalid invite code")
	case errors.Is(err, invite.ErrInviteExpired):
		writeErrorMessage(w, http.StatusGone, "invite expired")
	case errors.Is(err, invite.ErrInviteAlreadyUsed):
		writeErrorMessage(w, http.StatusConflict, "invite already used")
	case errors.Is(err, docstore.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, "not found")
	default:
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}
