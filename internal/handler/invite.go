package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"nestkeep/internal/invite"
	"nestkeep/internal/model"
	"nestkeep/internal/session"
)

type InviteHandler struct {
	invites  *invite.Service
	sessions *session.Service
	logger   *slog.Logger
}

func NewInviteHandler(invites *invite.Service, sessions *session.Service, logger *slog.Logger) *InviteHandler {
	return &InviteHandler{invites: invites, sessions: sessions, logger: logger}
}

// Create issues an invite for the session's sitter slot and returns the
// 6-digit code the owner shares out of band.
func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" {
		writeErrorMessage(w, http.StatusBadRequest, "name is required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "a valid email is required")
		return
	}

	inv, err := h.invites.CreateForSitter(r.Context(), r.PathValue("id"), model.Sitter{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// ListActive returns the session's invites still in play.
func (h *InviteHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	invites, err := h.invites.FetchActive(r.Context(), sess)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invites)
}

// Revoke removes the session's invite and clears the sitter slot.
func (h *InviteHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	sess, err := h.invites.Revoke(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Validate resolves a code for the sitter's confirmation screen without
// consuming it.
func (h *InviteHandler) Validate(w http.ResponseWriter, r *http.Request) {
	inv, sess, err := h.invites.Validate(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"invite":  inv,
		"session": sess,
	})
}

// Accept consumes the invite for the authenticated caller.
func (h *InviteHandler) Accept(w http.ResponseWriter, r *http.Request) {
	sess, inv, err := h.invites.Accept(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"invite":  inv,
		"session": sess,
	})
}

// SitterSessions lists the sessions the caller sits for, bucketed.
func (h *InviteHandler) SitterSessions(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.sessions.ListSitterBuckets(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

// LeaveSession is the sitter walking away from an engagement.
func (h *InviteHandler) LeaveSession(w http.ResponseWriter, r *http.Request) {
	if err := h.invites.RemoveSitterSession(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
