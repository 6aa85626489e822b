package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"nestkeep/internal/auth"
	"nestkeep/internal/invite"
	"nestkeep/internal/model"
	"nestkeep/internal/session"
)

type SessionHandler struct {
	sessions *session.Service
	invites  *invite.Service
	logger   *slog.Logger
}

func NewSessionHandler(sessions *session.Service, invites *invite.Service, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, invites: invites, logger: logger}
}

type sessionRequest struct {
	Title               string    `json:"title"`
	StartDate           time.Time `json:"startDate"`
	EndDate             time.Time `json:"endDate"`
	EarlyAccessDuration string    `json:"earlyAccessDuration"`
}

func (r *sessionRequest) validate() string {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return "title is required"
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return "startDate and endDate are required"
	}
	if !r.EndDate.After(r.StartDate) {
		return "endDate must be after startDate"
	}
	return ""
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeErrorMessage(w, http.StatusBadRequest, msg)
		return
	}

	sess := &model.Session{
		Title:               req.Title,
		StartDate:           req.StartDate.UTC(),
		EndDate:             req.EndDate.UTC(),
		EarlyAccessDuration: model.EarlyAccessDuration(req.EarlyAccessDuration),
	}
	created, err := h.sessions.Create(r.Context(), sess)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// List returns the household's sessions as a flat, unbucketed slice.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// Buckets returns the household's sessions grouped into upcoming,
// in-progress and past buckets, reconciling stale statuses on the way.
func (h *SessionHandler) Buckets(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.sessions.ListBuckets(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

// Get returns one session. A pending invite past its expiry is expired on
// the way out, so readers never see a stale pending invite.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	if checked, err := h.invites.CheckAndExpire(r.Context(), sess); err != nil {
		h.logger.Warn("lazy invite expiry failed", "session_id", r.PathValue("id"), "error", err)
	} else {
		sess = checked
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, err := h.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeErrorMessage(w, http.StatusBadRequest, msg)
		return
	}

	updated := *existing
	updated.Title = req.Title
	updated.StartDate = req.StartDate.UTC()
	updated.EndDate = req.EndDate.UTC()
	if req.EarlyAccessDuration != "" {
		updated.EarlyAccessDuration = model.EarlyAccessDuration(req.EarlyAccessDuration)
	}
	if err := h.sessions.Update(r.Context(), &updated); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &updated)
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Status == "" {
		writeErrorMessage(w, http.StatusBadRequest, "status is required")
		return
	}

	sess, err := h.sessions.UpdateStatus(r.Context(), r.PathValue("id"), model.SessionStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Complete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) Archive(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Archive(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Sweep completes the household's sessions whose early-access window has
// elapsed and archives the sitter-side history records.
func (h *SessionHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	id, err := auth.RequireHousehold(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.sessions.SweepEarlyAccess(r.Context(), id.HouseholdID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Refresh drops the cached view and reloads from the backend.
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.Refresh(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}
