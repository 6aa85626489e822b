package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"nestkeep/internal/model"
	"nestkeep/internal/session"
)

var hexColorRegexp = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type EventHandler struct {
	sessions *session.Service
	logger   *slog.Logger
}

func NewEventHandler(sessions *session.Service, logger *slog.Logger) *EventHandler {
	return &EventHandler{sessions: sessions, logger: logger}
}

type eventRequest struct {
	Title     string    `json:"title"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	PlaceID   string    `json:"placeId"`
	ColorTag  string    `json:"colorTag"`
}

func (r *eventRequest) validate() string {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return "title is required"
	}
	if r.StartDate.IsZero() {
		return "startDate is required"
	}
	if r.ColorTag != "" && !hexColorRegexp.MatchString(r.ColorTag) {
		return "colorTag must be a hex color (e.g. #FF0000)"
	}
	return ""
}

func (r *eventRequest) toModel(id string) *model.SessionEvent {
	return &model.SessionEvent{
		ID:        id,
		Title:     r.Title,
		StartDate: r.StartDate.UTC(),
		EndDate:   r.EndDate.UTC(),
		PlaceID:   r.PlaceID,
		ColorTag:  r.ColorTag,
	}
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeErrorMessage(w, http.StatusBadRequest, msg)
		return
	}

	ev, err := h.sessions.CreateEvent(r.Context(), r.PathValue("id"), req.toModel(""))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.sessions.ListEvents(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []model.SessionEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeErrorMessage(w, http.StatusBadRequest, msg)
		return
	}

	ev := req.toModel(r.PathValue("event_id"))
	if err := h.sessions.UpdateEvent(r.Context(), r.PathValue("id"), ev); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.DeleteEvent(r.Context(), r.PathValue("id"), r.PathValue("event_id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Replace swaps the session's whole event set in one call, used when the
// owner edits the itinerary as a block.
func (h *EventHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var reqs []eventRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	events := make([]model.SessionEvent, 0, len(reqs))
	for i := range reqs {
		if msg := reqs[i].validate(); msg != "" {
			writeErrorMessage(w, http.StatusBadRequest, msg)
			return
		}
		events = append(events, *reqs[i].toModel(""))
	}

	if err := h.sessions.ReplaceEvents(r.Context(), r.PathValue("id"), events); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
