package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"nestkeep/internal/auth"
	"nestkeep/internal/docstore"
	"nestkeep/internal/model"
	"nestkeep/internal/store"
)

// Notifier receives best-effort, at-least-once status notifications.
// Delivery is never exactly-once; downstream consumers must tolerate
// duplicates.
type Notifier interface {
	Notify(entity, action string, extra map[string]any)
}

// Service drives the session lifecycle: manual status changes through the
// state machine, opportunistic reconciliation of time-derived status, the
// early-access sweep, and bucketed listings.
type Service struct {
	sessions       *store.SessionStore
	sitterSessions *store.SitterSessionStore
	notifier       Notifier
	logger         *slog.Logger
}

func NewService(sessions *store.SessionStore, sitterSessions *store.SitterSessionStore, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		sessions:       sessions,
		sitterSessions: sitterSessions,
		notifier:       notifier,
		logger:         logger,
	}
}

func (s *Service) notifyStatus(sessionID string, status model.SessionStatus) {
	if s.notifier != nil {
		s.notifier.Notify("session", "status_changed", map[string]any{
			"session_id": sessionID,
			"status":     string(status),
		})
	}
}

// Create stores a new session for the caller's household.
func (s *Service) Create(ctx context.Context, sess *model.Session) (*model.Session, error) {
	id, err := auth.RequireHousehold(ctx)
	if err != nil {
		return nil, err
	}
	sess.HouseholdID = id.HouseholdID

	created, err := s.sessions.Create(ctx, sess)
	if err != nil {
		return nil, err
	}
	s.logger.Info("session created", "session_id", created.ID, "household_id", created.HouseholdID)
	return created, nil
}

// Get returns one of the caller's household sessions.
func (s *Service) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	id, err := auth.RequireHousehold(ctx)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Get(ctx, id.HouseholdID, sessionID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Update overwrites the caller's session.
func (s *Service) Update(ctx context.Context, sess *model.Session) error {
	id, err := auth.RequireHousehold(ctx)
	if err != nil {
		return err
	}
	sess.HouseholdID = id.HouseholdID
	return s.sessions.Update(ctx, sess)
}

// Delete removes the session and its events.
func (s *Service) Delete(ctx context.Context, sessionID string) error {
	id, err := auth.RequireHousehold(ctx)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, id.HouseholdID, sessionID); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return err
	}
	s.logger.Info("session deleted", "session_id", sessionID)
	return nil
}

// UpdateStatus applies a caller-requested status change after running it
// through the state machine. Completing a session with early access
// configured lands in earlyAccess with a start stamp instead of completed.
func (s *Service) UpdateStatus(ctx context.Context, sessionID string, to model.SessionStatus) (*model.Session, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := ValidateTransition(sess, to, now); err != nil {
		return nil, err
	}

	updated := *sess
	if to == model.SessionCompleted && sess.HasEarlyAccess() {
		to = model.SessionEarlyAccess
	}
	if to == model.SessionEarlyAccess {
		updated.EarlyAccessStartedAt = &now
	}
	updated.Status = to

	if err := s.sessions.Update(ctx, &updated); err != nil {
		return nil, err
	}
	s.notifyStatus(updated.ID, updated.Status)
	return &updated, nil
}

// Complete finishes a session, honoring the early-access branch.
func (s *Service) Complete(ctx context.Context, sessionID string) (*model.Session, error) {
	return s.UpdateStatus(ctx, sessionID, model.SessionCompleted)
}

// Archive is the administrative archive action; it bypasses the transition
// table on purpose (the state machine rejects archived as a target).
func (s *Service) Archive(ctx context.Context, sessionID string) (*model.Session, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	updated := *sess
	updated.Status = model.SessionArchived
	if err := s.sessions.Update(ctx, &updated); err != nil {
		return nil, err
	}
	s.notifyStatus(updated.ID, updated.Status)
	return &updated, nil
}

// CreateEvent adds a sub-event to the caller's session.
func (s *Service) CreateEvent(ctx context.Context, sessionID string, ev *model.SessionEvent) (*model.SessionEvent, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessions.CreateEvent(ctx, sess.HouseholdID, sess.ID, ev)
}

// UpdateEvent overwrites a sub-event.
func (s *Service) UpdateEvent(ctx context.Context, sessionID string, ev *model.SessionEvent) error {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	return s.sessions.UpdateEvent(ctx, sess.HouseholdID, sess.ID, ev)
}

// DeleteEvent removes a sub-event.
func (s *Service) DeleteEvent(ctx context.Context, sessionID, eventID string) error {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	return s.sessions.DeleteEvent(ctx, sess.HouseholdID, sess.ID, eventID)
}

// ListEvents returns the session's sub-events ordered by start.
func (s *Service) ListEvents(ctx context.Context, sessionID string) ([]model.SessionEvent, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessions.ListEvents(ctx, sess.HouseholdID, sess.ID)
}

// ReplaceEvents swaps the session's sub-events for the given set in chunked
// batches.
func (s *Service) ReplaceEvents(ctx context.Context, sessionID string, events []model.SessionEvent) error {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.sessions.DeleteAllEvents(ctx, sess.HouseholdID, sess.ID); err != nil {
		return err
	}
	return s.sessions.PutEvents(ctx, sess.HouseholdID, sess.ID, events)
}

// ListBuckets returns the household's sessions grouped for display.
// Stored statuses are first reconciled against the inferred status; the
// write-back is advisory — a failure keeps the inferred value for this
// listing and logs, nothing more.
func (s *Service) ListBuckets(ctx context.Context) (Buckets, error) {
	id, err := auth.RequireHousehold(ctx)
	if err != nil {
		return Buckets{}, err
	}

	sessions, err := s.sessions.List(ctx, id.HouseholdID)
	if err != nil {
		return Buckets{}, err
	}

	now := time.Now().UTC()
	for i := range sessions {
		inferred := InferStatus(&sessions[i], now)
		if inferred == sessions[i].Status {
			continue
		}
		sessions[i].Status = inferred
		if inferred == model.SessionEarlyAccess && sessions[i].EarlyAccessStartedAt == nil {
			stamp := now
			sessions[i].EarlyAccessStartedAt = &stamp
		}
		if err := s.sessions.Update(ctx, &sessions[i]); err != nil {
			s.logger.Warn("status reconcile write-back failed", "session_id", sessions[i].ID, "error", err)
		}
		s.notifyStatus(sessions[i].ID, inferred)
	}

	return Classify(sessions), nil
}

// List returns the household's sessions as stored, cache-first and unbucketed.
func (s *Service) List(ctx context.Context) ([]model.Session, error) {
	id, err := auth.RequireHousehold(ctx)
	if err != nil {
		return nil, err
	}
	return s.sessions.List(ctx, id.HouseholdID)
}

// ListSitterBuckets returns the sessions the caller sits for, bucketed.
func (s *Service) ListSitterBuckets(ctx context.Context) (Buckets, error) {
	caller, err := auth.RequireUser(ctx)
	if err != nil {
		return Buckets{}, err
	}
	sessions, err := s.sessions.ListForSitter(ctx, caller.UserID)
	if err != nil {
		return Buckets{}, err
	}
	return Classify(sessions), nil
}

// Refresh drops the household's cache and re-reads the backend.
func (s *Service) Refresh(ctx context.Context) ([]model.Session, error) {
	id, err := auth.RequireHousehold(ctx)
	if err != nil {
		return nil, err
	}
	return s.sessions.Refresh(ctx, id.HouseholdID)
}

// SweepEarlyAccess iterates the household's sessions once and completes
// those whose early-access window has elapsed, writing the archived
// sitter-session record best-effort.
func (s *Service) SweepEarlyAccess(ctx context.Context, householdID string) error {
	sessions, err := s.sessions.List(ctx, householdID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for i := range sessions {
		sess := sessions[i]
		if sess.Status != model.SessionEarlyAccess || IsInEarlyAccess(&sess, now) {
			continue
		}

		sess.Status = model.SessionCompleted
		if err := s.sessions.Update(ctx, &sess); err != nil {
			return fmt.Errorf("sweep session %s: %w", sess.ID, err)
		}
		s.notifyStatus(sess.ID, sess.Status)

		if slot := sess.AssignedSitter; slot != nil && slot.UserID != "" {
			rec := &model.ArchivedSitterSession{
				SessionID:   sess.ID,
				HouseholdID: sess.HouseholdID,
				StartDate:   sess.StartDate,
				EndDate:     sess.EndDate,
				ArchivedAt:  now,
			}
			if ss, err := s.sitterSessions.Get(ctx, slot.UserID, sess.ID); err == nil {
				rec.HouseholdName = ss.HouseholdName
			}
			if err := s.sitterSessions.Archive(ctx, slot.UserID, rec); err != nil {
				s.logger.Warn("archive sitter session failed", "session_id", sess.ID, "error", err)
			}
		}
	}
	return nil
}
