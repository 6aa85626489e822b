package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"nestkeep/internal/docstore"
	"nestkeep/internal/model"
)

// SessionStore is the session repository: CRUD over session documents and
// their event sub-collection, with a read-through cache in front. Writes go
// backend-first; the cache is patched only after the backend accepts, so a
// failed write never mutates cached state.
type SessionStore struct {
	docs   docstore.Store
	owner  *sessionCache
	sitter *sessionCache
}

func NewSessionStore(docs docstore.Store) *SessionStore {
	return &SessionStore{
		docs:   docs,
		owner:  newSessionCache(),
		sitter: newSessionCache(),
	}
}

func decodeSession(doc *docstore.Document) (*model.Session, error) {
	var s model.Session
	if err := doc.DataTo(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Create writes a new session for the household. Missing id, status and
// created-at are filled in.
func (st *SessionStore) Create(ctx context.Context, s *model.Session) (*model.Session, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = model.SessionUpcoming
	}
	if s.EarlyAccessDuration == "" {
		s.EarlyAccessDuration = model.EarlyAccessNone
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	s.MultiDay = !sameDay(s.StartDate, s.EndDate)

	fields, err := docstore.FieldsOf(s)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	if err := st.docs.Set(ctx, SessionPath(s.HouseholdID, s.ID), fields); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	st.owner.put(s.HouseholdID, *s)
	return s, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Get returns the session, preferring the cache. A backend read only
// patches the cached scope when it is already primed; a point read never
// primes a scope on its own.
func (st *SessionStore) Get(ctx context.Context, householdID, sessionID string) (*model.Session, error) {
	if s, ok := st.owner.get(householdID, sessionID); ok {
		return &s, nil
	}

	doc, err := st.docs.Get(ctx, SessionPath(householdID, sessionID))
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	s, err := decodeSession(doc)
	if err != nil {
		return nil, err
	}
	st.owner.put(householdID, *s)
	return s, nil
}

// List returns the household's sessions from the cache, loading from the
// backend on first use.
func (st *SessionStore) List(ctx context.Context, householdID string) ([]model.Session, error) {
	if st.owner.primed(householdID) {
		return st.owner.list(householdID), nil
	}
	return st.Refresh(ctx, householdID)
}

// Refresh discards the cached sessions for the household and re-reads the
// backend.
func (st *SessionStore) Refresh(ctx context.Context, householdID string) ([]model.Session, error) {
	docs, err := st.docs.RunQuery(ctx, docstore.Query{
		Collection: SessionsCollection(householdID),
		OrderBy:    &docstore.OrderBy{Field: "startDate"},
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	sessions := make([]model.Session, 0, len(docs))
	for i := range docs {
		s, err := decodeSession(&docs[i])
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	st.owner.replaceAll(householdID, sessions)
	return sessions, nil
}

// Update overwrites the session document, then patches the cache.
func (st *SessionStore) Update(ctx context.Context, s *model.Session) error {
	fields, err := docstore.FieldsOf(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := st.docs.Set(ctx, SessionPath(s.HouseholdID, s.ID), fields); err != nil {
		return fmt.Errorf("update session %s: %w", s.ID, err)
	}
	st.owner.put(s.HouseholdID, *s)
	return nil
}

// Delete removes the session and all of its events. Event deletes are
// chunked batches under the backend's write ceiling; the session document
// goes last so a partial failure leaves the session discoverable.
func (st *SessionStore) Delete(ctx context.Context, householdID, sessionID string) error {
	if err := st.DeleteAllEvents(ctx, householdID, sessionID); err != nil {
		return err
	}
	if err := st.docs.Delete(ctx, SessionPath(householdID, sessionID)); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	st.owner.delete(householdID, sessionID)
	return nil
}

// Prime patches the cached copy of a session after an out-of-band write
// (e.g. a coordinator transaction that touched the session document
// directly). A no-op for scopes that have never been listed.
func (st *SessionStore) Prime(s *model.Session) {
	st.owner.put(s.HouseholdID, *s)
}

// Forget drops a session from the cache without touching the backend.
func (st *SessionStore) Forget(householdID, sessionID string) {
	st.owner.delete(householdID, sessionID)
}

// --- events -------------------------------------------------------------

func (st *SessionStore) CreateEvent(ctx context.Context, householdID, sessionID string, ev *model.SessionEvent) (*model.SessionEvent, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	fields, err := docstore.FieldsOf(ev)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	if err := st.docs.Set(ctx, EventPath(householdID, sessionID, ev.ID), fields); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return ev, nil
}

func (st *SessionStore) UpdateEvent(ctx context.Context, householdID, sessionID string, ev *model.SessionEvent) error {
	fields, err := docstore.FieldsOf(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := st.docs.Set(ctx, EventPath(householdID, sessionID, ev.ID), fields); err != nil {
		return fmt.Errorf("update event %s: %w", ev.ID, err)
	}
	return nil
}

func (st *SessionStore) DeleteEvent(ctx context.Context, householdID, sessionID, eventID string) error {
	if err := st.docs.Delete(ctx, EventPath(householdID, sessionID, eventID)); err != nil {
		return fmt.Errorf("delete event %s: %w", eventID, err)
	}
	return nil
}

func (st *SessionStore) ListEvents(ctx context.Context, householdID, sessionID string) ([]model.SessionEvent, error) {
	docs, err := st.docs.RunQuery(ctx, docstore.Query{
		Collection: EventsCollection(householdID, sessionID),
		OrderBy:    &docstore.OrderBy{Field: "startDate"},
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	events := make([]model.SessionEvent, 0, len(docs))
	for i := range docs {
		var ev model.SessionEvent
		if err := docs[i].DataTo(&ev); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// PutEvents writes a set of events as atomic batches, chunked to the
// backend's per-batch ceiling. Atomicity holds within a chunk, not across
// chunks.
func (st *SessionStore) PutEvents(ctx context.Context, householdID, sessionID string, events []model.SessionEvent) error {
	for start := 0; start < len(events); start += docstore.MaxBatchWrites {
		end := min(start+docstore.MaxBatchWrites, len(events))
		batch := st.docs.NewBatch()
		for i := start; i < end; i++ {
			ev := events[i]
			if ev.ID == "" {
				ev.ID = uuid.NewString()
			}
			fields, err := docstore.FieldsOf(&ev)
			if err != nil {
				return fmt.Errorf("encode event: %w", err)
			}
			batch.Set(EventPath(householdID, sessionID, ev.ID), fields)
		}
		if err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("put events: %w", err)
		}
	}
	return nil
}

// DeleteAllEvents removes every event of the session in sequential chunked
// batches.
func (st *SessionStore) DeleteAllEvents(ctx context.Context, householdID, sessionID string) error {
	events, err := st.ListEvents(ctx, householdID, sessionID)
	if err != nil {
		return err
	}
	for start := 0; start < len(events); start += docstore.MaxBatchWrites {
		end := min(start+docstore.MaxBatchWrites, len(events))
		batch := st.docs.NewBatch()
		for i := start; i < end; i++ {
			batch.Delete(EventPath(householdID, sessionID, events[i].ID))
		}
		if err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("delete events: %w", err)
		}
	}
	return nil
}

// --- sitter view --------------------------------------------------------

// ListForSitter returns the sessions the user sits for, resolved through
// the per-user sitter-session index and cached separately from the owner
// view.
func (st *SessionStore) ListForSitter(ctx context.Context, userID string) ([]model.Session, error) {
	if st.sitter.primed(userID) {
		return st.sitter.list(userID), nil
	}
	return st.RefreshForSitter(ctx, userID)
}

// RefreshForSitter reloads the sitter view from the backend. Index entries
// whose session has since been deleted are skipped.
func (st *SessionStore) RefreshForSitter(ctx context.Context, userID string) ([]model.Session, error) {
	docs, err := st.docs.RunQuery(ctx, docstore.Query{
		Collection: SitterSessionsCollection(userID),
	})
	if err != nil {
		return nil, fmt.Errorf("list sitter sessions: %w", err)
	}

	var sessions []model.Session
	for i := range docs {
		var ss model.SitterSession
		if err := docs[i].DataTo(&ss); err != nil {
			return nil, err
		}
		doc, err := st.docs.Get(ctx, SessionPath(ss.HouseholdID, ss.SessionID))
		if err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("resolve sitter session %s: %w", ss.SessionID, err)
		}
		s, err := decodeSession(doc)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	st.sitter.replaceAll(userID, sessions)
	return sessions, nil
}

// ForgetSitterView drops the cached sitter view for a user.
func (st *SessionStore) ForgetSitterView(userID string) {
	st.sitter.invalidate(userID)
}
