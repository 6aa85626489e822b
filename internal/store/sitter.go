package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"nestkeep/internal/docstore"
	"nestkeep/internal/model"
)

// SitterStore manages a household's durable known-sitter records.
type SitterStore struct {
	docs docstore.Store
}

func NewSitterStore(docs docstore.Store) *SitterStore {
	return &SitterStore{docs: docs}
}

// FindByEmail returns the household's sitter record matching the email, or
// nil when the sitter is not yet known. Unknown is a normal outcome here,
// not an error: creating the record is the caller's decision.
func (st *SitterStore) FindByEmail(ctx context.Context, householdID, email string) (*model.Sitter, error) {
	docs, err := st.docs.RunQuery(ctx, docstore.Query{
		Collection: SittersCollection(householdID),
		Filters:    []docstore.Filter{{Field: "email", Op: "==", Value: email}},
		Limit:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("find sitter by email: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	var s model.Sitter
	if err := docs[0].DataTo(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Put creates or overwrites a sitter record, assigning an id if absent.
func (st *SitterStore) Put(ctx context.Context, householdID string, s *model.Sitter) (*model.Sitter, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	fields, err := docstore.FieldsOf(s)
	if err != nil {
		return nil, fmt.Errorf("encode sitter: %w", err)
	}
	if err := st.docs.Set(ctx, SitterPath(householdID, s.ID), fields); err != nil {
		return nil, fmt.Errorf("put sitter %s: %w", s.ID, err)
	}
	return s, nil
}

// SitterSessionStore reads the per-user sitter-session index and writes the
// archived history. Index entries themselves are only ever created or
// deleted inside coordinator transactions.
type SitterSessionStore struct {
	docs docstore.Store
}

func NewSitterSessionStore(docs docstore.Store) *SitterSessionStore {
	return &SitterSessionStore{docs: docs}
}

func (st *SitterSessionStore) Get(ctx context.Context, userID, sessionID string) (*model.SitterSession, error) {
	doc, err := st.docs.Get(ctx, SitterSessionPath(userID, sessionID))
	if err != nil {
		return nil, fmt.Errorf("get sitter session %s: %w", sessionID, err)
	}
	var ss model.SitterSession
	if err := doc.DataTo(&ss); err != nil {
		return nil, err
	}
	return &ss, nil
}

func (st *SitterSessionStore) List(ctx context.Context, userID string) ([]model.SitterSession, error) {
	docs, err := st.docs.RunQuery(ctx, docstore.Query{
		Collection: SitterSessionsCollection(userID),
		OrderBy:    &docstore.OrderBy{Field: "acceptedAt", Desc: true},
	})
	if err != nil {
		return nil, fmt.Errorf("list sitter sessions: %w", err)
	}

	sessions := make([]model.SitterSession, 0, len(docs))
	for i := range docs {
		var ss model.SitterSession
		if err := docs[i].DataTo(&ss); err != nil {
			return nil, err
		}
		sessions = append(sessions, ss)
	}
	return sessions, nil
}

// Archive writes a historical record for a completed engagement. Callers
// treat failures as non-fatal; the archive sits outside the primary
// consistency boundary.
func (st *SitterSessionStore) Archive(ctx context.Context, userID string, rec *model.ArchivedSitterSession) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	fields, err := docstore.FieldsOf(rec)
	if err != nil {
		return fmt.Errorf("encode archived sitter session: %w", err)
	}
	if err := st.docs.Set(ctx, ArchivedSitterSessionPath(userID, rec.ID), fields); err != nil {
		return fmt.Errorf("archive sitter session: %w", err)
	}
	return nil
}
