package docstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"nestkeep/internal/database"
)

func setupStore(t *testing.T) *SQLite {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLite(db)
}

func TestGetNotFound(t *testing.T) {
	s := setupStore(t)

	_, err := s.Get(context.Background(), "households/h1/sessions/missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "households/h1/sessions/s1", Fields{"title": "weekend", "days": float64(2)}); err != nil {
		t.Fatalf("set: %v", err)
	}

	doc, err := s.Get(ctx, "households/h1/sessions/s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Fields["title"] != "weekend" {
		t.Errorf("title = %v, want weekend", doc.Fields["title"])
	}
	if doc.Fields["days"] != float64(2) {
		t.Errorf("days = %v, want 2", doc.Fields["days"])
	}
}

func TestUpdateMergesAndDeletesFields(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	s.Set(ctx, "invites/invite-111111", Fields{"status": "pending", "email": "a@example.com"})

	err := s.Update(ctx, "invites/invite-111111", Fields{"status": "accepted", "email": FieldDelete})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	doc, _ := s.Get(ctx, "invites/invite-111111")
	if doc.Fields["status"] != "accepted" {
		t.Errorf("status = %v, want accepted", doc.Fields["status"])
	}
	if _, ok := doc.Fields["email"]; ok {
		t.Error("email field should have been deleted")
	}
}

func TestUpdateMissingDocument(t *testing.T) {
	s := setupStore(t)

	err := s.Update(context.Background(), "invites/invite-000000", Fields{"status": "accepted"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteMissingDocument(t *testing.T) {
	s := setupStore(t)

	err := s.Delete(context.Background(), "invites/invite-000000")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRunQueryFiltersAndOrder(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	s.Set(ctx, "invites/invite-100001", Fields{"sessionId": "s1", "status": "pending", "createdAt": "2026-01-01T10:00:00Z"})
	s.Set(ctx, "invites/invite-100002", Fields{"sessionId": "s1", "status": "accepted", "createdAt": "2026-01-02T10:00:00Z"})
	s.Set(ctx, "invites/invite-100003", Fields{"sessionId": "s1", "status": "cancelled", "createdAt": "2026-01-03T10:00:00Z"})
	s.Set(ctx, "invites/invite-100004", Fields{"sessionId": "s2", "status": "pending", "createdAt": "2026-01-04T10:00:00Z"})

	docs, err := s.RunQuery(ctx, Query{
		Collection: "invites",
		Filters: []Filter{
			{Field: "sessionId", Op: "==", Value: "s1"},
			{Field: "status", Op: "in", Value: []any{"pending", "accepted"}},
		},
		OrderBy: &OrderBy{Field: "createdAt", Desc: true},
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d docs, want 2", len(docs))
	}
	if docs[0].Path != "invites/invite-100002" {
		t.Errorf("first doc = %s, want invite-100002 (newest first)", docs[0].Path)
	}
}

func TestRunQueryLimit(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s.Set(ctx, fmt.Sprintf("users/u1/sitterSessions/s%d", i), Fields{"householdId": "h1"})
	}

	docs, err := s.RunQuery(ctx, Query{Collection: "users/u1/sitterSessions", Limit: 3})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 3 {
		t.Errorf("got %d docs, want 3", len(docs))
	}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	s.Set(ctx, "invites/invite-222222", Fields{"status": "pending"})

	boom := errors.New("boom")
	err := s.RunTransaction(ctx, func(tx Tx) error {
		if err := tx.Update(ctx, "invites/invite-222222", Fields{"status": "accepted"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	doc, _ := s.Get(ctx, "invites/invite-222222")
	if doc.Fields["status"] != "pending" {
		t.Errorf("status = %v, want pending after rollback", doc.Fields["status"])
	}
}

func TestTransactionCreateConflict(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	s.Set(ctx, "users/u1/sitterSessions/s1", Fields{"householdId": "h1"})

	err := s.RunTransaction(ctx, func(tx Tx) error {
		if err := tx.Set(ctx, "invites/invite-333333", Fields{"status": "accepted"}); err != nil {
			return err
		}
		return tx.Create(ctx, "users/u1/sitterSessions/s1", Fields{"householdId": "h1"})
	})
	if !errors.Is(err, ErrExists) {
		t.Fatalf("err = %v, want ErrExists", err)
	}

	// The earlier Set in the same transaction must not have leaked.
	if _, err := s.Get(ctx, "invites/invite-333333"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after rollback: err = %v, want ErrNotFound", err)
	}
}

func TestAtomicApplyAllOrNothing(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	atomic := NewAtomic(s)

	s.Set(ctx, "invites/invite-444444", Fields{"status": "pending"})

	plan := []Write{
		{Op: OpUpdate, Path: "invites/invite-444444", Fields: Fields{"status": "accepted"}},
		{Op: OpUpdate, Path: "households/h1/sessions/missing", Fields: Fields{"assignedSitter": "x"}},
	}
	if err := atomic.Apply(ctx, plan); !errors.Is(err, ErrNotFound) {
		t.Fatalf("apply err = %v, want ErrNotFound", err)
	}

	doc, _ := s.Get(ctx, "invites/invite-444444")
	if doc.Fields["status"] != "pending" {
		t.Errorf("status = %v, want pending (nothing applied)", doc.Fields["status"])
	}
}

func TestBatchCommitAndCeiling(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	b := s.NewBatch()
	for i := 0; i < 10; i++ {
		b.Set(fmt.Sprintf("households/h1/sessions/s1/events/e%d", i), Fields{"title": "walk"})
	}
	if err := b.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	docs, _ := s.RunQuery(ctx, Query{Collection: "households/h1/sessions/s1/events"})
	if len(docs) != 10 {
		t.Errorf("got %d events, want 10", len(docs))
	}

	over := s.NewBatch()
	for i := 0; i <= MaxBatchWrites; i++ {
		over.Delete(fmt.Sprintf("households/h1/sessions/s1/events/e%d", i))
	}
	if err := over.Commit(ctx); !errors.Is(err, ErrBatchTooLarge) {
		t.Errorf("commit err = %v, want ErrBatchTooLarge", err)
	}
}
