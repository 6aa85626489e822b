package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"nestkeep/internal/database"
	"nestkeep/internal/docstore"
	"nestkeep/internal/model"
)

func seedInvite(t *testing.T, docs docstore.Store, inv *model.Invite) {
	t.Helper()
	fields, err := docstore.FieldsOf(inv)
	if err != nil {
		t.Fatalf("encode invite: %v", err)
	}
	if err := docs.Set(context.Background(), InvitePath(inv.ID), fields); err != nil {
		t.Fatalf("seed invite: %v", err)
	}
}

func TestInviteStoreByCode(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	docs := docstore.NewSQLite(db)
	invites := NewInviteStore(docs)
	ctx := context.Background()

	now := time.Now().UTC()
	seedInvite(t, docs, &model.Invite{
		ID: InviteID("314159"), Code: "314159", HouseholdID: "h1", SessionID: "s1",
		Status: model.InvitePending, CreatedAt: now, ExpiresAt: now.Add(model.InviteTTL),
	})

	inv, err := invites.GetByCode(ctx, "314159")
	if err != nil {
		t.Fatalf("get by code: %v", err)
	}
	if inv.SessionID != "s1" {
		t.Errorf("session id = %q", inv.SessionID)
	}

	if _, err := invites.GetByCode(ctx, "999999"); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("unknown code: err = %v, want ErrNotFound", err)
	}

	exists, err := invites.CodeExists(ctx, "314159")
	if err != nil || !exists {
		t.Errorf("CodeExists(314159) = %v, %v, want true", exists, err)
	}
	exists, err = invites.CodeExists(ctx, "999999")
	if err != nil || exists {
		t.Errorf("CodeExists(999999) = %v, %v, want false", exists, err)
	}
}

func TestActiveForSessionFiltersAndOrders(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	docs := docstore.NewSQLite(db)
	invites := NewInviteStore(docs)
	ctx := context.Background()

	now := time.Now().UTC()
	mk := func(code string, status model.InviteStatus, created time.Time, sessionID string) {
		seedInvite(t, docs, &model.Invite{
			ID: InviteID(code), Code: code, HouseholdID: "h1", SessionID: sessionID,
			Status: status, CreatedAt: created, ExpiresAt: created.Add(model.InviteTTL),
		})
	}
	mk("111111", model.InvitePending, now.Add(-2*time.Hour), "s1")
	mk("222222", model.InviteAccepted, now.Add(-time.Hour), "s1")
	mk("333333", model.InviteCancelled, now, "s1")
	mk("444444", model.InvitePending, now, "other")

	active, err := invites.ActiveForSession(ctx, "s1")
	if err != nil {
		t.Fatalf("active for session: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("got %d invites, want 2", len(active))
	}
	if active[0].Code != "222222" || active[1].Code != "111111" {
		t.Errorf("order = %s,%s, want newest first", active[0].Code, active[1].Code)
	}
}
