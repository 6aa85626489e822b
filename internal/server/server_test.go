package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nestkeep/internal/config"
	"nestkeep/internal/database"
	"nestkeep/internal/docstore"
	"nestkeep/internal/middleware"
	"nestkeep/internal/model"
	"nestkeep/internal/store"
)

func setupServer(t *testing.T) (http.Handler, docstore.Store) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	docs := docstore.NewSQLite(db)
	if err := docs.Set(context.Background(), store.HouseholdPath("h1"), docstore.Fields{"id": "h1", "name": "The Parkers"}); err != nil {
		t.Fatalf("seed household: %v", err)
	}

	cfg := &config.Config{AcceptRateLimit: 100, InviteTTL: 48 * time.Hour}
	srv := New(db, cfg, slog.Default())
	return srv.Router(), docs
}

func ownerHeaders(req *http.Request) {
	req.Header.Set(middleware.HeaderUserID, "owner-1")
	req.Header.Set(middleware.HeaderUserEmail, "olive@example.com")
	req.Header.Set(middleware.HeaderUserName, "Olive")
	req.Header.Set(middleware.HeaderHousehold, "h1")
}

func sitterHeaders(req *http.Request) {
	req.Header.Set(middleware.HeaderUserID, "user-sam")
	req.Header.Set(middleware.HeaderUserEmail, "sam@example.com")
	req.Header.Set(middleware.HeaderUserName, "Sam")
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, identity func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if identity != nil {
		identity(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthIsPublic(t *testing.T) {
	h, _ := setupServer(t)
	rec := doJSON(t, h, "GET", "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestAPIRequiresIdentity(t *testing.T) {
	h, _ := setupServer(t)
	rec := doJSON(t, h, "GET", "/api/sessions", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestSessionInviteFlow(t *testing.T) {
	h, _ := setupServer(t)
	now := time.Now().UTC()

	// Owner creates a session.
	rec := doJSON(t, h, "POST", "/api/sessions", map[string]any{
		"title":     "date night",
		"startDate": now.Add(time.Hour).Format(time.RFC3339),
		"endDate":   now.Add(3 * time.Hour).Format(time.RFC3339),
	}, ownerHeaders)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: status = %d, body = %s", rec.Code, rec.Body)
	}
	var sess model.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}

	// Owner invites a sitter and gets back a code.
	rec = doJSON(t, h, "POST", "/api/sessions/"+sess.ID+"/invite", map[string]string{
		"name": "Sam", "email": "sam@example.com",
	}, ownerHeaders)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create invite: status = %d, body = %s", rec.Code, rec.Body)
	}
	var inv model.Invite
	if err := json.Unmarshal(rec.Body.Bytes(), &inv); err != nil {
		t.Fatalf("decode invite: %v", err)
	}
	if len(inv.Code) != 6 {
		t.Fatalf("code = %q, want 6 digits", inv.Code)
	}

	// Sitter previews the invite without consuming it.
	rec = doJSON(t, h, "GET", "/api/invites/"+inv.Code, nil, sitterHeaders)
	if rec.Code != http.StatusOK {
		t.Fatalf("validate: status = %d, body = %s", rec.Code, rec.Body)
	}

	// Sitter accepts.
	rec = doJSON(t, h, "POST", "/api/invites/"+inv.Code+"/accept", nil, sitterHeaders)
	if rec.Code != http.StatusOK {
		t.Fatalf("accept: status = %d, body = %s", rec.Code, rec.Body)
	}

	// Session now shows the accepted sitter.
	rec = doJSON(t, h, "GET", "/api/sessions/"+sess.ID, nil, ownerHeaders)
	if rec.Code != http.StatusOK {
		t.Fatalf("get session: status = %d", rec.Code)
	}
	var got model.Session
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.AssignedSitter == nil || got.AssignedSitter.InviteStatus != model.AssignedSitterAccepted {
		t.Fatalf("sitter slot = %+v, want accepted", got.AssignedSitter)
	}

	// Sitter sees the session in their upcoming bucket.
	rec = doJSON(t, h, "GET", "/api/sitter/sessions", nil, sitterHeaders)
	if rec.Code != http.StatusOK {
		t.Fatalf("sitter sessions: status = %d", rec.Code)
	}
	var buckets struct {
		Upcoming []model.Session `json:"upcoming"`
	}
	json.Unmarshal(rec.Body.Bytes(), &buckets)
	if len(buckets.Upcoming) != 1 || buckets.Upcoming[0].ID != sess.ID {
		t.Fatalf("sitter upcoming = %+v", buckets.Upcoming)
	}

	// A second acceptance attempt conflicts.
	rec = doJSON(t, h, "POST", "/api/invites/"+inv.Code+"/accept", nil, sitterHeaders)
	if rec.Code != http.StatusConflict {
		t.Errorf("re-accept: status = %d, want %d", rec.Code, http.StatusConflict)
	}

	// Sitter leaves; the engagement disappears from their list.
	rec = doJSON(t, h, "DELETE", "/api/sitter/sessions/"+sess.ID, nil, sitterHeaders)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("leave: status = %d, body = %s", rec.Code, rec.Body)
	}
	rec = doJSON(t, h, "GET", "/api/sitter/sessions", nil, sitterHeaders)
	var after struct {
		Upcoming []model.Session `json:"upcoming"`
	}
	json.Unmarshal(rec.Body.Bytes(), &after)
	if len(after.Upcoming) != 0 {
		t.Errorf("sitter upcoming after leave = %+v", after.Upcoming)
	}
}

func TestGetSurvivesFailedExpiryWriteBack(t *testing.T) {
	h, docs := setupServer(t)
	now := time.Now().UTC()

	rec := doJSON(t, h, "POST", "/api/sessions", map[string]any{
		"title":     "date night",
		"startDate": now.Add(time.Hour).Format(time.RFC3339),
		"endDate":   now.Add(3 * time.Hour).Format(time.RFC3339),
	}, ownerHeaders)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: status = %d", rec.Code)
	}
	var sess model.Session
	json.Unmarshal(rec.Body.Bytes(), &sess)

	// Prime the household cache so the session keeps serving from it.
	if rec := doJSON(t, h, "GET", "/api/sessions", nil, ownerHeaders); rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}

	rec = doJSON(t, h, "POST", "/api/sessions/"+sess.ID+"/invite", map[string]string{
		"name": "Sam", "email": "sam@example.com",
	}, ownerHeaders)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create invite: status = %d, body = %s", rec.Code, rec.Body)
	}
	var inv model.Invite
	json.Unmarshal(rec.Body.Bytes(), &inv)

	// Expire the invite, then break its write-back by removing the backend
	// session document; the cached copy still serves the read.
	ctx := context.Background()
	if err := docs.Update(ctx, store.InvitePath(inv.ID), docstore.Fields{
		"expiresAt": now.Add(-time.Minute).Format(time.RFC3339Nano),
	}); err != nil {
		t.Fatalf("force expiry: %v", err)
	}
	if err := docs.Delete(ctx, store.SessionPath("h1", sess.ID)); err != nil {
		t.Fatalf("delete backend doc: %v", err)
	}

	rec = doJSON(t, h, "GET", "/api/sessions/"+sess.ID, nil, ownerHeaders)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status = %d, body = %s", rec.Code, rec.Body)
	}
	var got model.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body, err)
	}
	if got.ID != sess.ID {
		t.Errorf("body session id = %q, want %q (fetched session must survive a failed expiry write-back)", got.ID, sess.ID)
	}
}

func TestUnknownInviteCode(t *testing.T) {
	h, _ := setupServer(t)
	rec := doJSON(t, h, "GET", "/api/invites/000000", nil, sitterHeaders)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestStatusTransitionRejected(t *testing.T) {
	h, _ := setupServer(t)
	now := time.Now().UTC()

	rec := doJSON(t, h, "POST", "/api/sessions", map[string]any{
		"title":     "next week",
		"startDate": now.Add(7 * 24 * time.Hour).Format(time.RFC3339),
		"endDate":   now.Add(7*24*time.Hour + 2*time.Hour).Format(time.RFC3339),
	}, ownerHeaders)
	var sess model.Session
	json.Unmarshal(rec.Body.Bytes(), &sess)

	rec = doJSON(t, h, "POST", "/api/sessions/"+sess.ID+"/status", map[string]string{
		"status": "inProgress",
	}, ownerHeaders)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}
