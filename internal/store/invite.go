package store

import (
	"context"
	"errors"
	"fmt"

	"nestkeep/internal/docstore"
	"nestkeep/internal/model"
)

// InviteStore reads and writes invite documents. Lifecycle mutations that
// must stay consistent with a session go through the atomic coordinator,
// not through this store.
type InviteStore struct {
	docs docstore.Store
}

func NewInviteStore(docs docstore.Store) *InviteStore {
	return &InviteStore{docs: docs}
}

// GetByCode returns the invite for a 6-digit code, or docstore.ErrNotFound.
func (st *InviteStore) GetByCode(ctx context.Context, code string) (*model.Invite, error) {
	doc, err := st.docs.Get(ctx, InvitePath(InviteID(code)))
	if err != nil {
		return nil, fmt.Errorf("get invite %s: %w", InviteID(code), err)
	}
	var inv model.Invite
	if err := doc.DataTo(&inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// CodeExists reports whether a code already resolves to an invite document.
func (st *InviteStore) CodeExists(ctx context.Context, code string) (bool, error) {
	_, err := st.docs.Get(ctx, InvitePath(InviteID(code)))
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check invite code: %w", err)
	}
	return true, nil
}

// ActiveForSession returns the session's invites with status pending or
// accepted.
func (st *InviteStore) ActiveForSession(ctx context.Context, sessionID string) ([]model.Invite, error) {
	docs, err := st.docs.RunQuery(ctx, docstore.Query{
		Collection: "invites",
		Filters: []docstore.Filter{
			{Field: "sessionId", Op: "==", Value: sessionID},
			{Field: "status", Op: "in", Value: []any{string(model.InvitePending), string(model.InviteAccepted)}},
		},
		OrderBy: &docstore.OrderBy{Field: "createdAt", Desc: true},
	})
	if err != nil {
		return nil, fmt.Errorf("query active invites: %w", err)
	}

	invites := make([]model.Invite, 0, len(docs))
	for i := range docs {
		var inv model.Invite
		if err := docs[i].DataTo(&inv); err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	return invites, nil
}

// GetByID returns the invite for a full invite document id.
func (st *InviteStore) GetByID(ctx context.Context, inviteID string) (*model.Invite, error) {
	doc, err := st.docs.Get(ctx, InvitePath(inviteID))
	if err != nil {
		return nil, fmt.Errorf("get invite %s: %w", inviteID, err)
	}
	var inv model.Invite
	if err := doc.DataTo(&inv); err != nil {
		return nil, err
	}
	return &inv, nil
}
