package invite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"nestkeep/internal/auth"
	"nestkeep/internal/docstore"
	"nestkeep/internal/model"
	"nestkeep/internal/session"
	"nestkeep/internal/store"
)

// Notifier receives best-effort, at-least-once lifecycle notifications.
type Notifier interface {
	Notify(entity, action string, extra map[string]any)
}

// Service is the invite lifecycle manager. Every operation that must keep
// an invite and its session consistent goes through a single atomic write
// plan; nothing here writes the two independently.
type Service struct {
	docs           docstore.Store
	atomic         *docstore.Atomic
	codes          *CodeGenerator
	sessions       *store.SessionStore
	invites        *store.InviteStore
	sitters        *store.SitterStore
	sitterSessions *store.SitterSessionStore
	notifier       Notifier
	logger         *slog.Logger
	ttl            time.Duration
}

func NewService(
	docs docstore.Store,
	sessions *store.SessionStore,
	invites *store.InviteStore,
	sitters *store.SitterStore,
	sitterSessions *store.SitterSessionStore,
	notifier Notifier,
	logger *slog.Logger,
) *Service {
	return &Service{
		docs:           docs,
		atomic:         docstore.NewAtomic(docs),
		codes:          NewCodeGenerator(invites),
		sessions:       sessions,
		invites:        invites,
		sitters:        sitters,
		sitterSessions: sitterSessions,
		notifier:       notifier,
		logger:         logger,
		ttl:            model.InviteTTL,
	}
}

// SetInviteTTL overrides the default invite validity window, an operational
// knob only; zero and negative values are ignored.
func (s *Service) SetInviteTTL(d time.Duration) {
	if d > 0 {
		s.ttl = d
	}
}

func (s *Service) notify(entity, action string, extra map[string]any) {
	if s.notifier != nil {
		s.notifier.Notify(entity, action, extra)
	}
}

func (s *Service) getSession(ctx context.Context, householdID, sessionID string) (*model.Session, error) {
	sess, err := s.sessions.Get(ctx, householdID, sessionID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", session.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// CreateForSitter issues a pending invite for the session and fills the
// session's sitter slot in one transaction. The returned invite carries the
// 6-digit code to share with the sitter out of band. A previously accepted
// sitter keeps their linked-user id when re-invited.
func (s *Service) CreateForSitter(ctx context.Context, sessionID string, sitter model.Sitter) (*model.Invite, error) {
	id, err := auth.RequireHousehold(ctx)
	if err != nil {
		return nil, err
	}

	sess, err := s.getSession(ctx, id.HouseholdID, sessionID)
	if err != nil {
		return nil, err
	}

	hhDoc, err := s.docs.Get(ctx, store.HouseholdPath(id.HouseholdID))
	if err != nil {
		return nil, fmt.Errorf("get household %s: %w", id.HouseholdID, err)
	}
	var household model.Household
	if err := hhDoc.DataTo(&household); err != nil {
		return nil, err
	}

	known, err := s.sitters.FindByEmail(ctx, id.HouseholdID, sitter.Email)
	if err != nil {
		return nil, err
	}
	if known != nil {
		sitter.ID = known.ID
		sitter.UserID = known.UserID
	}
	record, err := s.sitters.Put(ctx, id.HouseholdID, &sitter)
	if err != nil {
		return nil, err
	}

	// A prior invite still on the slot is superseded by this one and gets
	// deleted in the same plan.
	var prior *model.Invite
	if slot := sess.AssignedSitter; slot != nil && slot.InviteID != "" {
		prior, err = s.invites.GetByID(ctx, slot.InviteID)
		if errors.Is(err, docstore.ErrNotFound) {
			prior = nil
		} else if err != nil {
			return nil, err
		}
	}

	code, err := s.codes.Generate(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	inv := &model.Invite{
		ID:            store.InviteID(code),
		Code:          code,
		HouseholdID:   id.HouseholdID,
		HouseholdName: household.Name,
		SessionID:     sess.ID,
		SitterEmail:   sitter.Email,
		Status:        model.InvitePending,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.ttl),
		CreatedBy:     id.UserID,
	}

	plan, updated, err := buildCreatePlan(inv, sess, record, prior)
	if err != nil {
		return nil, err
	}
	if err := s.atomic.Apply(ctx, plan); err != nil {
		return nil, fmt.Errorf("create invite: %w", err)
	}

	s.sessions.Prime(updated)
	s.logger.Info("invite created", "invite_id", inv.ID, "session_id", sess.ID)
	s.notify("invite", "created", map[string]any{"session_id": sess.ID, "invite_id": inv.ID})
	return inv, nil
}

// Validate is the read-only resolution of a code: absent codes, expired
// invites and already-consumed invites each map to their own error. On
// success the referenced session is returned alongside the invite.
func (s *Service) Validate(ctx context.Context, code string) (*model.Invite, *model.Session, error) {
	inv, err := s.invites.GetByCode(ctx, code)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil, ErrInvalidInviteCode
	}
	if err != nil {
		return nil, nil, err
	}

	if inv.IsExpired(time.Now().UTC()) {
		return nil, nil, ErrInviteExpired
	}
	if inv.Status != model.InvitePending {
		return nil, nil, ErrInviteAlreadyUsed
	}

	sess, err := s.getSession(ctx, inv.HouseholdID, inv.SessionID)
	if err != nil {
		return nil, nil, err
	}
	return inv, sess, nil
}

// Accept consumes a pending invite for the authenticated caller. The invite
// status, the session's sitter slot, the caller's sitter-session index
// entry and the household's known-sitter link all commit together or not at
// all. The invite is re-read and re-validated inside the transaction, so of
// two racing acceptances exactly one wins; the loser surfaces
// ErrInviteAlreadyUsed.
func (s *Service) Accept(ctx context.Context, code string) (*model.Session, *model.Invite, error) {
	acceptor, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, nil, err
	}

	inv, sess, err := s.Validate(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	known, err := s.sitters.FindByEmail(ctx, inv.HouseholdID, inv.SitterEmail)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	err = s.docs.RunTransaction(ctx, func(tx docstore.Tx) error {
		doc, err := tx.Get(ctx, store.InvitePath(inv.ID))
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrInvalidInviteCode
		}
		if err != nil {
			return err
		}
		var current model.Invite
		if err := doc.DataTo(&current); err != nil {
			return err
		}
		if current.IsExpired(now) {
			return ErrInviteExpired
		}
		if current.Status != model.InvitePending {
			return ErrInviteAlreadyUsed
		}

		plan, _, _, err := buildAcceptPlan(&current, sess, acceptor, known, now)
		if err != nil {
			return err
		}
		return docstore.ApplyWrites(ctx, tx, plan)
	})
	if errors.Is(err, docstore.ErrExists) {
		// The caller's index entry already exists: a concurrent acceptance
		// by the same user won the race.
		return nil, nil, ErrInviteAlreadyUsed
	}
	if err != nil {
		return nil, nil, err
	}

	// Recompute the committed values from the validated snapshot; the
	// transaction would have failed had the invite moved underneath us.
	_, updated, updInv, err := buildAcceptPlan(inv, sess, acceptor, known, now)
	if err != nil {
		return nil, nil, err
	}

	s.sessions.Prime(updated)
	s.sessions.ForgetSitterView(acceptor.UserID)
	s.logger.Info("invite accepted", "invite_id", inv.ID, "session_id", sess.ID, "user_id", acceptor.UserID)
	s.notify("invite", "accepted", map[string]any{"session_id": sess.ID, "invite_id": inv.ID})
	return updated, updInv, nil
}

// UpdateStatus moves an invite to a new status and mirrors the mapped slot
// status onto the session atomically. Terminal invites are never reopened.
func (s *Service) UpdateStatus(ctx context.Context, inv *model.Invite, to model.InviteStatus, sess *model.Session) (*model.Session, error) {
	if to == model.InvitePending && inv.Status != model.InvitePending {
		return nil, fmt.Errorf("%w: cannot reopen a %s invite", ErrInviteAlreadyUsed, inv.Status)
	}

	plan, updated, err := buildStatusPlan(inv, sess, to)
	if err != nil {
		return nil, err
	}
	if err := s.atomic.Apply(ctx, plan); err != nil {
		return nil, fmt.Errorf("update invite status: %w", err)
	}

	inv.Status = to
	s.sessions.Prime(updated)
	s.notify("invite", "status_changed", map[string]any{"session_id": sess.ID, "invite_id": inv.ID, "status": string(to)})
	return updated, nil
}

// Delete removes the invite document and clears the session's sitter slot
// atomically.
func (s *Service) Delete(ctx context.Context, inv *model.Invite, sess *model.Session) (*model.Session, error) {
	plan, updated := buildDeletePlan(inv, sess)
	if err := s.atomic.Apply(ctx, plan); err != nil {
		return nil, fmt.Errorf("delete invite: %w", err)
	}

	s.sessions.Prime(updated)
	s.notify("invite", "deleted", map[string]any{"session_id": sess.ID, "invite_id": inv.ID})
	return updated, nil
}

// Revoke is the owner-side removal of a session's invite, resolved from the
// session's sitter slot.
func (s *Service) Revoke(ctx context.Context, sessionID string) (*model.Session, error) {
	id, err := auth.RequireHousehold(ctx)
	if err != nil {
		return nil, err
	}

	sess, err := s.getSession(ctx, id.HouseholdID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.AssignedSitter == nil || sess.AssignedSitter.InviteID == "" {
		return nil, fmt.Errorf("%w: session %s has no invite", ErrInvalidInviteCode, sessionID)
	}

	inv, err := s.invites.GetByID(ctx, sess.AssignedSitter.InviteID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrInvalidInviteCode
	}
	if err != nil {
		return nil, err
	}
	return s.Delete(ctx, inv, sess)
}

// CheckAndExpire lazily expires the session's pending invite when its
// expiry has passed. No-op when the session has no pending invite.
func (s *Service) CheckAndExpire(ctx context.Context, sess *model.Session) (*model.Session, error) {
	slot := sess.AssignedSitter
	if slot == nil || slot.InviteID == "" || slot.InviteStatus != model.AssignedSitterInvited {
		return sess, nil
	}

	inv, err := s.invites.GetByID(ctx, slot.InviteID)
	if errors.Is(err, docstore.ErrNotFound) {
		return sess, nil
	}
	if err != nil {
		return nil, err
	}
	if inv.Status != model.InvitePending || !inv.IsExpired(time.Now().UTC()) {
		return sess, nil
	}
	return s.UpdateStatus(ctx, inv, model.InviteExpired, sess)
}

// FetchActive returns the session's invites still in play (pending or
// accepted). Sessions without an invite id on their sitter slot skip the
// query entirely.
func (s *Service) FetchActive(ctx context.Context, sess *model.Session) ([]model.Invite, error) {
	if sess.AssignedSitter == nil || sess.AssignedSitter.InviteID == "" {
		return []model.Invite{}, nil
	}
	return s.invites.ActiveForSession(ctx, sess.ID)
}

// RemoveSitterSession is the sitter-initiated leave: the invite flips to
// rejected, the session's slot to declined, and the caller's sitter-session
// index entry disappears, all atomically.
func (s *Service) RemoveSitterSession(ctx context.Context, sessionID string) error {
	caller, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}

	ss, err := s.sitterSessions.Get(ctx, caller.UserID, sessionID)
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%w: %s", session.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return err
	}

	sess, err := s.getSession(ctx, ss.HouseholdID, sessionID)
	if err != nil {
		return err
	}
	if sess.AssignedSitter == nil || sess.AssignedSitter.InviteID == "" {
		return fmt.Errorf("%w: session %s has no invite", ErrInvalidInviteCode, sessionID)
	}

	inv, err := s.invites.GetByID(ctx, sess.AssignedSitter.InviteID)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrInvalidInviteCode
	}
	if err != nil {
		return err
	}

	plan, updated, err := buildLeavePlan(inv, sess, caller.UserID)
	if err != nil {
		return err
	}
	if err := s.atomic.Apply(ctx, plan); err != nil {
		return fmt.Errorf("remove sitter session: %w", err)
	}

	s.sessions.Prime(updated)
	s.sessions.ForgetSitterView(caller.UserID)
	s.logger.Info("sitter left session", "session_id", sessionID, "user_id", caller.UserID)
	s.notify("invite", "rejected", map[string]any{"session_id": sessionID, "invite_id": inv.ID})
	return nil
}
