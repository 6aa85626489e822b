package invite

import (
	"time"

	"nestkeep/internal/auth"
	"nestkeep/internal/docstore"
	"nestkeep/internal/model"
	"nestkeep/internal/store"
)

// Plan builders. Each is a pure function from current document values to
// the write plan the coordinator applies plus the post-commit entity
// values. Nothing here touches the backend.

// buildCreatePlan writes the new invite document and fills the session's
// sitter slot in the same transaction. A session holds one invite at a
// time, so a prior invite still on the slot is deleted alongside; its code
// stops resolving the moment the replacement exists.
func buildCreatePlan(inv *model.Invite, sess *model.Session, sitter *model.Sitter, prior *model.Invite) ([]docstore.Write, *model.Session, error) {
	updated := *sess
	updated.AssignedSitter = &model.AssignedSitter{
		SitterID:     sitter.ID,
		Name:         sitter.Name,
		Email:        sitter.Email,
		UserID:       sitter.UserID,
		InviteStatus: model.AssignedSitterInvited,
		InviteID:     inv.ID,
	}

	invFields, err := docstore.FieldsOf(inv)
	if err != nil {
		return nil, nil, err
	}
	slotFields, err := docstore.FieldsOf(updated.AssignedSitter)
	if err != nil {
		return nil, nil, err
	}

	plan := []docstore.Write{
		{Op: docstore.OpSet, Path: store.InvitePath(inv.ID), Fields: invFields},
		{Op: docstore.OpUpdate, Path: store.SessionPath(sess.HouseholdID, sess.ID), Fields: docstore.Fields{"assignedSitter": slotFields}},
	}
	if prior != nil {
		plan = append(plan, docstore.Write{Op: docstore.OpDelete, Path: store.InvitePath(prior.ID)})
	}
	return plan, &updated, nil
}

// buildAcceptPlan marks the invite accepted, updates the session's sitter
// slot, creates the acceptor's sitter-session index entry, and back-fills
// the linked-user id onto the household's known-sitter record when one
// matched by email. The index entry uses Create so a duplicate acceptance
// fails the whole transaction.
func buildAcceptPlan(inv *model.Invite, sess *model.Session, acceptor auth.Identity, known *model.Sitter, now time.Time) ([]docstore.Write, *model.Session, *model.Invite, error) {
	updInv := *inv
	updInv.Status = model.InviteAccepted
	updInv.AcceptedAt = &now
	updInv.AcceptedBy = acceptor.UserID

	updated := *sess
	slot := model.AssignedSitter{InviteStatus: model.AssignedSitterAccepted}
	if sess.AssignedSitter != nil {
		slot = *sess.AssignedSitter
		slot.InviteStatus = model.AssignedSitterAccepted
	}
	slot.UserID = acceptor.UserID
	// Keep the originally invited display name unless the acceptor has a
	// real profile name; the email always becomes the authenticated one.
	if acceptor.Name != "" {
		slot.Name = acceptor.Name
	}
	slot.Email = acceptor.Email
	slot.InviteID = inv.ID
	updated.AssignedSitter = &slot

	slotFields, err := docstore.FieldsOf(&slot)
	if err != nil {
		return nil, nil, nil, err
	}
	ssFields, err := docstore.FieldsOf(&model.SitterSession{
		SessionID:     sess.ID,
		HouseholdID:   inv.HouseholdID,
		HouseholdName: inv.HouseholdName,
		AcceptedAt:    now,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	plan := []docstore.Write{
		{Op: docstore.OpUpdate, Path: store.InvitePath(inv.ID), Fields: docstore.Fields{
			"status":     string(model.InviteAccepted),
			"acceptedAt": now.Format(time.RFC3339Nano),
			"acceptedBy": acceptor.UserID,
		}},
		{Op: docstore.OpUpdate, Path: store.SessionPath(sess.HouseholdID, sess.ID), Fields: docstore.Fields{"assignedSitter": slotFields}},
		{Op: docstore.OpCreate, Path: store.SitterSessionPath(acceptor.UserID, sess.ID), Fields: ssFields},
	}
	if known != nil && known.UserID != acceptor.UserID {
		plan = append(plan, docstore.Write{
			Op:     docstore.OpUpdate,
			Path:   store.SitterPath(inv.HouseholdID, known.ID),
			Fields: docstore.Fields{"userId": acceptor.UserID},
		})
	}
	return plan, &updated, &updInv, nil
}

// buildStatusPlan moves the invite to a new status and mirrors the mapped
// sitter-slot status onto the session.
func buildStatusPlan(inv *model.Invite, sess *model.Session, to model.InviteStatus) ([]docstore.Write, *model.Session, error) {
	updated := *sess
	if updated.AssignedSitter != nil {
		slot := *updated.AssignedSitter
		slot.InviteStatus = to.SitterInviteStatus()
		updated.AssignedSitter = &slot
	}

	plan := []docstore.Write{
		{Op: docstore.OpUpdate, Path: store.InvitePath(inv.ID), Fields: docstore.Fields{"status": string(to)}},
	}
	if updated.AssignedSitter != nil {
		slotFields, err := docstore.FieldsOf(updated.AssignedSitter)
		if err != nil {
			return nil, nil, err
		}
		plan = append(plan, docstore.Write{
			Op:     docstore.OpUpdate,
			Path:   store.SessionPath(sess.HouseholdID, sess.ID),
			Fields: docstore.Fields{"assignedSitter": slotFields},
		})
	}
	return plan, &updated, nil
}

// buildDeletePlan removes the invite document and clears the session's
// sitter slot.
func buildDeletePlan(inv *model.Invite, sess *model.Session) ([]docstore.Write, *model.Session) {
	updated := *sess
	updated.AssignedSitter = nil

	plan := []docstore.Write{
		{Op: docstore.OpDelete, Path: store.InvitePath(inv.ID)},
		{Op: docstore.OpUpdate, Path: store.SessionPath(sess.HouseholdID, sess.ID), Fields: docstore.Fields{"assignedSitter": docstore.FieldDelete}},
	}
	return plan, &updated
}

// buildLeavePlan is the sitter-initiated removal: invite rejected, sitter
// slot declined, and the sitter's own index entry deleted.
func buildLeavePlan(inv *model.Invite, sess *model.Session, userID string) ([]docstore.Write, *model.Session, error) {
	plan, updated, err := buildStatusPlan(inv, sess, model.InviteRejected)
	if err != nil {
		return nil, nil, err
	}
	plan = append(plan, docstore.Write{
		Op:   docstore.OpDelete,
		Path: store.SitterSessionPath(userID, sess.ID),
	})
	return plan, updated, nil
}
