package model

import "time"

type InviteStatus string

const (
	InvitePending   InviteStatus = "pending"
	InviteAccepted  InviteStatus = "accepted"
	InviteExpired   InviteStatus = "expired"
	InviteCancelled InviteStatus = "cancelled"
	InviteRejected  InviteStatus = "rejected"
)

// InviteTTL is the fixed validity window of a newly created invite.
const InviteTTL = 48 * time.Hour

// Invite is a time-boxed authorization for one sitter to join one session.
// The document id is always "invite-" + Code, stored top-level so a sitter
// can resolve it without knowing the household.
type Invite struct {
	ID            string       `json:"id"`
	Code          string       `json:"code"`
	HouseholdID   string       `json:"householdId"`
	HouseholdName string       `json:"householdName"`
	SessionID     string       `json:"sessionId"`
	SitterEmail   string       `json:"sitterEmail"`
	Status        InviteStatus `json:"status"`
	CreatedAt     time.Time    `json:"createdAt"`
	ExpiresAt     time.Time    `json:"expiresAt"`
	CreatedBy     string       `json:"createdBy"`
	AcceptedAt    *time.Time   `json:"acceptedAt,omitempty"`
	AcceptedBy    string       `json:"acceptedBy,omitempty"`
}

// IsExpired reports whether the invite's expiry timestamp has passed.
// Expiry is evaluated lazily on read; there is no background job.
func (i *Invite) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// SitterInviteStatus maps an invite status to the corresponding status of
// the session's assigned-sitter slot.
func (s InviteStatus) SitterInviteStatus() AssignedSitterStatus {
	switch s {
	case InvitePending:
		return AssignedSitterInvited
	case InviteAccepted:
		return AssignedSitterAccepted
	case InviteRejected:
		return AssignedSitterDeclined
	case InviteExpired, InviteCancelled:
		return AssignedSitterCancelled
	default:
		return AssignedSitterNone
	}
}
