package model

import "time"

type SessionStatus string

const (
	SessionUpcoming    SessionStatus = "upcoming"
	SessionInProgress  SessionStatus = "inProgress"
	SessionExtended    SessionStatus = "extended"
	SessionEarlyAccess SessionStatus = "earlyAccess"
	SessionCompleted   SessionStatus = "completed"
	SessionArchived    SessionStatus = "archived"
)

// EarlyAccessDuration is the configured grace span a sitter keeps read
// access for after a session's natural end.
type EarlyAccessDuration string

const (
	EarlyAccessNone      EarlyAccessDuration = "none"
	EarlyAccessHalfDay   EarlyAccessDuration = "halfDay"
	EarlyAccessOneDay    EarlyAccessDuration = "oneDay"
	EarlyAccessThreeDays EarlyAccessDuration = "threeDays"
	EarlyAccessOneWeek   EarlyAccessDuration = "oneWeek"
)

// Span returns the wall-clock length of the early access window.
func (d EarlyAccessDuration) Span() time.Duration {
	switch d {
	case EarlyAccessHalfDay:
		return 12 * time.Hour
	case EarlyAccessOneDay:
		return 24 * time.Hour
	case EarlyAccessThreeDays:
		return 72 * time.Hour
	case EarlyAccessOneWeek:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

type AssignedSitterStatus string

const (
	AssignedSitterNone      AssignedSitterStatus = "none"
	AssignedSitterInvited   AssignedSitterStatus = "invited"
	AssignedSitterAccepted  AssignedSitterStatus = "accepted"
	AssignedSitterDeclined  AssignedSitterStatus = "declined"
	AssignedSitterCancelled AssignedSitterStatus = "cancelled"
)

// AssignedSitter is the single sitter slot on a session. Its InviteStatus
// always mirrors the status of the invite document referenced by InviteID;
// the two are only ever written together, atomically.
type AssignedSitter struct {
	SitterID     string               `json:"sitterId"`
	Name         string               `json:"name"`
	Email        string               `json:"email"`
	UserID       string               `json:"userId,omitempty"`
	InviteStatus AssignedSitterStatus `json:"inviteStatus"`
	InviteID     string               `json:"inviteId,omitempty"`
}

// Session is a scheduled care engagement belonging to one household.
type Session struct {
	ID                   string              `json:"id"`
	HouseholdID          string              `json:"householdId"`
	Title                string              `json:"title"`
	StartDate            time.Time           `json:"startDate"`
	EndDate              time.Time           `json:"endDate"`
	MultiDay             bool                `json:"multiDay"`
	Status               SessionStatus       `json:"status"`
	AssignedSitter       *AssignedSitter     `json:"assignedSitter,omitempty"`
	EarlyAccessDuration  EarlyAccessDuration `json:"earlyAccessDuration"`
	EarlyAccessStartedAt *time.Time          `json:"earlyAccessStartedAt,omitempty"`
	CreatedAt            time.Time           `json:"createdAt"`
}

// markActiveLead is how far before the scheduled start a session may be
// marked in-progress (sitter arriving early).
const markActiveLead = time.Hour

// CanBeMarkedActive reports whether the session may be moved to in-progress
// at the given time: from one hour before start until the scheduled end.
func (s *Session) CanBeMarkedActive(now time.Time) bool {
	return !now.Before(s.StartDate.Add(-markActiveLead)) && now.Before(s.EndDate)
}

// CanBeMarkedCompleted reports whether the session may be completed at the
// given time. A session that has not started cannot be completed.
func (s *Session) CanBeMarkedCompleted(now time.Time) bool {
	return now.After(s.StartDate)
}

// HasEarlyAccess reports whether a non-trivial early access window is
// configured.
func (s *Session) HasEarlyAccess() bool {
	return s.EarlyAccessDuration.Span() > 0
}

// SessionEvent is one scheduled sub-event of a session.
type SessionEvent struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	PlaceID   string    `json:"placeId,omitempty"`
	ColorTag  string    `json:"colorTag,omitempty"`
}
