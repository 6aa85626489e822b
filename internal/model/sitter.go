package model

import "time"

// Sitter is a household's durable record of a sitter it has worked with.
// UserID links the record to a real account once the sitter has accepted an
// invite; re-inviting a known sitter preserves the link.
type Sitter struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	UserID string `json:"userId,omitempty"`
}

// SitterSession is a per-user index entry letting a sitter enumerate the
// sessions they have joined without scanning every household. Created
// exactly once, atomically with invite acceptance.
type SitterSession struct {
	SessionID     string    `json:"sessionId"`
	HouseholdID   string    `json:"householdId"`
	HouseholdName string    `json:"householdName"`
	AcceptedAt    time.Time `json:"acceptedAt"`
}

// ArchivedSitterSession is a denormalized historical record of a completed
// engagement, written best-effort outside the primary consistency boundary.
type ArchivedSitterSession struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"sessionId"`
	HouseholdID   string    `json:"householdId"`
	HouseholdName string    `json:"householdName"`
	StartDate     time.Time `json:"startDate"`
	EndDate       time.Time `json:"endDate"`
	ArchivedAt    time.Time `json:"archivedAt"`
}

// Household is the owning record for sessions; only the fields the engine
// reads are modeled.
type Household struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
