// Package store holds the repositories the engine reads and writes through:
// sessions (with the in-process cache), invites, sitter records and the
// per-user sitter-session index, all over the document store.
package store

// Logical document paths. Invites live top-level so a sitter can resolve a
// code without prior knowledge of the household.

func HouseholdPath(householdID string) string {
	return "households/" + householdID
}

func SessionsCollection(householdID string) string {
	return "households/" + householdID + "/sessions"
}

func SessionPath(householdID, sessionID string) string {
	return SessionsCollection(householdID) + "/" + sessionID
}

func EventsCollection(householdID, sessionID string) string {
	return SessionPath(householdID, sessionID) + "/events"
}

func EventPath(householdID, sessionID, eventID string) string {
	return EventsCollection(householdID, sessionID) + "/" + eventID
}

// InviteID derives the document id for a code, e.g. "invite-042817".
func InviteID(code string) string {
	return "invite-" + code
}

func InvitePath(inviteID string) string {
	return "invites/" + inviteID
}

func SittersCollection(householdID string) string {
	return "households/" + householdID + "/sitters"
}

func SitterPath(householdID, sitterID string) string {
	return SittersCollection(householdID) + "/" + sitterID
}

func SitterSessionsCollection(userID string) string {
	return "users/" + userID + "/sitterSessions"
}

func SitterSessionPath(userID, sessionID string) string {
	return SitterSessionsCollection(userID) + "/" + sessionID
}

func ArchivedSitterSessionsCollection(userID string) string {
	return "users/" + userID + "/archivedSitterSessions"
}

func ArchivedSitterSessionPath(userID, id string) string {
	return ArchivedSitterSessionsCollection(userID) + "/" + id
}
