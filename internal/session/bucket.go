package session

import (
	"sort"

	"nestkeep/internal/model"
)

// Buckets groups sessions for presentation.
type Buckets struct {
	Upcoming   []model.Session `json:"upcoming"`
	InProgress []model.Session `json:"inProgress"`
	Past       []model.Session `json:"past"`
}

// Classify partitions sessions by their stored status: upcoming sorted by
// soonest start, in-progress (including extended) by soonest end, past
// (completed, early access, archived) by most recent end. It never
// re-derives status from time; stale statuses are reconciled upstream via
// InferStatus.
func Classify(sessions []model.Session) Buckets {
	var b Buckets
	for _, s := range sessions {
		switch s.Status {
		case model.SessionUpcoming:
			b.Upcoming = append(b.Upcoming, s)
		case model.SessionInProgress, model.SessionExtended:
			b.InProgress = append(b.InProgress, s)
		case model.SessionCompleted, model.SessionEarlyAccess, model.SessionArchived:
			b.Past = append(b.Past, s)
		}
	}

	sort.Slice(b.Upcoming, func(i, j int) bool {
		return b.Upcoming[i].StartDate.Before(b.Upcoming[j].StartDate)
	})
	sort.Slice(b.InProgress, func(i, j int) bool {
		return b.InProgress[i].EndDate.Before(b.InProgress[j].EndDate)
	})
	sort.Slice(b.Past, func(i, j int) bool {
		return b.Past[i].EndDate.After(b.Past[j].EndDate)
	})
	return b
}
