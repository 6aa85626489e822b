package session

import (
	"fmt"
	"time"

	"nestkeep/internal/model"
)

// naturalEndGrace is the window after a session's scheduled end during which
// a still-running session reads as extended rather than finished.
const naturalEndGrace = time.Hour

// ValidateTransition checks a caller-requested status change against the
// state machine. Extended is never settable directly (inference only), and
// archiving goes through its own administrative path.
func ValidateTransition(s *model.Session, to model.SessionStatus, now time.Time) error {
	switch to {
	case model.SessionInProgress:
		if !s.CanBeMarkedActive(now) {
			return fmt.Errorf("%w: session %s cannot be marked active at %s", ErrInvalidStatusTransition, s.ID, now.Format(time.RFC3339))
		}
	case model.SessionCompleted:
		if !s.CanBeMarkedCompleted(now) {
			return fmt.Errorf("%w: session %s cannot be completed before it starts", ErrInvalidStatusTransition, s.ID)
		}
	case model.SessionUpcoming:
		if !now.Before(s.StartDate) {
			return fmt.Errorf("%w: session %s already started", ErrInvalidStatusTransition, s.ID)
		}
	case model.SessionEarlyAccess:
		if s.Status != model.SessionInProgress && s.Status != model.SessionExtended {
			return fmt.Errorf("%w: early access only follows an active session", ErrInvalidStatusTransition)
		}
	case model.SessionExtended:
		return fmt.Errorf("%w: extended is inferred from time, never set", ErrInvalidStatusTransition)
	case model.SessionArchived:
		return fmt.Errorf("%w: archiving is a separate administrative action", ErrInvalidStatusTransition)
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidStatusTransition, to)
	}
	return nil
}

// InferStatus returns the status that should hold for the session at the
// given time. It only ever moves a session forward: an upcoming session
// whose window has opened reads as in-progress, an in-progress session past
// its end reads as extended while the natural-end grace window is open, and
// past the grace window it resolves to early access (when configured) or
// completed. Early-access expiry itself is handled by the sweep, which owns
// the start stamp.
func InferStatus(s *model.Session, now time.Time) model.SessionStatus {
	switch s.Status {
	case model.SessionUpcoming, model.SessionInProgress, model.SessionExtended:
	default:
		return s.Status
	}

	if now.Before(s.StartDate) {
		return s.Status
	}
	if now.Before(s.EndDate) {
		if s.Status == model.SessionUpcoming {
			return model.SessionInProgress
		}
		return s.Status
	}
	if now.Before(s.EndDate.Add(naturalEndGrace)) {
		return model.SessionExtended
	}
	if s.HasEarlyAccess() {
		return model.SessionEarlyAccess
	}
	return model.SessionCompleted
}

// IsInEarlyAccess reports whether the session's early access window is still
// open at the given time.
func IsInEarlyAccess(s *model.Session, now time.Time) bool {
	if s.Status != model.SessionEarlyAccess || s.EarlyAccessStartedAt == nil {
		return false
	}
	return now.Before(s.EarlyAccessStartedAt.Add(s.EarlyAccessDuration.Span()))
}
