package auth

import "context"

type contextKey struct{}

// Identity is the authenticated caller as asserted by the external identity
// provider. HouseholdID is the caller's active household, empty for callers
// acting purely as sitters.
type Identity struct {
	UserID      string
	Email       string
	Name        string
	HouseholdID string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

func UserID(ctx context.Context) string {
	id, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return id.UserID
}

func HouseholdID(ctx context.Context) string {
	id, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return id.HouseholdID
}

// RequireUser returns the identity or ErrUserNotAuthenticated.
func RequireUser(ctx context.Context) (Identity, error) {
	id, ok := FromContext(ctx)
	if !ok || id.UserID == "" {
		return Identity{}, ErrUserNotAuthenticated
	}
	return id, nil
}

// RequireHousehold returns the identity or an error when the caller is not
// signed in or has no active household.
func RequireHousehold(ctx context.Context) (Identity, error) {
	id, err := RequireUser(ctx)
	if err != nil {
		return Identity{}, err
	}
	if id.HouseholdID == "" {
		return Identity{}, ErrNoCurrentHousehold
	}
	return id, nil
}
