package auth

import "errors"

var (
	ErrUserNotAuthenticated = errors.New("user is not authenticated")
	ErrNoCurrentHousehold   = errors.New("no active household for this user")
)
