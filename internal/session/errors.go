package session

import "errors"

var (
	ErrSessionNotFound         = errors.New("session not found")
	ErrInvalidStatusTransition = errors.New("invalid session status transition")
)
