package invite

import "errors"

var (
	ErrInvalidInviteCode = errors.New("invite code does not match any invite")
	ErrInviteExpired     = errors.New("invite has expired")
	ErrInviteAlreadyUsed = errors.New("invite has already been used")
)
