package player

import "errors"

var (
	ErrAuthTimeout      = errors.New("authentication timeout")
	ErrAuthInvalid      = errors.New("invalid authentication message")
	ErrAuthFailed       = errors.New("authentication failed")
	ErrClosedBeforeAuth = errors.New("connection closed before authentication")
)
