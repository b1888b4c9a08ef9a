package session

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid hive credentials")
	ErrMfaRequired        = errors.New("sms verification code required")
	ErrInvalidMfaCode     = errors.New("invalid verification code")
	ErrNoPendingChallenge = errors.New("no verification challenge pending")
	ErrNoAuthAvailable    = errors.New("no authenticated session available")
	// ErrAuthFailed is sticky until the credential is replaced.
	ErrAuthFailed = errors.New("hive authentication failed; credentials must be reconfigured")
)
