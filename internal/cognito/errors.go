package cognito

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthorized: wrong password, revoked refresh token or disabled user.
	ErrNotAuthorized = errors.New("cognito: not authorized")
	// ErrCodeMismatch: the MFA code was wrong.
	ErrCodeMismatch = errors.New("cognito: code mismatch")
	// ErrExpiredCode: the MFA session or code has expired.
	ErrExpiredCode = errors.New("cognito: code expired")
	// ErrUnsupportedChallenge is returned for challenges other than SRP and SMS/TOTP MFA.
	ErrUnsupportedChallenge = errors.New("cognito: unsupported challenge")
)

// APIError is an exception returned by the identity provider.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cognito: %s (%d): %s", e.Type, e.Status, e.Message)
}

// Unwrap maps the provider's exception names onto the package sentinels.
func (e *APIError) Unwrap() error {
	switch e.Type {
	case "NotAuthorizedException", "UserNotFoundException", "PasswordResetRequiredException", "UserNotConfirmedException":
		return ErrNotAuthorized
	case "CodeMismatchException":
		return ErrCodeMismatch
	case "ExpiredCodeException":
		return ErrExpiredCode
	}
	return nil
}
