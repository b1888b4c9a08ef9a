package models

import "time"

// StaleMargin is how close to ExpiresAt a token set may get before it must be renewed.
const StaleMargin = 5 * time.Minute

// AuthState is the session manager state.
type AuthState string

const (
	StateUnauthenticated AuthState = "UNAUTHENTICATED"
	StateMfaPending      AuthState = "MFA_PENDING"
	StateAuthenticated   AuthState = "AUTHENTICATED"
	StateAuthFailed      AuthState = "AUTH_FAILED"
)

// Credential is the Hive account login. Never serialized.
type Credential struct {
	Username string `json:"-"`
	Password string `json:"-"`
}

// TokenSet is the result of a successful login or refresh.
type TokenSet struct {
	Username     string    `json:"username,omitempty"` // account the tokens were issued to
	IDToken      string    `json:"-"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Empty reports whether the set carries no identity token.
func (t TokenSet) Empty() bool {
	return t.IDToken == ""
}

// IsStale reports whether the token set must be renewed before use at now.
func (t TokenSet) IsStale(now time.Time) bool {
	if t.Empty() {
		return true
	}
	return t.ExpiresAt.Sub(now) <= StaleMargin
}

// MfaChallenge is an outstanding SMS challenge issued by the identity provider.
type MfaChallenge struct {
	Name     string // SMS_MFA
	Session  string // opaque, provider issued
	Username string // provider-side user id the answer must carry
	Required bool
}

// SessionStatus is a read-only snapshot of the session manager.
type SessionStatus struct {
	State            AuthState  `json:"state"`
	Username         string     `json:"username,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	HasRefreshToken  bool       `json:"has_refresh_token"`
	ChallengePending bool       `json:"challenge_pending"`
	LastError        string     `json:"last_error,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
