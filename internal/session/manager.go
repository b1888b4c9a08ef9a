package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"hive_schedule/internal/cognito"
	"hive_schedule/internal/logger"
	"hive_schedule/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultLifetime is assumed when the provider does not say otherwise.
const DefaultLifetime = 60 * time.Minute

// Outcome of an authentication attempt.
type Outcome int

const (
	OutcomeAuthenticated Outcome = iota + 1
	OutcomeChallengeRequired
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomeChallengeRequired:
		return "challenge_required"
	default:
		return "unknown"
	}
}

// IdentityProvider is implemented by *cognito.Client.
type IdentityProvider interface {
	Login(ctx context.Context, username, password string) (*cognito.LoginResult, error)
	RespondToMFA(ctx context.Context, ch models.MfaChallenge, code string) (*cognito.Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (*cognito.Tokens, error)
}

// TokenStore persists the token set across restarts.
type TokenStore interface {
	Load(ctx context.Context) (models.TokenSet, error)
	Save(ctx context.Context, t models.TokenSet) error
	Clear(ctx context.Context) error
}

// EventSink receives session transitions for the audit log.
type EventSink interface {
	Append(ctx context.Context, e models.ScheduleEvent) error
}

// Manager owns the Hive login. All provider calls happen under mu,
// so a periodic refresh and a 401-triggered refresh never overlap.
type Manager struct {
	idp      IdentityProvider
	store    TokenStore
	events   EventSink
	log      *logger.Logger
	lifetime time.Duration
	now      func() time.Time

	mu        sync.Mutex
	cred      models.Credential
	state     models.AuthState
	tokens    models.TokenSet
	challenge *models.MfaChallenge
	lastErr   string
	updatedAt time.Time

	// status is republished on every change under mu and read without it.
	status atomic.Pointer[models.SessionStatus]
}

// NewManager builds a manager in UNAUTHENTICATED. store and events may be nil.
func NewManager(idp IdentityProvider, store TokenStore, events EventSink, cred models.Credential, lifetime time.Duration, log *logger.Logger) *Manager {
	if lifetime <= models.StaleMargin {
		lifetime = DefaultLifetime
	}
	if log == nil {
		log = logger.NewNop()
	}
	m := &Manager{
		idp:       idp,
		store:     store,
		events:    events,
		log:       log,
		lifetime:  lifetime,
		now:       time.Now,
		cred:      cred,
		state:     models.StateUnauthenticated,
		updatedAt: time.Now().UTC(),
	}
	m.publishLocked()
	return m
}

// Restore loads persisted tokens. Tokens issued to another account are dropped.
func (m *Manager) Restore(ctx context.Context) {
	if m.store == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.store.Load(ctx)
	if err != nil {
		m.log.Warnw("session_restore_failed", "err", err)
		return
	}
	if t.Empty() {
		return
	}
	if t.Username != m.cred.Username {
		m.log.Infow("session_restore_skipped", "reason", "account changed")
		m.clearStore(ctx)
		return
	}
	m.tokens = t
	m.setState(models.StateAuthenticated, "")
	m.log.Infow("session_restored",
		"username", t.Username,
		"expires_at", t.ExpiresAt,
		"id_token", logger.Preview(t.IDToken),
	)
}

// Authenticate runs a full password login.
func (m *Manager) Authenticate(ctx context.Context) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authenticateLocked(ctx)
}

func (m *Manager) authenticateLocked(ctx context.Context) (Outcome, error) {
	if m.state == models.StateAuthFailed {
		return 0, ErrAuthFailed
	}
	m.log.Infow("session_login_attempt",
		"username", m.cred.Username,
		"password", logger.Redact(m.cred.Password),
	)

	res, err := m.idp.Login(ctx, m.cred.Username, m.cred.Password)
	if err != nil {
		if errors.Is(err, cognito.ErrNotAuthorized) {
			m.fail(ctx, "credentials rejected")
			return 0, fmt.Errorf("%w: %w", ErrInvalidCredentials, ErrAuthFailed)
		}
		m.setError(err.Error())
		m.log.Errorw("session_login_failed", "username", m.cred.Username, "err", err)
		return 0, fmt.Errorf("login: %w", err)
	}

	if res.Challenge != nil {
		ch := *res.Challenge
		m.challenge = &ch
		m.tokens = models.TokenSet{}
		m.setState(models.StateMfaPending, "")
		m.log.Infow("session_mfa_required", "username", m.cred.Username, "challenge", ch.Name)
		m.record(ctx, models.EventMfaRequired, "verification code sent", map[string]any{"challenge": ch.Name})
		return OutcomeChallengeRequired, nil
	}
	if res.Tokens == nil || res.Tokens.IDToken == "" {
		m.setError("empty authentication result")
		return 0, errors.New("login: provider returned no tokens")
	}

	m.accept(ctx, *res.Tokens, "")
	m.log.Infow("session_login_ok", "username", m.cred.Username, "expires_at", m.tokens.ExpiresAt)
	m.record(ctx, models.EventLogin, "logged in", nil)
	return OutcomeAuthenticated, nil
}

// VerifyMFA answers the outstanding SMS challenge.
func (m *Manager) VerifyMFA(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != models.StateMfaPending || m.challenge == nil {
		return ErrNoPendingChallenge
	}
	if !validCode(code) {
		return fmt.Errorf("%w: expected 6 digits", ErrInvalidMfaCode)
	}

	t, err := m.idp.RespondToMFA(ctx, *m.challenge, code)
	if err != nil {
		if errors.Is(err, cognito.ErrCodeMismatch) || errors.Is(err, cognito.ErrExpiredCode) || errors.Is(err, cognito.ErrNotAuthorized) {
			m.setError("verification code rejected")
			m.log.Warnw("session_mfa_rejected", "username", m.cred.Username, "code", logger.Redact(code), "err", err)
			return ErrInvalidMfaCode
		}
		m.setError(err.Error())
		m.log.Errorw("session_mfa_failed", "username", m.cred.Username, "err", err)
		return fmt.Errorf("verify code: %w", err)
	}

	m.accept(ctx, *t, "")
	m.log.Infow("session_mfa_ok", "username", m.cred.Username, "expires_at", m.tokens.ExpiresAt)
	m.record(ctx, models.EventMfaVerified, "verification code accepted", nil)
	return nil
}

// Token returns a fresh identity token.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureFreshLocked(ctx); err != nil {
		if errors.Is(err, ErrNoAuthAvailable) || errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrNoAuthAvailable, err)
	}
	return m.tokens.IDToken, nil
}

// EnsureFresh renews the tokens when they are within StaleMargin of expiry.
func (m *Manager) EnsureFresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureFreshLocked(ctx)
}

func (m *Manager) ensureFreshLocked(ctx context.Context) error {
	switch m.state {
	case models.StateAuthFailed:
		return ErrAuthFailed
	case models.StateMfaPending:
		return fmt.Errorf("%w: %w", ErrNoAuthAvailable, ErrMfaRequired)
	case models.StateUnauthenticated:
		return m.loginOnceLocked(ctx)
	}
	if !m.tokens.IsStale(m.now()) {
		return nil
	}
	return m.renewLocked(ctx)
}

// ForceRefresh renews regardless of expiry, e.g. after the API answered 401.
func (m *Manager) ForceRefresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case models.StateAuthFailed:
		return ErrAuthFailed
	case models.StateMfaPending:
		return fmt.Errorf("%w: %w", ErrNoAuthAvailable, ErrMfaRequired)
	case models.StateUnauthenticated:
		return m.loginOnceLocked(ctx)
	}
	return m.renewLocked(ctx)
}

// RefreshRejected renews after the API answered 401 to rejected. When another
// caller already replaced that token and the current one is not stale, it
// returns without contacting the provider.
func (m *Manager) RefreshRejected(ctx context.Context, rejected string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == models.StateAuthenticated && m.tokens.IDToken != rejected && !m.tokens.IsStale(m.now()) {
		m.log.Debugw("session_refresh_skipped", "reason", "token already renewed", "rejected", logger.Preview(rejected))
		return nil
	}
	switch m.state {
	case models.StateAuthFailed:
		return ErrAuthFailed
	case models.StateMfaPending:
		return fmt.Errorf("%w: %w", ErrNoAuthAvailable, ErrMfaRequired)
	case models.StateUnauthenticated:
		return m.loginOnceLocked(ctx)
	}
	return m.renewLocked(ctx)
}

// renewLocked tries the refresh token first, then exactly one full login.
func (m *Manager) renewLocked(ctx context.Context) error {
	if rt := m.tokens.RefreshToken; rt != "" {
		t, err := m.idp.Refresh(ctx, rt)
		if err == nil {
			m.accept(ctx, *t, rt)
			m.log.Infow("session_token_refreshed",
				"username", m.cred.Username,
				"expires_at", m.tokens.ExpiresAt,
				"id_token", logger.Preview(m.tokens.IDToken),
			)
			m.record(ctx, models.EventTokenRefreshed, "token refreshed", nil)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.log.Warnw("session_refresh_failed", "username", m.cred.Username, "err", err)
	}
	return m.loginOnceLocked(ctx)
}

func (m *Manager) loginOnceLocked(ctx context.Context) error {
	out, err := m.authenticateLocked(ctx)
	if err != nil {
		return err
	}
	if out == OutcomeChallengeRequired {
		return fmt.Errorf("%w: %w", ErrNoAuthAvailable, ErrMfaRequired)
	}
	return nil
}

// Reconfigure replaces the credential and resets the state machine.
func (m *Manager) Reconfigure(ctx context.Context, cred models.Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cred == m.cred && m.state != models.StateAuthFailed {
		return
	}
	if cred.Username != m.cred.Username {
		m.clearStore(ctx)
	}
	m.cred = cred
	m.tokens = models.TokenSet{}
	m.challenge = nil
	m.setState(models.StateUnauthenticated, "")
	m.log.Infow("session_reconfigured", "username", cred.Username)
}

// Status is a snapshot for the API. It does not take mu, so it answers
// while a login or refresh is in flight.
func (m *Manager) Status() models.SessionStatus {
	if st := m.status.Load(); st != nil {
		return *st
	}
	return models.SessionStatus{State: models.StateUnauthenticated}
}

func (m *Manager) publishLocked() {
	st := models.SessionStatus{
		State:            m.state,
		Username:         m.cred.Username,
		HasRefreshToken:  m.tokens.RefreshToken != "",
		ChallengePending: m.challenge != nil,
		LastError:        m.lastErr,
		UpdatedAt:        m.updatedAt,
	}
	if !m.tokens.Empty() {
		at := m.tokens.ExpiresAt
		st.ExpiresAt = &at
	}
	m.status.Store(&st)
}

// accept installs a token set; keepRefresh is used when the provider omits one.
func (m *Manager) accept(ctx context.Context, t cognito.Tokens, keepRefresh string) {
	now := m.now()
	ts := models.TokenSet{
		Username:     m.cred.Username,
		IDToken:      t.IDToken,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    m.expiry(t, now),
	}
	if ts.RefreshToken == "" {
		ts.RefreshToken = keepRefresh
	}
	m.tokens = ts
	m.challenge = nil
	m.setState(models.StateAuthenticated, "")

	if m.store != nil {
		if err := m.store.Save(ctx, ts); err != nil {
			m.log.Warnw("session_persist_failed", "err", err)
		}
	}
}

// expiry is now + lifetime - StaleMargin, capped by the JWT exp claim.
func (m *Manager) expiry(t cognito.Tokens, now time.Time) time.Time {
	lifetime := m.lifetime
	if t.ExpiresIn > 0 && t.ExpiresIn < lifetime {
		lifetime = t.ExpiresIn
	}
	at := now.Add(lifetime - models.StaleMargin).UTC()
	if exp, ok := jwtExpiry(t.IDToken); ok {
		if capped := exp.Add(-models.StaleMargin); capped.Before(at) {
			at = capped.UTC()
		}
	}
	return at
}

// jwtExpiry reads exp without verifying the signature.
func jwtExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (m *Manager) fail(ctx context.Context, reason string) {
	m.tokens = models.TokenSet{}
	m.challenge = nil
	m.setState(models.StateAuthFailed, reason)
	m.clearStore(ctx)
	m.log.Errorw("session_auth_failed", "username", m.cred.Username, "reason", reason)
	m.record(ctx, models.EventAuthError, reason, nil)
}

func (m *Manager) clearStore(ctx context.Context) {
	if m.store == nil {
		return
	}
	if err := m.store.Clear(ctx); err != nil {
		m.log.Warnw("session_clear_failed", "err", err)
	}
}

func (m *Manager) setState(s models.AuthState, lastErr string) {
	m.state = s
	m.lastErr = lastErr
	m.updatedAt = m.now().UTC()
	m.publishLocked()
}

// setError records a failure that leaves the state unchanged.
func (m *Manager) setError(msg string) {
	m.lastErr = msg
	m.updatedAt = m.now().UTC()
	m.publishLocked()
}

func (m *Manager) record(ctx context.Context, typ, desc string, meta map[string]any) {
	if m.events == nil {
		return
	}
	ev := models.ScheduleEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  m.now().UTC(),
		Type:        typ,
		Description: desc,
	}
	if meta != nil {
		ev.Metadata = meta
	}
	if err := m.events.Append(ctx, ev); err != nil {
		m.log.Warnw("session_event_append_failed", "type", typ, "err", err)
	}
}

func validCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
