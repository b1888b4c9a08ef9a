package service

import (
	"context"
	"strings"

	"hive_schedule/internal/models"
	"hive_schedule/internal/session"
)

type SessionService struct {
	mgr SessionManager
}

func NewSessionService(mgr SessionManager) *SessionService {
	return &SessionService{mgr: mgr}
}

// Login authenticates; a non-nil cred replaces the configured one first.
func (s *SessionService) Login(ctx context.Context, cred *models.Credential) (session.Outcome, error) {
	if cred != nil && strings.TrimSpace(cred.Username) != "" {
		s.mgr.Reconfigure(ctx, *cred)
	}
	return s.mgr.Authenticate(ctx)
}

func (s *SessionService) VerifyMFACode(ctx context.Context, code string) error {
	return s.mgr.VerifyMFA(ctx, strings.TrimSpace(code))
}

// RefreshToken renews regardless of expiry.
func (s *SessionService) RefreshToken(ctx context.Context) error {
	return s.mgr.ForceRefresh(ctx)
}

func (s *SessionService) Status() models.SessionStatus {
	return s.mgr.Status()
}
