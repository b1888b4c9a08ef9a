package service

import (
	"context"
	"errors"
	"time"

	"hive_schedule/internal/logger"
	"hive_schedule/internal/session"
)

// RefresherService renews the Hive token before it goes stale.
type RefresherService struct {
	mgr SessionManager
	log *logger.Logger
}

func NewRefresherService(mgr SessionManager, log *logger.Logger) *RefresherService {
	return &RefresherService{mgr: mgr, log: log}
}

// Run checks once immediately, then every interval until ctx is canceled.
func (s *RefresherService) Run(ctx context.Context, interval time.Duration) {
	s.tick(ctx)

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *RefresherService) tick(ctx context.Context) {
	err := s.mgr.EnsureFresh(ctx)
	switch {
	case err == nil:
		s.log.Debugw("refresh_check_ok")
	case ctx.Err() != nil:
	case errors.Is(err, session.ErrMfaRequired):
		s.log.Infow("refresh_waiting_for_mfa")
	case errors.Is(err, session.ErrAuthFailed):
		s.log.Warnw("refresh_skipped_auth_failed")
	default:
		s.log.Errorw("refresh_failed", "err", err)
	}
}
