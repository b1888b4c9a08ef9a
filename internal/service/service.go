package service

import (
	"context"
	"time"

	"hive_schedule/internal/logger"
	"hive_schedule/internal/models"
	"hive_schedule/internal/repository"
	"hive_schedule/internal/session"
)

type Authorization interface {
	// SignUp creates an operator. invitedBy is the caller's id, 0 when anonymous.
	SignUp(ctx context.Context, username, password string, invitedBy int) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Schedule reads and writes heating schedules.
type Schedule interface {
	SetDaySchedule(ctx context.Context, p DayParams) error
	SetHeatingSchedule(ctx context.Context, nodeID string, week models.WeekSchedule) error
	GetSchedule(ctx context.Context, nodeID string) (models.WeekSchedule, error)
	Profiles() map[string]models.DaySchedule
}

// Session exposes the caller-facing login actions.
type Session interface {
	Login(ctx context.Context, cred *models.Credential) (session.Outcome, error)
	VerifyMFACode(ctx context.Context, code string) error
	RefreshToken(ctx context.Context) error
	Status() models.SessionStatus
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.ScheduleEvent, error)
}

// Refresher keeps the session warm in the background.
// Stop via context cancellation in main() for graceful shutdown.
type Refresher interface {
	Run(ctx context.Context, interval time.Duration)
}

// ScheduleClient is implemented by *hive.Client.
type ScheduleClient interface {
	GetSchedule(ctx context.Context, nodeID string) (models.WeekSchedule, error)
	SetDay(ctx context.Context, nodeID string, day models.Day, entries models.DaySchedule) error
	SetFullWeek(ctx context.Context, nodeID string, week models.WeekSchedule) error
}

// SessionManager is implemented by *session.Manager.
type SessionManager interface {
	Authenticate(ctx context.Context) (session.Outcome, error)
	VerifyMFA(ctx context.Context, code string) error
	EnsureFresh(ctx context.Context) error
	ForceRefresh(ctx context.Context) error
	Reconfigure(ctx context.Context, cred models.Credential)
	Status() models.SessionStatus
}

// Deps are the collaborators built in main.
type Deps struct {
	Hive       ScheduleClient
	Session    SessionManager
	Profiles   map[string]models.DaySchedule
	SigningKey string
	TokenTTL   time.Duration
	Log        *logger.Logger
}

type Service struct {
	Schedule
	Session
	EventLog
	Refresher
	Authorization
}

func NewService(repos *repository.Repository, deps Deps) *Service {
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		Schedule:      NewScheduleService(deps.Hive, repos.EventRepo, deps.Profiles, log.Named("schedule")),
		Session:       NewSessionService(deps.Session),
		EventLog:      NewEventLogService(repos.EventRepo),
		Refresher:     NewRefresherService(deps.Session, log.Named("refresher")),
		Authorization: NewAuthService(repos.Auth, deps.SigningKey, deps.TokenTTL),
	}
}
