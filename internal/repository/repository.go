package repository

import (
	"context"
	"database/sql"
	"time"

	"hive_schedule/internal/models"
)

// Authorization stores local API operators.
type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Count(ctx context.Context) (int, error)
}

// TokenRepo persists the Hive session across restarts.
type TokenRepo interface {
	Save(ctx context.Context, t models.TokenSet) error
	Load(ctx context.Context) (models.TokenSet, error)
	Clear(ctx context.Context) error
}

type EventRepo interface {
	Append(ctx context.Context, e models.ScheduleEvent) error
	List(ctx context.Context, from, to time.Time, typ, nodeID string) ([]models.ScheduleEvent, error)
}

type Repository struct {
	TokenRepo TokenRepo
	EventRepo EventRepo
	Auth      Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		TokenRepo: NewTokenSQLite(db),
		EventRepo: NewEventSQLite(db),
		Auth:      NewUserRepository(db),
	}
}
