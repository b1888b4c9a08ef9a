package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"hive_schedule/internal/models"
)

type TokenSQLite struct {
	db *sql.DB
}

func NewTokenSQLite(db *sql.DB) *TokenSQLite {
	return &TokenSQLite{db: db}
}

var _ TokenRepo = (*TokenSQLite)(nil)

const (
	sessionRowID = 1

	upsertTokensSQL = `
		INSERT INTO session_tokens (id, username, id_token, access_token, refresh_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username=excluded.username,
			id_token=excluded.id_token,
			access_token=excluded.access_token,
			refresh_token=excluded.refresh_token,
			expires_at=excluded.expires_at,
			updated_at=excluded.updated_at
	`

	selectTokensSQL = `
		SELECT username, id_token, access_token, refresh_token, expires_at
		FROM session_tokens WHERE id=?
	`

	deleteTokensSQL = `DELETE FROM session_tokens WHERE id=?`
)

// Save replaces the single session row (id always 1).
func (r *TokenSQLite) Save(ctx context.Context, t models.TokenSet) error {
	_, err := r.db.ExecContext(ctx, upsertTokensSQL,
		sessionRowID,
		t.Username,
		t.IDToken,
		t.AccessToken,
		t.RefreshToken,
		t.ExpiresAt.UTC(),
		time.Now().UTC(),
	)
	return err
}

// Load returns the persisted token set, or an empty one when none is stored.
func (r *TokenSQLite) Load(ctx context.Context) (models.TokenSet, error) {
	var t models.TokenSet
	var access, refresh sql.NullString
	err := r.db.QueryRowContext(ctx, selectTokensSQL, sessionRowID).Scan(
		&t.Username,
		&t.IDToken,
		&access,
		&refresh,
		&t.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.TokenSet{}, nil
		}
		return models.TokenSet{}, err
	}
	t.AccessToken = access.String
	t.RefreshToken = refresh.String
	t.ExpiresAt = t.ExpiresAt.UTC()
	return t, nil
}

// Clear forgets the persisted session.
func (r *TokenSQLite) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, deleteTokensSQL, sessionRowID)
	return err
}
