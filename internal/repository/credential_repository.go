package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/postsphere/internal/models"
)

// CredentialRepository persists account tokens. Token columns are stored as
// given; callers encrypt them first.
type CredentialRepository interface {
	UpsertShortLived(ctx context.Context, tx *sql.Tx, c *models.AccountCredential) error
	UpdateLongLived(ctx context.Context, tx *sql.Tx, c *models.AccountCredential) error
	Get(ctx context.Context, platform, externalID string) (*models.AccountCredential, error)
	ListExpiring(ctx context.Context, before time.Time) ([]*models.AccountCredential, error)
	Remove(ctx context.Context, tx *sql.Tx, platform, externalID string) error
}

type credentialRepository struct {
	db *sql.DB
}

func NewCredentialRepository(db *sql.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

// UpsertShortLived records a freshly exchanged token. An existing long-lived
// token is left in place until its replacement is written.
func (r *credentialRepository) UpsertShortLived(ctx context.Context, tx *sql.Tx, c *models.AccountCredential) error {
	query := `
		INSERT INTO account_credentials (platform, external_id, short_lived_token, refresh_token, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (platform, external_id) DO UPDATE
		SET short_lived_token = EXCLUDED.short_lived_token,
			refresh_token = CASE WHEN EXCLUDED.refresh_token = '' THEN account_credentials.refresh_token ELSE EXCLUDED.refresh_token END,
			updated_at = NOW()
	`
	_, err := conn(r.db, tx).ExecContext(ctx, query, c.Platform, c.ExternalID, c.ShortLivedToken, c.RefreshToken, nullTime(c.ExpiresAt))
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *credentialRepository) UpdateLongLived(ctx context.Context, tx *sql.Tx, c *models.AccountCredential) error {
	query := `
		UPDATE account_credentials
		SET long_lived_token = $3,
			refresh_token = CASE WHEN $4::text = '' THEN refresh_token ELSE $4::text END,
			expires_at = $5,
			updated_at = NOW()
		WHERE platform = $1 AND external_id = $2
	`
	res, err := conn(r.db, tx).ExecContext(ctx, query, c.Platform, c.ExternalID, c.LongLivedToken, c.RefreshToken, nullTime(c.ExpiresAt))
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *credentialRepository) Get(ctx context.Context, platform, externalID string) (*models.AccountCredential, error) {
	query := `
		SELECT platform, external_id, short_lived_token, long_lived_token, refresh_token, expires_at, updated_at
		FROM account_credentials
		WHERE platform = $1 AND external_id = $2
	`
	c, err := scanCredential(r.db.QueryRowContext(ctx, query, platform, externalID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return c, nil
}

// ListExpiring returns credentials holding a long-lived token that expires
// before the given time.
func (r *credentialRepository) ListExpiring(ctx context.Context, before time.Time) ([]*models.AccountCredential, error) {
	query := `
		SELECT platform, external_id, short_lived_token, long_lived_token, refresh_token, expires_at, updated_at
		FROM account_credentials
		WHERE long_lived_token <> '' AND expires_at IS NOT NULL AND expires_at < $1
		ORDER BY expires_at
	`
	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var creds []*models.AccountCredential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		creds = append(creds, c)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return creds, nil
}

func (r *credentialRepository) Remove(ctx context.Context, tx *sql.Tx, platform, externalID string) error {
	query := `DELETE FROM account_credentials WHERE platform = $1 AND external_id = $2`
	if _, err := conn(r.db, tx).ExecContext(ctx, query, platform, externalID); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCredential(s scanner) (*models.AccountCredential, error) {
	var c models.AccountCredential
	var expiresAt sql.NullTime
	err := s.Scan(&c.Platform, &c.ExternalID, &c.ShortLivedToken, &c.LongLivedToken, &c.RefreshToken, &expiresAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		c.ExpiresAt = expiresAt.Time
	}
	return &c, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
