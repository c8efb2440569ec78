package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/postsphere/internal/models"
)

type SocialAccountRepository interface {
	Upsert(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error)
	Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.SocialAccount, error)
	ListByOrganization(ctx context.Context, orgID int64, offset, limit int) ([]*models.SocialAccount, error)
	CountByCredential(ctx context.Context, platform, accountID string) (int, error)
	SetStatus(ctx context.Context, platform, accountID, status string) error
	Remove(ctx context.Context, tx *sql.Tx, id int64) error
}

type socialAccountRepository struct {
	db *sql.DB
}

func NewSocialAccountRepository(db *sql.DB) SocialAccountRepository {
	return &socialAccountRepository{db: db}
}

const socialAccountColumns = `id, organization_id, user_id, platform, account_id, account_name,
	account_username, profile_picture_url, account_status, created_at, updated_at`

// Upsert links an external account to an organization, refreshing the
// profile fields when the link already exists.
func (r *socialAccountRepository) Upsert(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	query := `
		INSERT INTO social_accounts (
			organization_id,
			user_id,
			platform,
			account_id,
			account_name,
			account_username,
			profile_picture_url,
			account_status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'active')
		ON CONFLICT (organization_id, platform, account_id) DO UPDATE
		SET account_name = EXCLUDED.account_name,
			account_username = EXCLUDED.account_username,
			profile_picture_url = EXCLUDED.profile_picture_url,
			account_status = 'active',
			updated_at = NOW()
		RETURNING id
	`
	var id int64
	err := conn(r.db, tx).QueryRowContext(ctx, query,
		sa.OrganizationID,
		sa.UserID,
		sa.Platform,
		sa.AccountID,
		sa.AccountName,
		sa.AccountUsername,
		sa.ProfilePicture,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

// Create inserts a new link and fails with ErrConflict if it already exists.
func (r *socialAccountRepository) Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	query := `
		INSERT INTO social_accounts (organization_id, user_id, platform, account_id, account_name, account_username, profile_picture_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id int64
	err := conn(r.db, tx).QueryRowContext(ctx, query,
		sa.OrganizationID, sa.UserID, sa.Platform, sa.AccountID, sa.AccountName, sa.AccountUsername, sa.ProfilePicture,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, translate(err)
	}
	return id, nil
}

func (r *socialAccountRepository) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + ` FROM social_accounts WHERE id = $1`

	sa, err := scanSocialAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return sa, nil
}

func (r *socialAccountRepository) ListByOrganization(ctx context.Context, orgID int64, offset, limit int) ([]*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + `
		FROM social_accounts
		WHERE organization_id = $1
		ORDER BY id
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, orgID, offset, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	accounts := []*models.SocialAccount{}
	for rows.Next() {
		sa, err := scanSocialAccount(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, sa)
	}
	return accounts, rows.Err()
}

// CountByCredential counts the organizations linked to one external account.
// The credential is shared between them.
func (r *socialAccountRepository) CountByCredential(ctx context.Context, platform, accountID string) (int, error) {
	query := `SELECT COUNT(*) FROM social_accounts WHERE platform = $1 AND account_id = $2`

	var n int
	if err := r.db.QueryRowContext(ctx, query, platform, accountID).Scan(&n); err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return n, nil
}

func (r *socialAccountRepository) SetStatus(ctx context.Context, platform, accountID, status string) error {
	query := `UPDATE social_accounts SET account_status = $3, updated_at = NOW() WHERE platform = $1 AND account_id = $2`
	if _, err := r.db.ExecContext(ctx, query, platform, accountID, status); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *socialAccountRepository) Remove(ctx context.Context, tx *sql.Tx, id int64) error {
	query := `DELETE FROM social_accounts WHERE id = $1`
	if _, err := conn(r.db, tx).ExecContext(ctx, query, id); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func scanSocialAccount(s scanner) (*models.SocialAccount, error) {
	var sa models.SocialAccount
	err := s.Scan(&sa.ID, &sa.OrganizationID, &sa.UserID, &sa.Platform, &sa.AccountID, &sa.AccountName,
		&sa.AccountUsername, &sa.ProfilePicture, &sa.AccountStatus, &sa.CreatedAt, &sa.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sa, nil
}
