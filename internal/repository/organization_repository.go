package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/postsphere/internal/models"
)

type OrganizationRepository interface {
	Create(ctx context.Context, tx *sql.Tx, org *models.Organization) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Organization, error)
	ListByMember(ctx context.Context, userID int64, offset, limit int) ([]*models.Organization, error)
	AddMember(ctx context.Context, tx *sql.Tx, orgID, userID int64) error
	IsMember(ctx context.Context, orgID, userID int64) (bool, error)
}

type organizationRepository struct {
	db *sql.DB
}

func NewOrganizationRepository(db *sql.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) Create(ctx context.Context, tx *sql.Tx, org *models.Organization) (int64, error) {
	query := `
		INSERT INTO organizations (name, description, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	var id int64
	err := conn(r.db, tx).QueryRowContext(ctx, query, org.Name, org.Description, org.OwnerID).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, translate(err)
	}
	return id, nil
}

func (r *organizationRepository) GetByID(ctx context.Context, id int64) (*models.Organization, error) {
	query := `SELECT id, name, description, owner_id, created_at, updated_at FROM organizations WHERE id = $1`

	var org models.Organization
	err := r.db.QueryRowContext(ctx, query, id).Scan(&org.ID, &org.Name, &org.Description, &org.OwnerID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepository) ListByMember(ctx context.Context, userID int64, offset, limit int) ([]*models.Organization, error) {
	query := `
		SELECT o.id, o.name, o.description, o.owner_id, o.created_at, o.updated_at
		FROM organizations o
		JOIN organization_members m ON m.organization_id = o.id
		WHERE m.user_id = $1
		ORDER BY o.id
		OFFSET $2 LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, userID, offset, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	orgs := []*models.Organization{}
	for rows.Next() {
		var org models.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.Description, &org.OwnerID, &org.CreatedAt, &org.UpdatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		orgs = append(orgs, &org)
	}
	return orgs, rows.Err()
}

func (r *organizationRepository) AddMember(ctx context.Context, tx *sql.Tx, orgID, userID int64) error {
	query := `INSERT INTO organization_members (organization_id, user_id) VALUES ($1, $2)`
	if _, err := conn(r.db, tx).ExecContext(ctx, query, orgID, userID); err != nil {
		slog.Info(err.Error())
		return translate(err)
	}
	return nil
}

func (r *organizationRepository) IsMember(ctx context.Context, orgID, userID int64) (bool, error) {
	query := `SELECT 1 FROM organization_members WHERE organization_id = $1 AND user_id = $2`

	var result int
	err := r.db.QueryRowContext(ctx, query, orgID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}
	return true, nil
}
