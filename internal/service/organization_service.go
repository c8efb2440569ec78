package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/maheshrc27/postsphere/internal/models"
	"github.com/maheshrc27/postsphere/internal/repository"
	"github.com/maheshrc27/postsphere/internal/transfer"
)

type OrganizationService interface {
	Create(ctx context.Context, userID int64, oc *transfer.OrganizationCreation) (*models.Organization, error)
	List(ctx context.Context, userID int64, page transfer.Page) ([]*models.Organization, error)
	Get(ctx context.Context, userID, orgID int64) (*models.Organization, error)
	// AddMember is restricted to the organization owner.
	AddMember(ctx context.Context, userID, orgID, memberID int64) error
	// Authorize fails with ErrForbidden unless userID is a member of orgID.
	Authorize(ctx context.Context, userID, orgID int64) error
}

type organizationService struct {
	withTx repository.TxFunc
	o      repository.OrganizationRepository
	u      repository.UserRepository
}

func NewOrganizationService(withTx repository.TxFunc, o repository.OrganizationRepository, u repository.UserRepository) OrganizationService {
	return &organizationService{withTx: withTx, o: o, u: u}
}

func (s *organizationService) Create(ctx context.Context, userID int64, oc *transfer.OrganizationCreation) (*models.Organization, error) {
	name := strings.TrimSpace(oc.Name)
	if name == "" {
		return nil, invalidf("organization name is required")
	}

	org := &models.Organization{
		Name:        name,
		Description: oc.Description,
		OwnerID:     userID,
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		id, err := s.o.Create(ctx, tx, org)
		if err != nil {
			return err
		}
		org.ID = id
		return s.o.AddMember(ctx, tx, id, userID)
	})
	if err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}
	return org, nil
}

func (s *organizationService) List(ctx context.Context, userID int64, page transfer.Page) ([]*models.Organization, error) {
	offset, limit := pageBounds(page)
	return s.o.ListByMember(ctx, userID, offset, limit)
}

func (s *organizationService) Get(ctx context.Context, userID, orgID int64) (*models.Organization, error) {
	org, err := s.o.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, notFound("organization", orgID)
	}
	if err := s.Authorize(ctx, userID, orgID); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *organizationService) AddMember(ctx context.Context, userID, orgID, memberID int64) error {
	org, err := s.o.GetByID(ctx, orgID)
	if err != nil {
		return err
	}
	if org == nil {
		return notFound("organization", orgID)
	}
	if org.OwnerID != userID {
		return fmt.Errorf("%w: only the owner can add members", ErrForbidden)
	}

	_, exists, err := s.u.GetByID(ctx, memberID)
	if err != nil {
		return err
	}
	if !exists {
		return notFound("user", memberID)
	}
	return s.o.AddMember(ctx, nil, orgID, memberID)
}

func (s *organizationService) Authorize(ctx context.Context, userID, orgID int64) error {
	ok, err := s.o.IsMember(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: not a member of organization %d", ErrForbidden, orgID)
	}
	return nil
}
