package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maheshrc27/postsphere/internal/models"
	"github.com/maheshrc27/postsphere/internal/platforms"
	"github.com/maheshrc27/postsphere/internal/repository"
)

// SQL is a Store over the account_credentials table. Tokens are encrypted
// before they reach the repository.
type SQL struct {
	repo   repository.CredentialRepository
	cipher *Cipher
}

func NewSQL(repo repository.CredentialRepository, cipher *Cipher) *SQL {
	return &SQL{repo: repo, cipher: cipher}
}

func (s *SQL) PutShortLived(ctx context.Context, platform, externalID string, token *platforms.ShortLivedToken) error {
	access, err := s.cipher.Encrypt(token.AccessToken)
	if err != nil {
		return err
	}
	refresh, err := s.cipher.Encrypt(token.RefreshToken)
	if err != nil {
		return err
	}
	return s.repo.UpsertShortLived(ctx, nil, &models.AccountCredential{
		Platform:        platform,
		ExternalID:      externalID,
		ShortLivedToken: access,
		RefreshToken:    refresh,
		ExpiresAt:       token.ExpiresAt,
	})
}

func (s *SQL) PutLongLived(ctx context.Context, platform, externalID string, token *platforms.LongLivedToken) error {
	access, err := s.cipher.Encrypt(token.AccessToken)
	if err != nil {
		return err
	}
	refresh, err := s.cipher.Encrypt(token.RefreshToken)
	if err != nil {
		return err
	}
	err = s.repo.UpdateLongLived(ctx, nil, &models.AccountCredential{
		Platform:       platform,
		ExternalID:     externalID,
		LongLivedToken: access,
		RefreshToken:   refresh,
		ExpiresAt:      token.ExpiresAt,
	})
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *SQL) Get(ctx context.Context, platform, externalID string) (*models.AccountCredential, error) {
	cred, err := s.repo.Get(ctx, platform, externalID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrNotFound
	}
	return s.open(cred)
}

func (s *SQL) Delete(ctx context.Context, platform, externalID string) error {
	return s.repo.Remove(ctx, nil, platform, externalID)
}

func (s *SQL) Expiring(ctx context.Context, before time.Time) ([]*models.AccountCredential, error) {
	sealed, err := s.repo.ListExpiring(ctx, before)
	if err != nil {
		return nil, err
	}
	out := make([]*models.AccountCredential, 0, len(sealed))
	for _, cred := range sealed {
		c, err := s.open(cred)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *SQL) open(cred *models.AccountCredential) (*models.AccountCredential, error) {
	var err error
	out := *cred
	if out.ShortLivedToken, err = s.cipher.Decrypt(cred.ShortLivedToken); err != nil {
		return nil, fmt.Errorf("decrypt %s/%s: %w", cred.Platform, cred.ExternalID, err)
	}
	if out.LongLivedToken, err = s.cipher.Decrypt(cred.LongLivedToken); err != nil {
		return nil, fmt.Errorf("decrypt %s/%s: %w", cred.Platform, cred.ExternalID, err)
	}
	if out.RefreshToken, err = s.cipher.Decrypt(cred.RefreshToken); err != nil {
		return nil, fmt.Errorf("decrypt %s/%s: %w", cred.Platform, cred.ExternalID, err)
	}
	return &out, nil
}
