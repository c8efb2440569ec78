package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/postsphere/internal/models"
	"github.com/maheshrc27/postsphere/internal/platforms"
	"github.com/maheshrc27/postsphere/internal/repository"
	"github.com/maheshrc27/postsphere/internal/tokenstore"
	"github.com/maheshrc27/postsphere/internal/transfer"
	"github.com/maheshrc27/postsphere/pkg/utils"
)

const stateTTL = 15 * time.Minute

// ProviderRegistry resolves the provider serving a platform.
type ProviderRegistry interface {
	Get(p platforms.Platform) (platforms.Provider, error)
	Lookup(name string) (platforms.Provider, error)
	Platforms() []platforms.Platform
}

// CallbackParams are the query parameters a platform appends to the
// redirect URI after the user answered the consent screen.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorReason      string
	ErrorDescription string
}

type PlatformService interface {
	Platforms() []platforms.Platform
	AuthURL(ctx context.Context, userID, orgID int64, platform string) (string, error)
	Callback(ctx context.Context, platform string, params CallbackParams) (*models.SocialAccount, error)
	CreateManual(ctx context.Context, userID int64, sac *transfer.SocialAccountCreation) (*models.SocialAccount, error)
	List(ctx context.Context, userID, orgID int64, page transfer.Page) ([]*models.SocialAccount, error)
	Get(ctx context.Context, userID, accountID int64) (*models.SocialAccount, error)
	Delete(ctx context.Context, userID, accountID int64) error
}

type platformService struct {
	secretKey string
	providers ProviderRegistry
	store     tokenstore.Store
	sa        repository.SocialAccountRepository
	orgs      OrganizationService
}

func NewPlatformService(
	secretKey string,
	providers ProviderRegistry,
	store tokenstore.Store,
	sa repository.SocialAccountRepository,
	orgs OrganizationService) PlatformService {
	return &platformService{
		secretKey: secretKey,
		providers: providers,
		store:     store,
		sa:        sa,
		orgs:      orgs,
	}
}

func (s *platformService) Platforms() []platforms.Platform {
	return s.providers.Platforms()
}

func (s *platformService) AuthURL(ctx context.Context, userID, orgID int64, platform string) (string, error) {
	provider, err := s.providers.Lookup(platform)
	if err != nil {
		return "", err
	}
	if err := s.orgs.Authorize(ctx, userID, orgID); err != nil {
		return "", err
	}

	state, err := utils.GenerateState(s.secretKey, userID, orgID, stateTTL)
	if err != nil {
		return "", err
	}
	return provider.AuthURL(state), nil
}

// Callback completes an authorization: code exchange, long-lived token,
// profile lookup, then the social account link. The platform's error and a
// missing code are reported before any network call.
func (s *platformService) Callback(ctx context.Context, platform string, params CallbackParams) (*models.SocialAccount, error) {
	p, err := platforms.Parse(platform)
	if err != nil {
		return nil, err
	}
	if params.Error != "" {
		return nil, &platforms.OAuthError{
			Platform:    p,
			Code:        params.Error,
			Reason:      params.ErrorReason,
			Description: params.ErrorDescription,
		}
	}
	if params.Code == "" {
		return nil, platforms.ErrMissingCode
	}

	provider, err := s.providers.Get(p)
	if err != nil {
		return nil, err
	}
	claims, err := utils.ValidateState(s.secretKey, params.State)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid oauth state", ErrForbidden)
	}
	if err := s.orgs.Authorize(ctx, claims.UserID, claims.OrganizationID); err != nil {
		return nil, err
	}

	short, err := provider.ExchangeCode(ctx, params.Code, params.State)
	if err != nil {
		return nil, err
	}
	if err := s.store.PutShortLived(ctx, string(p), short.ExternalID, short); err != nil {
		return nil, fmt.Errorf("store short-lived token: %w", err)
	}

	long, err := provider.ExtendToken(ctx, short)
	if err != nil {
		return nil, err
	}
	if err := s.store.PutLongLived(ctx, string(p), short.ExternalID, long); err != nil {
		return nil, fmt.Errorf("store long-lived token: %w", err)
	}

	profile, err := provider.Profile(ctx, long.AccessToken)
	if err != nil {
		return nil, err
	}

	account := &models.SocialAccount{
		OrganizationID:  claims.OrganizationID,
		UserID:          claims.UserID,
		Platform:        string(p),
		AccountID:       short.ExternalID,
		AccountName:     profile.Name,
		AccountUsername: profile.Username,
		ProfilePicture:  profile.PictureURL,
		AccountStatus:   models.AccountStatusActive,
	}
	if account.AccountName == "" {
		account.AccountName = profile.Username
	}

	id, err := s.sa.Upsert(ctx, nil, account)
	if err != nil {
		return nil, err
	}
	account.ID = id

	slog.Info("social account linked", "platform", p, "account_id", account.AccountID, "organization_id", account.OrganizationID)
	return account, nil
}

// CreateManual links an account from an access token obtained outside the
// authorization flow.
func (s *platformService) CreateManual(ctx context.Context, userID int64, sac *transfer.SocialAccountCreation) (*models.SocialAccount, error) {
	p, err := platforms.Parse(sac.Platform)
	if err != nil {
		return nil, err
	}
	if sac.AccountID == "" || sac.AccessToken == "" {
		return nil, invalidf("account_id and access_token are required")
	}
	if err := s.orgs.Authorize(ctx, userID, sac.OrganizationID); err != nil {
		return nil, err
	}
	provider, err := s.providers.Get(p)
	if err != nil {
		return nil, err
	}

	// The token must belong to the account it is stored under.
	profile, err := provider.Profile(ctx, sac.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("verify access token: %w", err)
	}
	if profile.ID != sac.AccountID {
		return nil, fmt.Errorf("%w: access token does not belong to %s account %s", ErrForbidden, p, sac.AccountID)
	}
	name := sac.AccountName
	if name == "" {
		name = profile.Name
	}

	var expiresAt time.Time
	if sac.ExpiresAt != nil {
		expiresAt = *sac.ExpiresAt
	}
	if err := s.store.PutShortLived(ctx, string(p), sac.AccountID, &platforms.ShortLivedToken{
		ExternalID:  sac.AccountID,
		AccessToken: sac.AccessToken,
		ExpiresAt:   expiresAt,
	}); err != nil {
		return nil, err
	}
	if err := s.store.PutLongLived(ctx, string(p), sac.AccountID, &platforms.LongLivedToken{
		AccessToken: sac.AccessToken,
		ExpiresAt:   expiresAt,
	}); err != nil {
		return nil, err
	}

	account := &models.SocialAccount{
		OrganizationID:  sac.OrganizationID,
		UserID:          userID,
		Platform:        string(p),
		AccountID:       sac.AccountID,
		AccountName:     name,
		AccountUsername: profile.Username,
		ProfilePicture:  profile.PictureURL,
		AccountStatus:   models.AccountStatusActive,
	}
	id, err := s.sa.Create(ctx, nil, account)
	if err != nil {
		return nil, err
	}
	account.ID = id
	return account, nil
}

func (s *platformService) List(ctx context.Context, userID, orgID int64, page transfer.Page) ([]*models.SocialAccount, error) {
	if err := s.orgs.Authorize(ctx, userID, orgID); err != nil {
		return nil, err
	}
	offset, limit := pageBounds(page)
	return s.sa.ListByOrganization(ctx, orgID, offset, limit)
}

func (s *platformService) Get(ctx context.Context, userID, accountID int64) (*models.SocialAccount, error) {
	account, err := s.sa.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, notFound("social account", accountID)
	}
	if err := s.orgs.Authorize(ctx, userID, account.OrganizationID); err != nil {
		return nil, err
	}
	return account, nil
}

// Delete unlinks an account. The credential is revoked and removed once no
// organization links the external account anymore.
func (s *platformService) Delete(ctx context.Context, userID, accountID int64) error {
	account, err := s.Get(ctx, userID, accountID)
	if err != nil {
		return err
	}

	if err := s.sa.Remove(ctx, nil, account.ID); err != nil {
		return fmt.Errorf("delete social account: %w", err)
	}
	remaining, err := s.sa.CountByCredential(ctx, account.Platform, account.AccountID)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return nil
	}

	s.revoke(ctx, account)
	if err := s.store.Delete(ctx, account.Platform, account.AccountID); err != nil && !errors.Is(err, tokenstore.ErrNotFound) {
		return err
	}
	return nil
}

func (s *platformService) revoke(ctx context.Context, account *models.SocialAccount) {
	provider, err := s.providers.Lookup(account.Platform)
	if err != nil {
		return
	}
	revoker, ok := provider.(platforms.Revoker)
	if !ok {
		return
	}
	cred, err := s.store.Get(ctx, account.Platform, account.AccountID)
	if err != nil || !cred.Authorized() {
		return
	}
	if err := revoker.Revoke(ctx, cred); err != nil {
		slog.Warn("token revoke failed", "platform", account.Platform, "account_id", account.AccountID, "error", err)
	}
}
