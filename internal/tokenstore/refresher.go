package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/maheshrc27/postsphere/internal/models"
	"github.com/maheshrc27/postsphere/internal/platforms"
)

type Providers interface {
	Get(p platforms.Platform) (platforms.Provider, error)
}

// Refresher hands out credentials that are valid for at least the refresh
// window, renewing them through the platform when needed.
type Refresher struct {
	store     Store
	providers Providers
	window    time.Duration
	group     singleflight.Group
	now       func() time.Time
}

func NewRefresher(store Store, providers Providers, window time.Duration) *Refresher {
	return &Refresher{store: store, providers: providers, window: window, now: time.Now}
}

// Credential returns the account's credential, refreshed first when it
// expires within the window. An account without a usable long-lived token
// yields platforms.ErrNotAuthorized.
func (r *Refresher) Credential(ctx context.Context, platform, externalID string) (*models.AccountCredential, error) {
	cred, err := r.load(ctx, platform, externalID)
	if err != nil {
		return nil, err
	}
	if !cred.ExpiresWithin(r.now(), r.window) {
		return cred, nil
	}

	fresh, err := r.Refresh(ctx, platform, externalID)
	if err != nil {
		if cred.ExpiresAt.After(r.now()) && !errors.Is(err, platforms.ErrNotAuthorized) {
			slog.Warn("token refresh failed, using current token",
				"platform", platform, "account", externalID, "error", err)
			return cred, nil
		}
		return nil, err
	}
	return fresh, nil
}

// Refresh renews the account's token if it is still due. Concurrent calls for
// the same account share one platform request.
func (r *Refresher) Refresh(ctx context.Context, platform, externalID string) (*models.AccountCredential, error) {
	v, err, _ := r.group.Do(platform+"/"+externalID, func() (any, error) {
		return r.refresh(context.WithoutCancel(ctx), platform, externalID)
	})
	if err != nil {
		return nil, err
	}
	cred := *v.(*models.AccountCredential)
	return &cred, nil
}

func (r *Refresher) refresh(ctx context.Context, platform, externalID string) (*models.AccountCredential, error) {
	cred, err := r.load(ctx, platform, externalID)
	if err != nil {
		return nil, err
	}
	// Another caller may have finished a refresh while this one was queued.
	if !cred.ExpiresWithin(r.now(), r.window) {
		return cred, nil
	}

	provider, err := r.providers.Get(platforms.Platform(platform))
	if err != nil {
		return nil, err
	}

	token, err := provider.Refresh(ctx, cred)
	if err != nil {
		slog.Info(err.Error())
		if !cred.ExpiresAt.After(r.now()) {
			return nil, fmt.Errorf("%w: %w", platforms.ErrNotAuthorized, err)
		}
		return nil, err
	}

	if err := r.store.PutLongLived(ctx, platform, externalID, token); err != nil {
		return nil, err
	}
	return r.store.Get(ctx, platform, externalID)
}

func (r *Refresher) load(ctx context.Context, platform, externalID string) (*models.AccountCredential, error) {
	cred, err := r.store.Get(ctx, platform, externalID)
	if errors.Is(err, ErrNotFound) {
		return nil, platforms.ErrNotAuthorized
	}
	if err != nil {
		return nil, err
	}
	if !cred.Authorized() {
		return nil, platforms.ErrNotAuthorized
	}
	return cred, nil
}
