package job

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maheshrc27/postsphere/internal/models"
	"github.com/maheshrc27/postsphere/internal/platforms"
)

// ExpiringLister lists credentials whose long-lived token expires before t.
type ExpiringLister interface {
	Expiring(ctx context.Context, before time.Time) ([]*models.AccountCredential, error)
}

type Refresher interface {
	Refresh(ctx context.Context, platform, externalID string) (*models.AccountCredential, error)
}

// StatusSetter marks the social accounts of an external account.
type StatusSetter interface {
	SetStatus(ctx context.Context, platform, accountID, status string) error
}

type TokenRefreshJob struct {
	creds       ExpiringLister
	refresher   Refresher
	accounts    StatusSetter
	window      time.Duration
	concurrency int
	timeout     time.Duration
}

func NewTokenRefreshJob(creds ExpiringLister, refresher Refresher, accounts StatusSetter, window time.Duration, concurrency int) *TokenRefreshJob {
	return &TokenRefreshJob{
		creds:       creds,
		refresher:   refresher,
		accounts:    accounts,
		window:      window,
		concurrency: max(concurrency, 1),
		timeout:     5 * time.Minute,
	}
}

// RefreshTokens is the cron entry point.
func (c *TokenRefreshJob) RefreshTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	refreshed, failed, err := c.Run(ctx)
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if refreshed+failed > 0 {
		slog.Info("token refresh finished", "refreshed", refreshed, "failed", failed)
	}
}

// Run refreshes every credential expiring within the window and waits for
// all refreshes to finish.
func (c *TokenRefreshJob) Run(ctx context.Context) (refreshed, failed int, err error) {
	creds, err := c.creds.Expiring(ctx, time.Now().Add(c.window))
	if err != nil {
		return 0, 0, err
	}

	var (
		wg        sync.WaitGroup
		ok, bad   atomic.Int64
		semaphore = make(chan struct{}, c.concurrency)
	)

	for _, cred := range creds {
		select {
		case semaphore <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return int(ok.Load()), int(bad.Load()), ctx.Err()
		}

		wg.Add(1)
		go func(cred *models.AccountCredential) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if _, err := c.refresher.Refresh(ctx, cred.Platform, cred.ExternalID); err != nil {
				bad.Add(1)
				slog.Info("unable to refresh token", "platform", cred.Platform, "account_id", cred.ExternalID, "error", err)
				if errors.Is(err, platforms.ErrNotAuthorized) {
					if err := c.accounts.SetStatus(ctx, cred.Platform, cred.ExternalID, models.AccountStatusExpired); err != nil {
						slog.Info(err.Error())
					}
				}
				return
			}
			ok.Add(1)
		}(cred)
	}

	wg.Wait()
	return int(ok.Load()), int(bad.Load()), nil
}
