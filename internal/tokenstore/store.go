// Package tokenstore keeps the current OAuth credential of every linked
// external account, keyed by platform and external account id.
package tokenstore

import (
	"context"
	"errors"
	"time"

	"github.com/maheshrc27/postsphere/internal/models"
	"github.com/maheshrc27/postsphere/internal/platforms"
)

var ErrNotFound = errors.New("credential not found")

// Store persists credentials. The short-lived token of an account is written
// before its long-lived token; PutLongLived fails with ErrNotFound for an
// account that has no record yet.
type Store interface {
	PutShortLived(ctx context.Context, platform, externalID string, token *platforms.ShortLivedToken) error
	PutLongLived(ctx context.Context, platform, externalID string, token *platforms.LongLivedToken) error
	Get(ctx context.Context, platform, externalID string) (*models.AccountCredential, error)
	Delete(ctx context.Context, platform, externalID string) error
	// Expiring lists credentials with a long-lived token expiring before t.
	Expiring(ctx context.Context, before time.Time) ([]*models.AccountCredential, error)
}
