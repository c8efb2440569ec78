package tokenstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/maheshrc27/postsphere/internal/models"
	"github.com/maheshrc27/postsphere/internal/platforms"
)

type key struct {
	platform   string
	externalID string
}

// Memory is a Store backed by a map. It hands out copies, so callers may
// modify what they get back.
type Memory struct {
	mu    sync.RWMutex
	creds map[key]models.AccountCredential
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{creds: make(map[key]models.AccountCredential), now: time.Now}
}

func (m *Memory) PutShortLived(_ context.Context, platform, externalID string, token *platforms.ShortLivedToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{platform, externalID}
	cred, ok := m.creds[k]
	if !ok {
		cred = models.AccountCredential{Platform: platform, ExternalID: externalID, ExpiresAt: token.ExpiresAt}
	}
	cred.ShortLivedToken = token.AccessToken
	if token.RefreshToken != "" {
		cred.RefreshToken = token.RefreshToken
	}
	cred.UpdatedAt = m.now()
	m.creds[k] = cred
	return nil
}

func (m *Memory) PutLongLived(_ context.Context, platform, externalID string, token *platforms.LongLivedToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{platform, externalID}
	cred, ok := m.creds[k]
	if !ok {
		return ErrNotFound
	}
	cred.LongLivedToken = token.AccessToken
	if token.RefreshToken != "" {
		cred.RefreshToken = token.RefreshToken
	}
	cred.ExpiresAt = token.ExpiresAt
	cred.UpdatedAt = m.now()
	m.creds[k] = cred
	return nil
}

func (m *Memory) Get(_ context.Context, platform, externalID string) (*models.AccountCredential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cred, ok := m.creds[key{platform, externalID}]
	if !ok {
		return nil, ErrNotFound
	}
	return &cred, nil
}

func (m *Memory) Delete(_ context.Context, platform, externalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.creds, key{platform, externalID})
	return nil
}

func (m *Memory) Expiring(_ context.Context, before time.Time) ([]*models.AccountCredential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.AccountCredential
	for _, cred := range m.creds {
		if cred.LongLivedToken == "" || cred.ExpiresAt.IsZero() || !cred.ExpiresAt.Before(before) {
			continue
		}
		c := cred
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}
