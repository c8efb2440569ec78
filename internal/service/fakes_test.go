package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/maheshrc27/postsphere/internal/events"
	"github.com/maheshrc27/postsphere/internal/models"
	"github.com/maheshrc27/postsphere/internal/platforms"
	"github.com/maheshrc27/postsphere/internal/repository"
)

func noTx(_ context.Context, fn func(tx *sql.Tx) error) error { return fn(nil) }

type memPosts struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.Post
}

func newMemPosts() *memPosts { return &memPosts{rows: map[int64]*models.Post{}} }

func (m *memPosts) GetByID(_ context.Context, id int64) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memPosts) Create(_ context.Context, _ *sql.Tx, post *models.Post) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	cp := *post
	cp.ID = m.nextID
	m.rows[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memPosts) ListForUser(_ context.Context, userID int64, offset, limit int) ([]*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Post
	for id := int64(1); id <= m.nextID; id++ {
		if p, ok := m.rows[id]; ok && p.AuthorID == userID {
			out = append(out, p)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memPosts) update(id int64, fn func(p *models.Post)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok || p.Status == models.PostStatusPublished {
		return repository.ErrNotFound
	}
	fn(p)
	return nil
}

func (m *memPosts) Schedule(_ context.Context, id int64, at time.Time) error {
	return m.update(id, func(p *models.Post) {
		p.Status = models.PostStatusScheduled
		p.ScheduledTime = &at
		p.ErrorMessage = ""
	})
}

func (m *memPosts) Claim(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	switch p.Status {
	case models.PostStatusDraft, models.PostStatusScheduled, models.PostStatusFailed:
		p.Status = models.PostStatusPublishing
		return true, nil
	}
	return false, nil
}

func (m *memPosts) MarkPublished(_ context.Context, id int64, platformPostID string, at time.Time) error {
	return m.update(id, func(p *models.Post) {
		p.Status = models.PostStatusPublished
		p.PlatformPostID = platformPostID
		p.PublishedTime = &at
	})
}

func (m *memPosts) MarkFailed(_ context.Context, id int64, message string) error {
	return m.update(id, func(p *models.Post) {
		p.Status = models.PostStatusFailed
		p.ErrorMessage = message
	})
}

func (m *memPosts) Remove(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok || p.Status == models.PostStatusPublished || p.Status == models.PostStatusPublishing {
		return false, nil
	}
	delete(m.rows, id)
	return true, nil
}

type memAccounts struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.SocialAccount
}

func newMemAccounts() *memAccounts { return &memAccounts{rows: map[int64]*models.SocialAccount{}} }

func (m *memAccounts) add(sa models.SocialAccount) *models.SocialAccount {
	id, _ := m.Create(context.Background(), nil, &sa)
	sa.ID = id
	return &sa
}

func (m *memAccounts) Upsert(_ context.Context, _ *sql.Tx, sa *models.SocialAccount) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.OrganizationID == sa.OrganizationID && row.Platform == sa.Platform && row.AccountID == sa.AccountID {
			id := row.ID
			*row = *sa
			row.ID = id
			return id, nil
		}
	}
	m.nextID++
	cp := *sa
	cp.ID = m.nextID
	m.rows[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memAccounts) Create(_ context.Context, _ *sql.Tx, sa *models.SocialAccount) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.OrganizationID == sa.OrganizationID && row.Platform == sa.Platform && row.AccountID == sa.AccountID {
			return 0, fmt.Errorf("%w: social_accounts", repository.ErrConflict)
		}
	}
	m.nextID++
	cp := *sa
	cp.ID = m.nextID
	m.rows[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memAccounts) GetByID(_ context.Context, id int64) (*models.SocialAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sa, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *sa
	return &cp, nil
}

func (m *memAccounts) ListByOrganization(_ context.Context, orgID int64, offset, limit int) ([]*models.SocialAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.SocialAccount
	for id := int64(1); id <= m.nextID; id++ {
		if sa, ok := m.rows[id]; ok && sa.OrganizationID == orgID {
			out = append(out, sa)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memAccounts) CountByCredential(_ context.Context, platform, accountID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, sa := range m.rows {
		if sa.Platform == platform && sa.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

func (m *memAccounts) SetStatus(_ context.Context, platform, accountID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sa := range m.rows {
		if sa.Platform == platform && sa.AccountID == accountID {
			sa.AccountStatus = status
		}
	}
	return nil
}

func (m *memAccounts) Remove(_ context.Context, _ *sql.Tx, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

type memHistory struct {
	mu   sync.Mutex
	rows []*models.PostingHistory
}

func (m *memHistory) Create(_ context.Context, ph *models.PostingHistory) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ph
	cp.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, &cp)
	return cp.ID, nil
}

func (m *memHistory) ListByPost(_ context.Context, postID int64) ([]*models.PostingHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PostingHistory
	for _, ph := range m.rows {
		if ph.PostID == postID {
			out = append(out, ph)
		}
	}
	return out, nil
}

type memOrgs struct {
	nextID  int64
	orgs    map[int64]*models.Organization
	members map[[2]int64]bool
}

func newMemOrgs() *memOrgs {
	return &memOrgs{orgs: map[int64]*models.Organization{}, members: map[[2]int64]bool{}}
}

func (m *memOrgs) Create(_ context.Context, _ *sql.Tx, org *models.Organization) (int64, error) {
	m.nextID++
	cp := *org
	cp.ID = m.nextID
	m.orgs[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memOrgs) GetByID(_ context.Context, id int64) (*models.Organization, error) {
	return m.orgs[id], nil
}

func (m *memOrgs) ListByMember(_ context.Context, userID int64, offset, limit int) ([]*models.Organization, error) {
	var out []*models.Organization
	for id := int64(1); id <= m.nextID; id++ {
		if m.members[[2]int64{id, userID}] {
			out = append(out, m.orgs[id])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memOrgs) AddMember(_ context.Context, _ *sql.Tx, orgID, userID int64) error {
	k := [2]int64{orgID, userID}
	if m.members[k] {
		return fmt.Errorf("%w: organization_members_pkey", repository.ErrConflict)
	}
	m.members[k] = true
	return nil
}

func (m *memOrgs) IsMember(_ context.Context, orgID, userID int64) (bool, error) {
	return m.members[[2]int64{orgID, userID}], nil
}

type memUsers struct {
	nextID int64
	rows   map[int64]*models.User
}

func newMemUsers() *memUsers { return &memUsers{rows: map[int64]*models.User{}} }

func (m *memUsers) GetByID(_ context.Context, id int64) (*models.User, bool, error) {
	u, ok := m.rows[id]
	return u, ok, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, bool, error) {
	for _, u := range m.rows {
		if u.Email == email {
			cp := *u
			return &cp, true, nil
		}
	}
	return nil, false, nil
}

func (m *memUsers) Create(_ context.Context, _ *sql.Tx, user *models.User) (int64, error) {
	m.nextID++
	cp := *user
	cp.ID = m.nextID
	m.rows[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memUsers) Update(_ context.Context, user *models.User) error {
	cp := *user
	m.rows[user.ID] = &cp
	return nil
}

func (m *memUsers) Remove(_ context.Context, id int64) error {
	delete(m.rows, id)
	return nil
}

type memKeys struct {
	rows []*models.ApiKey
}

func (m *memKeys) GetUserID(_ context.Context, apiKey string) (int64, bool, error) {
	for _, k := range m.rows {
		if k.ApiKey == apiKey {
			return k.UserID, true, nil
		}
	}
	return 0, false, nil
}

func (m *memKeys) GetByUserID(_ context.Context, userID int64) ([]*models.ApiKey, error) {
	var out []*models.ApiKey
	for _, k := range m.rows {
		if k.UserID == userID {
			cp := *k
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memKeys) CountByUserID(ctx context.Context, userID int64) (int, error) {
	keys, _ := m.GetByUserID(ctx, userID)
	return len(keys), nil
}

func (m *memKeys) Create(_ context.Context, apiKey *models.ApiKey) (int64, error) {
	cp := *apiKey
	cp.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, &cp)
	return cp.ID, nil
}

func (m *memKeys) CheckByUserID(_ context.Context, keyID, userID int64) (bool, error) {
	for _, k := range m.rows {
		if k.ID == keyID && k.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memKeys) Remove(_ context.Context, id int64) error {
	for i, k := range m.rows {
		if k.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

type scheduled struct {
	postID int64
	at     time.Time
}

type stubEnqueuer struct {
	calls []scheduled
	err   error
}

func (s *stubEnqueuer) SchedulePost(_ context.Context, postID int64, at time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.calls = append(s.calls, scheduled{postID, at})
	return nil
}

type recordedEvents struct {
	mu        sync.Mutex
	published []events.PostEvent
	failed    []events.PostEvent
}

func (r *recordedEvents) PostPublished(_ context.Context, e events.PostEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, e)
	return nil
}

func (r *recordedEvents) PostFailed(_ context.Context, e events.PostEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, e)
	return nil
}

// stubProvider records calls instead of reaching a platform.
type stubProvider struct {
	platform platforms.Platform

	mu           sync.Mutex
	exchanges    int
	publishes    int
	revokes      int
	exchangeErr  error
	publishErr   error
	platformID   string
	lastRequest  platforms.PublishRequest
	lastAccessed string
	// profileID is the account every access token resolves to; "ext-1" when empty.
	profileID string
}

func (p *stubProvider) Platform() platforms.Platform { return p.platform }

func (p *stubProvider) AuthURL(state string) string {
	return "https://auth.example/authorize?state=" + state
}

func (p *stubProvider) ExchangeCode(_ context.Context, code, _ string) (*platforms.ShortLivedToken, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exchanges++
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return &platforms.ShortLivedToken{
		ExternalID:  "ext-1",
		AccessToken: "short-" + code,
		ExpiresAt:   time.Now().Add(time.Hour),
	}, nil
}

func (p *stubProvider) ExtendToken(_ context.Context, short *platforms.ShortLivedToken) (*platforms.LongLivedToken, error) {
	return &platforms.LongLivedToken{
		AccessToken: "long-" + short.AccessToken,
		ExpiresAt:   time.Now().Add(60 * 24 * time.Hour),
	}, nil
}

func (p *stubProvider) Refresh(_ context.Context, cred *models.AccountCredential) (*platforms.LongLivedToken, error) {
	return &platforms.LongLivedToken{AccessToken: cred.LongLivedToken, ExpiresAt: time.Now().Add(60 * 24 * time.Hour)}, nil
}

func (p *stubProvider) Profile(_ context.Context, accessToken string) (*platforms.Profile, error) {
	p.mu.Lock()
	p.lastAccessed = accessToken
	id := p.profileID
	p.mu.Unlock()
	if id == "" {
		id = "ext-1"
	}
	return &platforms.Profile{ID: id, Username: "acme", Name: "Acme"}, nil
}

func (p *stubProvider) Publish(_ context.Context, cred *models.AccountCredential, req platforms.PublishRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.publishes++
	p.lastRequest = req
	p.lastAccessed = cred.LongLivedToken
	if p.publishErr != nil {
		return "", p.publishErr
	}
	if p.platformID == "" {
		return "media-1", nil
	}
	return p.platformID, nil
}

func (p *stubProvider) Revoke(context.Context, *models.AccountCredential) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revokes++
	return nil
}

type stubStorage struct {
	puts    []*s3.PutObjectInput
	deletes []*s3.DeleteObjectInput
}

func (s *stubStorage) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	s.puts = append(s.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (s *stubStorage) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	s.deletes = append(s.deletes, in)
	return &s3.DeleteObjectOutput{}, nil
}
