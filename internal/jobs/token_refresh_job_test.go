package job

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/maheshrc27/postsphere/internal/models"
	"github.com/maheshrc27/postsphere/internal/platforms"
)

type stubLister struct {
	creds  []*models.AccountCredential
	before time.Time
}

func (s *stubLister) Expiring(_ context.Context, before time.Time) ([]*models.AccountCredential, error) {
	s.before = before
	return s.creds, nil
}

type stubRefresher struct {
	inFlight, peak atomic.Int64
	fail           map[string]error
}

func (s *stubRefresher) Refresh(_ context.Context, _, externalID string) (*models.AccountCredential, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	if err := s.fail[externalID]; err != nil {
		return nil, err
	}
	return &models.AccountCredential{ExternalID: externalID}, nil
}

type stubStatus struct {
	mu      sync.Mutex
	expired []string
}

func (s *stubStatus) SetStatus(_ context.Context, _, accountID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == models.AccountStatusExpired {
		s.expired = append(s.expired, accountID)
	}
	return nil
}

func TestRunRefreshesWithBoundedConcurrency(t *testing.T) {
	lister := &stubLister{}
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		lister.creds = append(lister.creds, &models.AccountCredential{Platform: "instagram", ExternalID: id})
	}
	refresher := &stubRefresher{fail: map[string]error{
		"c": platforms.ErrNotAuthorized,
		"d": errors.New("timeout"),
	}}
	status := &stubStatus{}

	job := NewTokenRefreshJob(lister, refresher, status, 30*time.Minute, 3)
	start := time.Now()
	refreshed, failed, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if refreshed != 6 || failed != 2 {
		t.Fatalf("refreshed=%d failed=%d", refreshed, failed)
	}
	if peak := refresher.peak.Load(); peak > 3 {
		t.Fatalf("concurrency exceeded: %d", peak)
	}
	if refresher.inFlight.Load() != 0 {
		t.Fatal("Run returned before refreshes finished")
	}
	if len(status.expired) != 1 || status.expired[0] != "c" {
		t.Fatalf("expected only c marked expired, got %v", status.expired)
	}
	if lister.before.Before(start.Add(29 * time.Minute)) {
		t.Fatalf("window not applied: %v", lister.before)
	}
}

func TestRunNothingDue(t *testing.T) {
	job := NewTokenRefreshJob(&stubLister{}, &stubRefresher{}, &stubStatus{}, time.Minute, 0)
	refreshed, failed, err := job.Run(context.Background())
	if err != nil || refreshed != 0 || failed != 0 {
		t.Fatalf("unexpected result %d %d %v", refreshed, failed, err)
	}
}
