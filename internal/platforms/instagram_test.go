package platforms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/maheshrc27/postsphere/internal/models"
)

const upstreamError = `{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`

type fakeInstagram struct {
	t        *testing.T
	fail     string
	calls    atomic.Int32
	mu       sync.Mutex
	statuses []string
}

func (f *fakeInstagram) handler() http.Handler {
	mux := http.NewServeMux()
	route := func(name, pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			f.calls.Add(1)
			if f.fail == name {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(upstreamError))
				return
			}
			h(w, r)
		})
	}

	route("short", "POST /oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			f.t.Errorf("parse form: %v", err)
		}
		for key, want := range map[string]string{
			"client_id":     "client-id",
			"client_secret": "client-secret",
			"grant_type":    "authorization_code",
			"redirect_uri":  "https://app.test/auth/instagram/callback",
			"code":          "auth-code",
		} {
			if got := r.PostForm.Get(key); got != want {
				f.t.Errorf("form %s = %q, want %q", key, got, want)
			}
		}
		w.Write([]byte(`{"access_token":"short-token","user_id":17841400000000001}`))
	})
	route("long", "GET /access_token", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("grant_type") != "ig_exchange_token" || q.Get("access_token") != "short-token" {
			f.t.Errorf("unexpected long-lived query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"access_token":"long-token","token_type":"bearer","expires_in":5183944}`))
	})
	route("refresh", "GET /refresh_access_token", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("grant_type") != "ig_refresh_token" {
			f.t.Errorf("unexpected refresh query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"access_token":"refreshed-token","expires_in":5183944}`))
	})
	route("create", "POST /v22.0/{user}/media", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("user") != "17841400000000001" {
			f.t.Errorf("unexpected user %q", r.PathValue("user"))
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			f.t.Errorf("decode container body: %v", err)
		}
		if body["access_token"] != "long-token" || body["caption"] != "hello" {
			f.t.Errorf("unexpected container body %v", body)
		}
		w.Write([]byte(`{"id":"creation-1"}`))
	})
	route("status", "GET /v22.0/{container}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		status := "FINISHED"
		if len(f.statuses) > 0 {
			status, f.statuses = f.statuses[0], f.statuses[1:]
		}
		f.mu.Unlock()
		w.Write([]byte(`{"status_code":"` + status + `","id":"creation-1"}`))
	})
	route("publish", "POST /v22.0/{user}/media_publish", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			f.t.Errorf("decode publish body: %v", err)
		}
		if body["creation_id"] != "creation-1" {
			f.t.Errorf("unexpected creation id %q", body["creation_id"])
		}
		w.Write([]byte(`{"id":"media-1"}`))
	})
	route("profile", "GET /v22.0/me", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"app-scoped","user_id":"17841400000000001","username":"sphere","name":"Sphere"}`))
	})
	return mux
}

func newTestInstagram(t *testing.T, fake *fakeInstagram, opts Options) *InstagramClient {
	t.Helper()
	fake.t = t
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	return NewInstagram(MetaConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://app.test/auth/instagram/callback",
		AuthURL:      srv.URL + "/authorize",
		TokenURL:     srv.URL + "/oauth/access_token",
		GraphURL:     srv.URL,
		PollInterval: time.Millisecond,
		PollAttempts: 5,
	}, opts)
}

// runChain performs the full exchange and publish sequence.
func runChain(ctx context.Context, ig *InstagramClient, req PublishRequest) (string, error) {
	short, err := ig.ExchangeCode(ctx, "auth-code", "state")
	if err != nil {
		return "", err
	}
	long, err := ig.ExtendToken(ctx, short)
	if err != nil {
		return "", err
	}
	cred := &models.AccountCredential{
		Platform:        string(Instagram),
		ExternalID:      short.ExternalID,
		ShortLivedToken: short.AccessToken,
		LongLivedToken:  long.AccessToken,
		ExpiresAt:       long.ExpiresAt,
	}
	return ig.Publish(ctx, cred, req)
}

func TestInstagramChainPublishes(t *testing.T) {
	fake := &fakeInstagram{}
	ig := newTestInstagram(t, fake, Options{})

	id, err := runChain(context.Background(), ig, PublishRequest{
		Caption:   "hello",
		MediaURL:  "https://cdn.test/a.jpg",
		MediaKind: models.MediaKindImage,
	})
	if err != nil {
		t.Fatalf("chain failed: %v", err)
	}
	if id != "media-1" {
		t.Fatalf("expected media-1, got %q", id)
	}
	if got := fake.calls.Load(); got != 4 {
		t.Fatalf("expected 4 calls, got %d", got)
	}
}

func TestInstagramChainFailuresAreAttributable(t *testing.T) {
	cases := []struct {
		fail  string
		stage Stage
	}{
		{"short", StageShortLivedToken},
		{"long", StageLongLivedToken},
		{"create", StageCreateContainer},
		{"publish", StagePublishContainer},
	}

	for _, tc := range cases {
		t.Run(tc.fail, func(t *testing.T) {
			ig := newTestInstagram(t, &fakeInstagram{fail: tc.fail}, Options{})

			_, err := runChain(context.Background(), ig, PublishRequest{
				Caption:   "hello",
				MediaURL:  "https://cdn.test/a.jpg",
				MediaKind: models.MediaKindImage,
			})
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Stage != tc.stage {
				t.Fatalf("expected stage %s, got %s", tc.stage, apiErr.Stage)
			}
			if apiErr.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", apiErr.StatusCode)
			}
			if !strings.Contains(apiErr.Body, "Invalid OAuth access token") {
				t.Fatalf("expected upstream body to be attached, got %q", apiErr.Body)
			}
			if apiErr.Platform != Instagram {
				t.Fatalf("expected instagram platform, got %s", apiErr.Platform)
			}
		})
	}
}

func TestInstagramMissingCodeMakesNoCalls(t *testing.T) {
	fake := &fakeInstagram{}
	ig := newTestInstagram(t, fake, Options{})

	if _, err := ig.ExchangeCode(context.Background(), "", "state"); !errors.Is(err, ErrMissingCode) {
		t.Fatalf("expected ErrMissingCode, got %v", err)
	}
	if fake.calls.Load() != 0 {
		t.Fatal("expected no network calls")
	}
}

func TestInstagramPublishRequiresLongLivedToken(t *testing.T) {
	fake := &fakeInstagram{}
	ig := newTestInstagram(t, fake, Options{})

	cred := &models.AccountCredential{Platform: "instagram", ExternalID: "1", ShortLivedToken: "short-token"}
	_, err := ig.Publish(context.Background(), cred, PublishRequest{MediaURL: "https://cdn.test/a.jpg"})
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if _, err := ig.Publish(context.Background(), nil, PublishRequest{}); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for missing credential, got %v", err)
	}
	if fake.calls.Load() != 0 {
		t.Fatal("expected no network calls")
	}
}

func TestInstagramRejectsTextOnlyPosts(t *testing.T) {
	ig := newTestInstagram(t, &fakeInstagram{}, Options{})
	cred := &models.AccountCredential{ExternalID: "1", LongLivedToken: "long-token"}

	if _, err := ig.Publish(context.Background(), cred, PublishRequest{Caption: "hi"}); !errors.Is(err, ErrUnsupportedContent) {
		t.Fatalf("expected ErrUnsupportedContent, got %v", err)
	}
}

func TestInstagramVideoWaitsForContainer(t *testing.T) {
	fake := &fakeInstagram{statuses: []string{"IN_PROGRESS", "IN_PROGRESS", "FINISHED"}}
	ig := newTestInstagram(t, fake, Options{})

	id, err := runChain(context.Background(), ig, PublishRequest{
		Caption:   "hello",
		MediaURL:  "https://cdn.test/a.mp4",
		MediaKind: models.MediaKindVideo,
	})
	if err != nil {
		t.Fatalf("chain failed: %v", err)
	}
	if id != "media-1" {
		t.Fatalf("expected media-1, got %q", id)
	}
	if got := fake.calls.Load(); got != 7 {
		t.Fatalf("expected 7 calls, got %d", got)
	}
}

func TestInstagramVideoContainerError(t *testing.T) {
	fake := &fakeInstagram{statuses: []string{"ERROR"}}
	ig := newTestInstagram(t, fake, Options{})

	_, err := runChain(context.Background(), ig, PublishRequest{
		Caption:   "hello",
		MediaURL:  "https://cdn.test/a.mp4",
		MediaKind: models.MediaKindVideo,
	})
	if StageOf(err) != StageContainerStatus {
		t.Fatalf("expected container status failure, got %v", err)
	}
}

func TestInstagramExtendRetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"access_token":"long-token","expires_in":3600}`))
	}))
	defer srv.Close()

	ig := NewInstagram(MetaConfig{GraphURL: srv.URL}, Options{MaxRetries: 3, RetryBaseDelay: time.Millisecond})
	long, err := ig.ExtendToken(context.Background(), &ShortLivedToken{AccessToken: "short-token"})
	if err != nil {
		t.Fatalf("ExtendToken: %v", err)
	}
	if long.AccessToken != "long-token" {
		t.Fatalf("unexpected token %q", long.AccessToken)
	}
	if attempts.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts.Load())
	}
	if time.Until(long.ExpiresAt) <= 0 {
		t.Fatal("expected expiry in the future")
	}
}

func TestInstagramPublishIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ig := NewInstagram(MetaConfig{GraphURL: srv.URL}, Options{MaxRetries: 3, RetryBaseDelay: time.Millisecond})
	cred := &models.AccountCredential{ExternalID: "1", LongLivedToken: "long-token"}
	_, err := ig.Publish(context.Background(), cred, PublishRequest{MediaURL: "https://cdn.test/a.jpg"})
	if StageOf(err) != StageCreateContainer {
		t.Fatalf("expected create_container failure, got %v", err)
	}
	if attempts.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts.Load())
	}
}

func TestInstagramRefreshAndProfile(t *testing.T) {
	ig := newTestInstagram(t, &fakeInstagram{}, Options{})
	ctx := context.Background()

	long, err := ig.Refresh(ctx, &models.AccountCredential{ExternalID: "1", LongLivedToken: "long-token"})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if long.AccessToken != "refreshed-token" {
		t.Fatalf("unexpected token %q", long.AccessToken)
	}

	profile, err := ig.Profile(ctx, "long-token")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if profile.ID != "17841400000000001" || profile.Username != "sphere" {
		t.Fatalf("unexpected profile %+v", profile)
	}
}

func TestInstagramAuthURL(t *testing.T) {
	ig := NewInstagram(MetaConfig{ClientID: "client-id", RedirectURI: "https://app.test/cb"}, Options{})
	u := ig.AuthURL("signed-state")
	for _, want := range []string{
		"https://www.instagram.com/oauth/authorize?",
		"client_id=client-id",
		"state=signed-state",
		"response_type=code",
		"redirect_uri=https%3A%2F%2Fapp.test%2Fcb",
	} {
		if !strings.Contains(u, want) {
			t.Fatalf("expected %q in %s", want, u)
		}
	}
}
