package platforms

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/maheshrc27/postsphere/internal/models"
	"github.com/maheshrc27/postsphere/internal/transfer"
)

// MetaConfig configures the Instagram, Threads and Facebook clients. Empty
// endpoint fields fall back to the production hosts.
type MetaConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	GraphVersion string
	AuthURL      string
	TokenURL     string
	GraphURL     string

	// Video containers are polled until ready before being published.
	PollInterval time.Duration
	PollAttempts int
}

const (
	shortLivedTTL = time.Hour
	longLivedTTL  = 60 * 24 * time.Hour
)

var errContainerFailed = errors.New("media container failed processing")

type metaGrants struct {
	exchange string
	refresh  string
	scopes   []string
}

// metaOAuth implements the code, short-lived and long-lived token exchange
// shared by Instagram and Threads.
type metaOAuth struct {
	cfg    MetaConfig
	grants metaGrants
	api    *apiClient
}

func (m *metaOAuth) AuthURL(state string) string {
	params := url.Values{}
	params.Add("client_id", m.cfg.ClientID)
	params.Add("redirect_uri", m.cfg.RedirectURI)
	params.Add("response_type", "code")
	params.Add("scope", strings.Join(m.grants.scopes, ","))
	params.Add("state", state)
	return m.cfg.AuthURL + "?" + params.Encode()
}

func (m *metaOAuth) ExchangeCode(ctx context.Context, code, _ string) (*ShortLivedToken, error) {
	if code == "" {
		return nil, ErrMissingCode
	}

	form := url.Values{}
	form.Add("client_id", m.cfg.ClientID)
	form.Add("client_secret", m.cfg.ClientSecret)
	form.Add("grant_type", "authorization_code")
	form.Add("redirect_uri", m.cfg.RedirectURI)
	form.Add("code", code)

	var result transfer.MetaShortLivedToken
	if err := m.api.postForm(ctx, StageShortLivedToken, m.cfg.TokenURL, form, nil, &result); err != nil {
		return nil, err
	}

	token, userID := result.AccessToken, result.UserID
	if token == "" && len(result.Data) > 0 {
		token, userID = result.Data[0].AccessToken, result.Data[0].UserID
	}
	if token == "" {
		return nil, m.api.malformed(StageShortLivedToken, "access_token")
	}
	if userID == "" {
		return nil, m.api.malformed(StageShortLivedToken, "user_id")
	}

	return &ShortLivedToken{
		ExternalID:  string(userID),
		AccessToken: token,
		ExpiresAt:   time.Now().Add(shortLivedTTL),
	}, nil
}

func (m *metaOAuth) ExtendToken(ctx context.Context, short *ShortLivedToken) (*LongLivedToken, error) {
	params := url.Values{}
	params.Add("grant_type", m.grants.exchange)
	params.Add("client_secret", m.cfg.ClientSecret)
	params.Add("access_token", short.AccessToken)
	return m.longLived(ctx, StageLongLivedToken, "/access_token", params)
}

func (m *metaOAuth) Refresh(ctx context.Context, cred *models.AccountCredential) (*LongLivedToken, error) {
	if err := requireLongLived(cred); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Add("grant_type", m.grants.refresh)
	params.Add("access_token", cred.LongLivedToken)
	return m.longLived(ctx, StageRefreshToken, "/refresh_access_token", params)
}

func (m *metaOAuth) longLived(ctx context.Context, stage Stage, path string, params url.Values) (*LongLivedToken, error) {
	var result transfer.MetaLongLivedToken
	err := m.api.retry(ctx, func() error {
		return m.api.getJSON(ctx, stage, m.cfg.GraphURL+path, params, nil, &result)
	})
	if err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, m.api.malformed(stage, "access_token")
	}
	return &LongLivedToken{
		AccessToken: result.AccessToken,
		ExpiresAt:   expiresAt(result.ExpiresIn, longLivedTTL),
	}, nil
}

// graph builds a versioned Graph API URL.
func (m *metaOAuth) graph(path ...string) string {
	return m.cfg.GraphURL + "/" + m.cfg.GraphVersion + "/" + strings.Join(path, "/")
}

// waitForContainer polls a media container until the platform has finished
// processing it.
func (m *metaOAuth) waitForContainer(ctx context.Context, token, containerID, field string) error {
	params := url.Values{}
	params.Add("fields", field)
	params.Add("access_token", token)

	for attempt := 0; attempt < m.cfg.PollAttempts; attempt++ {
		var status transfer.MetaContainerStatus
		err := m.api.retry(ctx, func() error {
			return m.api.getJSON(ctx, StageContainerStatus, m.graph(containerID), params, nil, &status)
		})
		if err != nil {
			return err
		}

		code := status.StatusCode
		if code == "" {
			code = status.Status
		}
		switch code {
		case "FINISHED", "PUBLISHED":
			return nil
		case "ERROR", "EXPIRED":
			return m.api.failure(StageContainerStatus, 200, []byte(code), errContainerFailed)
		}

		select {
		case <-ctx.Done():
			return m.api.failure(StageContainerStatus, 0, nil, ctx.Err())
		case <-time.After(m.cfg.PollInterval):
		}
	}
	return m.api.failure(StageContainerStatus, 0, nil,
		fmt.Errorf("container %s not ready after %d checks", containerID, m.cfg.PollAttempts))
}

func (cfg *MetaConfig) applyDefaults(version, authURL, tokenURL, graphURL string) {
	cfg.GraphVersion = orDefault(cfg.GraphVersion, version)
	cfg.AuthURL = orDefault(cfg.AuthURL, authURL)
	cfg.TokenURL = orDefault(cfg.TokenURL, tokenURL)
	cfg.GraphURL = strings.TrimRight(orDefault(cfg.GraphURL, graphURL), "/")
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = 20
	}
}
