package platforms

import (
	"context"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/maheshrc27/postsphere/internal/models"
	"github.com/maheshrc27/postsphere/internal/transfer"
)

// MastodonClient publishes statuses to one Mastodon instance. Its access
// tokens do not expire and carry no refresh token.
type MastodonClient struct {
	*oauth2Flow
	cfg     OAuth2Config
	baseURL string
}

// NewMastodon serves the instance at cfg.APIURL.
func NewMastodon(cfg OAuth2Config, opts Options) *MastodonClient {
	base := strings.TrimRight(cfg.APIURL, "/")
	m := &MastodonClient{cfg: cfg, baseURL: base}
	m.oauth2Flow = &oauth2Flow{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"read:accounts", "write:statuses"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   orDefault(cfg.AuthURL, base+"/oauth/authorize"),
				TokenURL:  orDefault(cfg.TokenURL, base+"/oauth/token"),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		api:      newAPIClient(Mastodon, opts),
		identify: m.verifyCredentials,
	}
	return m
}

func (m *MastodonClient) Platform() Platform {
	return Mastodon
}

func (m *MastodonClient) verifyCredentials(ctx context.Context, accessToken string) (*Profile, error) {
	var account transfer.MastodonAccount
	err := m.api.retry(ctx, func() error {
		return m.api.getJSON(ctx, StageProfile, m.baseURL+"/api/v1/accounts/verify_credentials", nil, bearer(accessToken), &account)
	})
	if err != nil {
		return nil, err
	}
	if account.ID == "" {
		return nil, m.api.malformed(StageProfile, "id")
	}
	return &Profile{
		ID:         account.ID,
		Username:   account.Acct,
		Name:       orDefault(account.DisplayName, account.Username),
		PictureURL: account.Avatar,
	}, nil
}

// Publish posts a public status. Media is linked in the text.
func (m *MastodonClient) Publish(ctx context.Context, cred *models.AccountCredential, req PublishRequest) (string, error) {
	if err := requireLongLived(cred); err != nil {
		return "", err
	}

	text := req.Caption
	if req.MediaURL != "" {
		text = strings.TrimSpace(text + "\n" + req.MediaURL)
	}

	var status transfer.MastodonStatus
	payload := transfer.MastodonStatusRequest{Status: text, Visibility: "public"}
	if err := m.api.postJSON(ctx, StagePublish, m.baseURL+"/api/v1/statuses", payload, bearer(cred.LongLivedToken), &status); err != nil {
		return "", err
	}
	if status.ID == "" {
		return "", m.api.malformed(StagePublish, "id")
	}
	return status.ID, nil
}

func (m *MastodonClient) Revoke(ctx context.Context, cred *models.AccountCredential) error {
	if !cred.Authorized() {
		return nil
	}
	form := url.Values{}
	form.Add("client_id", m.cfg.ClientID)
	form.Add("client_secret", m.cfg.ClientSecret)
	form.Add("token", cred.LongLivedToken)
	return m.api.postForm(ctx, StageRevoke, m.baseURL+"/oauth/revoke", form, nil, nil)
}
