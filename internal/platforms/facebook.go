package platforms

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/maheshrc27/postsphere/internal/models"
	"github.com/maheshrc27/postsphere/internal/transfer"
)

var errNoPage = errors.New("account manages no facebook page")

// FacebookClient publishes to the first Facebook page the connected user manages.
type FacebookClient struct {
	cfg MetaConfig
	api *apiClient
}

func NewFacebook(cfg MetaConfig, opts Options) *FacebookClient {
	version := orDefault(cfg.GraphVersion, "v22.0")
	graphURL := strings.TrimRight(orDefault(cfg.GraphURL, "https://graph.facebook.com"), "/")
	cfg.applyDefaults(version,
		"https://www.facebook.com/"+version+"/dialog/oauth",
		graphURL+"/"+version+"/oauth/access_token",
		graphURL)
	return &FacebookClient{cfg: cfg, api: newAPIClient(Facebook, opts)}
}

func (fb *FacebookClient) Platform() Platform {
	return Facebook
}

func (fb *FacebookClient) AuthURL(state string) string {
	params := url.Values{}
	params.Add("client_id", fb.cfg.ClientID)
	params.Add("redirect_uri", fb.cfg.RedirectURI)
	params.Add("response_type", "code")
	params.Add("scope", "pages_show_list,pages_read_engagement,pages_manage_posts")
	params.Add("state", state)
	return fb.cfg.AuthURL + "?" + params.Encode()
}

// ExchangeCode redeems the code and looks up the user id, which the
// Facebook token endpoint does not return.
func (fb *FacebookClient) ExchangeCode(ctx context.Context, code, _ string) (*ShortLivedToken, error) {
	if code == "" {
		return nil, ErrMissingCode
	}

	params := url.Values{}
	params.Add("client_id", fb.cfg.ClientID)
	params.Add("client_secret", fb.cfg.ClientSecret)
	params.Add("redirect_uri", fb.cfg.RedirectURI)
	params.Add("code", code)

	var token transfer.MetaLongLivedToken
	if err := fb.api.getJSON(ctx, StageShortLivedToken, fb.cfg.TokenURL, params, nil, &token); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, fb.api.malformed(StageShortLivedToken, "access_token")
	}

	profile, err := fb.Profile(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	return &ShortLivedToken{
		ExternalID:  profile.ID,
		AccessToken: token.AccessToken,
		ExpiresAt:   expiresAt(token.ExpiresIn, shortLivedTTL),
	}, nil
}

func (fb *FacebookClient) ExtendToken(ctx context.Context, short *ShortLivedToken) (*LongLivedToken, error) {
	return fb.exchange(ctx, StageLongLivedToken, short.AccessToken)
}

// Refresh re-runs the fb_exchange_token grant, which Facebook accepts for
// long-lived tokens that have not yet expired.
func (fb *FacebookClient) Refresh(ctx context.Context, cred *models.AccountCredential) (*LongLivedToken, error) {
	if err := requireLongLived(cred); err != nil {
		return nil, err
	}
	return fb.exchange(ctx, StageRefreshToken, cred.LongLivedToken)
}

func (fb *FacebookClient) exchange(ctx context.Context, stage Stage, token string) (*LongLivedToken, error) {
	params := url.Values{}
	params.Add("grant_type", "fb_exchange_token")
	params.Add("client_id", fb.cfg.ClientID)
	params.Add("client_secret", fb.cfg.ClientSecret)
	params.Add("fb_exchange_token", token)

	var result transfer.MetaLongLivedToken
	err := fb.api.retry(ctx, func() error {
		return fb.api.getJSON(ctx, stage, fb.cfg.TokenURL, params, nil, &result)
	})
	if err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, fb.api.malformed(stage, "access_token")
	}
	return &LongLivedToken{
		AccessToken: result.AccessToken,
		ExpiresAt:   expiresAt(result.ExpiresIn, longLivedTTL),
	}, nil
}

func (fb *FacebookClient) Profile(ctx context.Context, accessToken string) (*Profile, error) {
	params := url.Values{}
	params.Add("fields", "id,name,picture")
	params.Add("access_token", accessToken)

	var user transfer.FacebookUser
	err := fb.api.retry(ctx, func() error {
		return fb.api.getJSON(ctx, StageProfile, fb.graph("me"), params, nil, &user)
	})
	if err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fb.api.malformed(StageProfile, "id")
	}
	return &Profile{
		ID:         string(user.ID),
		Name:       user.Name,
		PictureURL: user.Picture.Data.URL,
	}, nil
}

func (fb *FacebookClient) Publish(ctx context.Context, cred *models.AccountCredential, req PublishRequest) (string, error) {
	if err := requireLongLived(cred); err != nil {
		return "", err
	}

	pageID, pageToken, err := fb.page(ctx, cred.LongLivedToken)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Add("access_token", pageToken)

	var edge string
	switch {
	case req.MediaURL == "":
		edge = "feed"
		form.Add("message", req.Caption)
	case req.MediaKind == models.MediaKindVideo:
		edge = "videos"
		form.Add("file_url", req.MediaURL)
		form.Add("description", req.Caption)
	default:
		edge = "photos"
		form.Add("url", req.MediaURL)
		form.Add("caption", req.Caption)
	}

	var result transfer.MetaObjectID
	if err := fb.api.postForm(ctx, StagePublish, fb.graph(pageID, edge), form, nil, &result); err != nil {
		return "", err
	}
	if result.PostID != "" {
		return result.PostID, nil
	}
	if result.ID == "" {
		return "", fb.api.malformed(StagePublish, "id")
	}
	return string(result.ID), nil
}

// page returns the first page managed by the user together with its page token.
func (fb *FacebookClient) page(ctx context.Context, userToken string) (string, string, error) {
	params := url.Values{}
	params.Add("fields", "id,name,access_token")
	params.Add("access_token", userToken)

	var pages transfer.FacebookPages
	err := fb.api.retry(ctx, func() error {
		return fb.api.getJSON(ctx, StagePageToken, fb.graph("me", "accounts"), params, nil, &pages)
	})
	if err != nil {
		return "", "", err
	}
	if len(pages.Data) == 0 || pages.Data[0].AccessToken == "" {
		return "", "", fb.api.failure(StagePageToken, 200, nil, errNoPage)
	}
	return string(pages.Data[0].ID), pages.Data[0].AccessToken, nil
}

func (fb *FacebookClient) graph(path ...string) string {
	return fb.cfg.GraphURL + "/" + fb.cfg.GraphVersion + "/" + strings.Join(path, "/")
}

