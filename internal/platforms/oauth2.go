package platforms

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/maheshrc27/postsphere/internal/models"
	"github.com/maheshrc27/postsphere/internal/transfer"
)

// OAuth2Config configures the providers that follow the standard
// authorization code grant (Twitter and LinkedIn).
type OAuth2Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	APIURL       string
	// VerifierKey derives the PKCE verifier from the signed state, so the
	// callback can recompute it without server-side storage.
	VerifierKey []byte
}

// oauth2Flow wraps golang.org/x/oauth2 for code exchange and refresh.
type oauth2Flow struct {
	conf        *oauth2.Config
	api         *apiClient
	pkce        bool
	verifierKey []byte
	identify    func(ctx context.Context, accessToken string) (*Profile, error)
}

func (f *oauth2Flow) AuthURL(state string) string {
	if f.pkce {
		return f.conf.AuthCodeURL(state, oauth2.S256ChallengeOption(f.verifier(state)))
	}
	return f.conf.AuthCodeURL(state)
}

func (f *oauth2Flow) ExchangeCode(ctx context.Context, code, state string) (*ShortLivedToken, error) {
	if code == "" {
		return nil, ErrMissingCode
	}

	var opts []oauth2.AuthCodeOption
	if f.pkce {
		opts = append(opts, oauth2.VerifierOption(f.verifier(state)))
	}
	token, err := f.conf.Exchange(f.clientContext(ctx), code, opts...)
	if err != nil {
		return nil, f.tokenError(StageShortLivedToken, err)
	}

	profile, err := f.identify(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	return &ShortLivedToken{
		ExternalID:   profile.ID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}, nil
}

// ExtendToken makes no call: code exchange already yields the token pair.
func (f *oauth2Flow) ExtendToken(_ context.Context, short *ShortLivedToken) (*LongLivedToken, error) {
	return &LongLivedToken{
		AccessToken:  short.AccessToken,
		RefreshToken: short.RefreshToken,
		ExpiresAt:    short.ExpiresAt,
	}, nil
}

func (f *oauth2Flow) Refresh(ctx context.Context, cred *models.AccountCredential) (*LongLivedToken, error) {
	if cred == nil || cred.RefreshToken == "" {
		return nil, ErrNotAuthorized
	}

	var token *oauth2.Token
	err := f.api.retry(ctx, func() error {
		src := f.conf.TokenSource(f.clientContext(ctx), &oauth2.Token{RefreshToken: cred.RefreshToken})
		t, err := src.Token()
		if err != nil {
			return f.tokenError(StageRefreshToken, err)
		}
		token = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	refresh := token.RefreshToken
	if refresh == "" {
		refresh = cred.RefreshToken
	}
	return &LongLivedToken{
		AccessToken:  token.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    token.Expiry,
	}, nil
}

func (f *oauth2Flow) Profile(ctx context.Context, accessToken string) (*Profile, error) {
	return f.identify(ctx, accessToken)
}

func (f *oauth2Flow) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, f.api.http)
}

func (f *oauth2Flow) verifier(state string) string {
	mac := hmac.New(sha256.New, f.verifierKey)
	mac.Write([]byte(state))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (f *oauth2Flow) tokenError(stage Stage, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return f.api.failure(stage, retrieveErr.Response.StatusCode, retrieveErr.Body, err)
	}
	return f.api.failure(stage, 0, nil, err)
}

type TwitterClient struct {
	*oauth2Flow
	apiURL string
}

func NewTwitter(cfg OAuth2Config, opts Options) *TwitterClient {
	tw := &TwitterClient{apiURL: strings.TrimRight(orDefault(cfg.APIURL, "https://api.x.com"), "/")}
	tw.oauth2Flow = &oauth2Flow{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"tweet.read", "tweet.write", "users.read", "offline.access"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   orDefault(cfg.AuthURL, "https://x.com/i/oauth2/authorize"),
				TokenURL:  orDefault(cfg.TokenURL, "https://api.x.com/2/oauth2/token"),
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		api:         newAPIClient(Twitter, opts),
		pkce:        true,
		verifierKey: cfg.VerifierKey,
		identify:    tw.me,
	}
	return tw
}

func (tw *TwitterClient) Platform() Platform {
	return Twitter
}

func (tw *TwitterClient) me(ctx context.Context, accessToken string) (*Profile, error) {
	params := url.Values{}
	params.Add("user.fields", "profile_image_url")

	var user transfer.TwitterUser
	err := tw.api.retry(ctx, func() error {
		return tw.api.getJSON(ctx, StageProfile, tw.apiURL+"/2/users/me", params, bearer(accessToken), &user)
	})
	if err != nil {
		return nil, err
	}
	if user.Data.ID == "" {
		return nil, tw.api.malformed(StageProfile, "id")
	}
	return &Profile{
		ID:         user.Data.ID,
		Username:   user.Data.Username,
		Name:       user.Data.Name,
		PictureURL: user.Data.ProfileImageURL,
	}, nil
}

// Publish posts a tweet. Media is linked in the text since media upload
// requires the v1.1 API.
func (tw *TwitterClient) Publish(ctx context.Context, cred *models.AccountCredential, req PublishRequest) (string, error) {
	if err := requireLongLived(cred); err != nil {
		return "", err
	}

	text := req.Caption
	if req.MediaURL != "" {
		text = strings.TrimSpace(text + " " + req.MediaURL)
	}

	var result transfer.TweetResponse
	err := tw.api.postJSON(ctx, StagePublish, tw.apiURL+"/2/tweets", transfer.TweetRequest{Text: text}, bearer(cred.LongLivedToken), &result)
	if err != nil {
		return "", err
	}
	if result.Data.ID == "" {
		return "", tw.api.malformed(StagePublish, "id")
	}
	return result.Data.ID, nil
}

type LinkedInClient struct {
	*oauth2Flow
	apiURL string
}

func NewLinkedIn(cfg OAuth2Config, opts Options) *LinkedInClient {
	li := &LinkedInClient{apiURL: strings.TrimRight(orDefault(cfg.APIURL, "https://api.linkedin.com"), "/")}
	li.oauth2Flow = &oauth2Flow{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"openid", "profile", "w_member_social"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   orDefault(cfg.AuthURL, "https://www.linkedin.com/oauth/v2/authorization"),
				TokenURL:  orDefault(cfg.TokenURL, "https://www.linkedin.com/oauth/v2/accessToken"),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		api:      newAPIClient(LinkedIn, opts),
		identify: li.userInfo,
	}
	return li
}

func (li *LinkedInClient) Platform() Platform {
	return LinkedIn
}

func (li *LinkedInClient) userInfo(ctx context.Context, accessToken string) (*Profile, error) {
	var info transfer.LinkedInUserInfo
	err := li.api.retry(ctx, func() error {
		return li.api.getJSON(ctx, StageProfile, li.apiURL+"/v2/userinfo", nil, bearer(accessToken), &info)
	})
	if err != nil {
		return nil, err
	}
	if info.Sub == "" {
		return nil, li.api.malformed(StageProfile, "sub")
	}
	return &Profile{ID: info.Sub, Name: info.Name, PictureURL: info.Picture}, nil
}

func (li *LinkedInClient) Publish(ctx context.Context, cred *models.AccountCredential, req PublishRequest) (string, error) {
	if err := requireLongLived(cred); err != nil {
		return "", err
	}

	content := transfer.LinkedInShareContent{
		ShareCommentary:    transfer.LinkedInText{Text: req.Caption},
		ShareMediaCategory: "NONE",
	}
	if req.MediaURL != "" {
		content.ShareMediaCategory = "ARTICLE"
		content.Media = []transfer.LinkedInMedia{{Status: "READY", OriginalURL: req.MediaURL}}
	}
	share := transfer.LinkedInShareRequest{
		Author:          "urn:li:person:" + cred.ExternalID,
		LifecycleState:  "PUBLISHED",
		SpecificContent: transfer.LinkedInSpecificContent{ShareContent: content},
		Visibility:      map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}

	header := bearer(cred.LongLivedToken)
	header.Set("X-Restli-Protocol-Version", "2.0.0")

	var result transfer.LinkedInShareResponse
	if err := li.api.postJSON(ctx, StagePublish, li.apiURL+"/v2/ugcPosts", share, header, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", li.api.malformed(StagePublish, "id")
	}
	return result.ID, nil
}
