package platforms

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/maheshrc27/postsphere/internal/models"
	"github.com/maheshrc27/postsphere/internal/transfer"
)

type TikTokConfig struct {
	ClientKey    string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	APIURL       string
	// PrivacyLevel is used when the creator allows it, otherwise the first
	// option the creator-info query returns.
	PrivacyLevel string
}

type TikTokClient struct {
	cfg TikTokConfig
	api *apiClient
}

func NewTikTok(cfg TikTokConfig, opts Options) *TikTokClient {
	cfg.AuthURL = orDefault(cfg.AuthURL, "https://www.tiktok.com/v2/auth/authorize/")
	cfg.APIURL = strings.TrimRight(orDefault(cfg.APIURL, "https://open.tiktokapis.com"), "/")
	cfg.PrivacyLevel = orDefault(cfg.PrivacyLevel, "SELF_ONLY")
	return &TikTokClient{cfg: cfg, api: newAPIClient(TikTok, opts)}
}

func (tt *TikTokClient) Platform() Platform {
	return TikTok
}

func (tt *TikTokClient) AuthURL(state string) string {
	params := url.Values{}
	params.Add("client_key", tt.cfg.ClientKey)
	params.Add("scope", "user.info.basic,user.info.profile,video.publish,video.upload")
	params.Add("response_type", "code")
	params.Add("redirect_uri", tt.cfg.RedirectURI)
	params.Add("state", state)
	return tt.cfg.AuthURL + "?" + params.Encode()
}

func (tt *TikTokClient) ExchangeCode(ctx context.Context, code, _ string) (*ShortLivedToken, error) {
	if code == "" {
		return nil, ErrMissingCode
	}

	form := url.Values{}
	form.Add("client_key", tt.cfg.ClientKey)
	form.Add("client_secret", tt.cfg.ClientSecret)
	form.Add("code", code)
	form.Add("grant_type", "authorization_code")
	form.Add("redirect_uri", tt.cfg.RedirectURI)

	token, err := tt.token(ctx, StageShortLivedToken, form)
	if err != nil {
		return nil, err
	}
	if token.OpenID == "" {
		return nil, tt.api.malformed(StageShortLivedToken, "open_id")
	}
	return &ShortLivedToken{
		ExternalID:   token.OpenID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiresAt(token.ExpiresIn, 24*time.Hour),
	}, nil
}

// ExtendToken makes no call: the TikTok access token is already the token
// used for publishing and is kept alive with its refresh token.
func (tt *TikTokClient) ExtendToken(_ context.Context, short *ShortLivedToken) (*LongLivedToken, error) {
	return &LongLivedToken{
		AccessToken:  short.AccessToken,
		RefreshToken: short.RefreshToken,
		ExpiresAt:    short.ExpiresAt,
	}, nil
}

func (tt *TikTokClient) Refresh(ctx context.Context, cred *models.AccountCredential) (*LongLivedToken, error) {
	if cred == nil || cred.RefreshToken == "" {
		return nil, ErrNotAuthorized
	}

	form := url.Values{}
	form.Add("client_key", tt.cfg.ClientKey)
	form.Add("client_secret", tt.cfg.ClientSecret)
	form.Add("grant_type", "refresh_token")
	form.Add("refresh_token", cred.RefreshToken)

	var token *transfer.TiktokTokenResponse
	err := tt.api.retry(ctx, func() error {
		var err error
		token, err = tt.token(ctx, StageRefreshToken, form)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &LongLivedToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiresAt(token.ExpiresIn, 24*time.Hour),
	}, nil
}

func (tt *TikTokClient) token(ctx context.Context, stage Stage, form url.Values) (*transfer.TiktokTokenResponse, error) {
	var result transfer.TiktokTokenResponse
	if err := tt.api.postForm(ctx, stage, tt.cfg.APIURL+"/v2/oauth/token/", form, nil, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, tt.api.failure(stage, 200, []byte(result.Error+": "+result.ErrorDescription), errors.New(result.Error))
	}
	if result.AccessToken == "" {
		return nil, tt.api.malformed(stage, "access_token")
	}
	return &result, nil
}

func (tt *TikTokClient) Profile(ctx context.Context, accessToken string) (*Profile, error) {
	params := url.Values{}
	params.Add("fields", "open_id,avatar_url,display_name,username")

	var result transfer.TikTokResponse
	err := tt.api.retry(ctx, func() error {
		return tt.api.getJSON(ctx, StageProfile, tt.cfg.APIURL+"/v2/user/info/", params, bearer(accessToken), &result)
	})
	if err != nil {
		return nil, err
	}
	if result.Error.Failed() {
		return nil, tt.envelopeError(StageProfile, result.Error)
	}
	user := result.Data.User
	return &Profile{
		ID:         user.OpenID,
		Username:   user.Username,
		Name:       user.DisplayName,
		PictureURL: user.AvatarURL,
	}, nil
}

// Publish queries the creator's posting options, then initialises a direct
// post that TikTok pulls from the media URL.
func (tt *TikTokClient) Publish(ctx context.Context, cred *models.AccountCredential, req PublishRequest) (string, error) {
	if err := requireLongLived(cred); err != nil {
		return "", err
	}
	if req.MediaURL == "" {
		return "", ErrUnsupportedContent
	}

	var creator transfer.TiktokCreatorInfoResponse
	err := tt.api.postJSON(ctx, StageCreatorInfo, tt.cfg.APIURL+"/v2/post/publish/creator_info/query/",
		struct{}{}, bearer(cred.LongLivedToken), &creator)
	if err != nil {
		return "", err
	}
	if creator.Error.Failed() {
		return "", tt.envelopeError(StageCreatorInfo, creator.Error)
	}

	privacy := tt.cfg.PrivacyLevel
	options := creator.Data.PrivacyLevelOptions
	if len(options) > 0 && !slices.Contains(options, privacy) {
		privacy = options[0]
	}

	var (
		endpoint string
		payload  any
	)
	if req.MediaKind == models.MediaKindVideo {
		endpoint = "/v2/post/publish/video/init/"
		payload = transfer.VideoUploadRequest{
			PostInfo: transfer.VideoPostInfo{
				Title:                 req.Caption,
				PrivacyLevel:          privacy,
				DisableDuet:           creator.Data.DuetDisabled,
				DisableComment:        creator.Data.CommentDisabled,
				DisableStitch:         creator.Data.StitchDisabled,
				VideoCoverTimestampMs: 1000,
			},
			SourceInfo: transfer.VideoSourceInfo{
				Source:   "PULL_FROM_URL",
				VideoURL: req.MediaURL,
			},
		}
	} else {
		endpoint = "/v2/post/publish/content/init/"
		payload = transfer.PhotoUploadRequest{
			PostInfo: transfer.PhotoPostInfo{
				Description:    req.Caption,
				PrivacyLevel:   privacy,
				DisableComment: creator.Data.CommentDisabled,
				AutoAddMusic:   true,
			},
			SourceInfo: transfer.PhotoSourceInfo{
				Source:          "PULL_FROM_URL",
				PhotoCoverIndex: 0,
				PhotoImages:     []string{req.MediaURL},
			},
			PostMode:  "DIRECT_POST",
			MediaType: "PHOTO",
		}
	}

	var result transfer.TikTokUploadResponse
	if err := tt.api.postJSON(ctx, StagePublish, tt.cfg.APIURL+endpoint, payload, bearer(cred.LongLivedToken), &result); err != nil {
		return "", err
	}
	if result.Error.Failed() {
		return "", tt.envelopeError(StagePublish, result.Error)
	}
	if result.Data.PublishID == "" {
		return "", tt.api.malformed(StagePublish, "publish_id")
	}
	return result.Data.PublishID, nil
}

func (tt *TikTokClient) Revoke(ctx context.Context, cred *models.AccountCredential) error {
	if !cred.Authorized() {
		return nil
	}
	form := url.Values{}
	form.Add("client_key", tt.cfg.ClientKey)
	form.Add("client_secret", tt.cfg.ClientSecret)
	form.Add("token", cred.LongLivedToken)
	return tt.api.postForm(ctx, StageRevoke, tt.cfg.APIURL+"/v2/oauth/revoke/", form, nil, nil)
}

func (tt *TikTokClient) envelopeError(stage Stage, e transfer.TiktokError) error {
	return tt.api.failure(stage, 200, []byte(e.Code+": "+e.Message), errors.New(e.Code))
}
