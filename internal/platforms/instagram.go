package platforms

import (
	"context"
	"net/url"

	"github.com/maheshrc27/postsphere/internal/models"
	"github.com/maheshrc27/postsphere/internal/transfer"
)

type InstagramClient struct {
	*metaOAuth
}

func NewInstagram(cfg MetaConfig, opts Options) *InstagramClient {
	cfg.applyDefaults("v22.0",
		"https://www.instagram.com/oauth/authorize",
		"https://api.instagram.com/oauth/access_token",
		"https://graph.instagram.com")
	return &InstagramClient{&metaOAuth{
		cfg: cfg,
		grants: metaGrants{
			exchange: "ig_exchange_token",
			refresh:  "ig_refresh_token",
			scopes:   []string{"instagram_business_basic", "instagram_business_content_publish"},
		},
		api: newAPIClient(Instagram, opts),
	}}
}

func (ig *InstagramClient) Platform() Platform {
	return Instagram
}

func (ig *InstagramClient) Profile(ctx context.Context, accessToken string) (*Profile, error) {
	params := url.Values{}
	params.Add("fields", "user_id,username,name,profile_picture_url")
	params.Add("access_token", accessToken)

	var info transfer.InstagramUserInfo
	err := ig.api.retry(ctx, func() error {
		return ig.api.getJSON(ctx, StageProfile, ig.graph("me"), params, nil, &info)
	})
	if err != nil {
		return nil, err
	}

	id := info.UserID
	if id == "" {
		id = info.ID
	}
	return &Profile{
		ID:         string(id),
		Username:   info.Username,
		Name:       info.Name,
		PictureURL: info.ProfilePicture,
	}, nil
}

// Publish creates a media container for the asset and confirms it. Instagram
// does not accept text-only posts.
func (ig *InstagramClient) Publish(ctx context.Context, cred *models.AccountCredential, req PublishRequest) (string, error) {
	if err := requireLongLived(cred); err != nil {
		return "", err
	}
	if req.MediaURL == "" {
		return "", ErrUnsupportedContent
	}

	payload := map[string]string{
		"caption":      req.Caption,
		"access_token": cred.LongLivedToken,
	}
	if req.MediaKind == models.MediaKindVideo {
		payload["media_type"] = "REELS"
		payload["video_url"] = req.MediaURL
	} else {
		payload["image_url"] = req.MediaURL
	}

	var container transfer.MetaObjectID
	if err := ig.api.postJSON(ctx, StageCreateContainer, ig.graph(cred.ExternalID, "media"), payload, nil, &container); err != nil {
		return "", err
	}
	if container.ID == "" {
		return "", ig.api.malformed(StageCreateContainer, "id")
	}

	if req.MediaKind == models.MediaKindVideo {
		if err := ig.waitForContainer(ctx, cred.LongLivedToken, string(container.ID), "status_code"); err != nil {
			return "", err
		}
	}

	confirm := map[string]string{
		"creation_id":  string(container.ID),
		"access_token": cred.LongLivedToken,
	}
	var published transfer.MetaObjectID
	if err := ig.api.postJSON(ctx, StagePublishContainer, ig.graph(cred.ExternalID, "media_publish"), confirm, nil, &published); err != nil {
		return "", err
	}
	if published.ID == "" {
		return "", ig.api.malformed(StagePublishContainer, "id")
	}
	return string(published.ID), nil
}
