package platforms

import (
	"context"
	"net/url"

	"github.com/maheshrc27/postsphere/internal/models"
	"github.com/maheshrc27/postsphere/internal/transfer"
)

type ThreadsClient struct {
	*metaOAuth
}

func NewThreads(cfg MetaConfig, opts Options) *ThreadsClient {
	cfg.applyDefaults("v1.0",
		"https://threads.net/oauth/authorize",
		"https://graph.threads.net/oauth/access_token",
		"https://graph.threads.net")
	return &ThreadsClient{&metaOAuth{
		cfg: cfg,
		grants: metaGrants{
			exchange: "th_exchange_token",
			refresh:  "th_refresh_token",
			scopes:   []string{"threads_basic", "threads_content_publish"},
		},
		api: newAPIClient(Threads, opts),
	}}
}

func (th *ThreadsClient) Platform() Platform {
	return Threads
}

func (th *ThreadsClient) Profile(ctx context.Context, accessToken string) (*Profile, error) {
	params := url.Values{}
	params.Add("fields", "id,username,name,threads_profile_picture_url")
	params.Add("access_token", accessToken)

	var info transfer.ThreadsUserInfo
	err := th.api.retry(ctx, func() error {
		return th.api.getJSON(ctx, StageProfile, th.graph("me"), params, nil, &info)
	})
	if err != nil {
		return nil, err
	}
	return &Profile{
		ID:         string(info.ID),
		Username:   info.Username,
		Name:       info.Name,
		PictureURL: info.ProfilePicture,
	}, nil
}

func (th *ThreadsClient) Publish(ctx context.Context, cred *models.AccountCredential, req PublishRequest) (string, error) {
	if err := requireLongLived(cred); err != nil {
		return "", err
	}

	form := url.Values{}
	form.Add("text", req.Caption)
	form.Add("access_token", cred.LongLivedToken)
	switch {
	case req.MediaURL == "":
		form.Add("media_type", "TEXT")
	case req.MediaKind == models.MediaKindVideo:
		form.Add("media_type", "VIDEO")
		form.Add("video_url", req.MediaURL)
	default:
		form.Add("media_type", "IMAGE")
		form.Add("image_url", req.MediaURL)
	}

	var container transfer.MetaObjectID
	if err := th.api.postForm(ctx, StageCreateContainer, th.graph(cred.ExternalID, "threads"), form, nil, &container); err != nil {
		return "", err
	}
	if container.ID == "" {
		return "", th.api.malformed(StageCreateContainer, "id")
	}

	if req.MediaKind == models.MediaKindVideo && req.MediaURL != "" {
		if err := th.waitForContainer(ctx, cred.LongLivedToken, string(container.ID), "status"); err != nil {
			return "", err
		}
	}

	confirm := url.Values{}
	confirm.Add("creation_id", string(container.ID))
	confirm.Add("access_token", cred.LongLivedToken)

	var published transfer.MetaObjectID
	if err := th.api.postForm(ctx, StagePublishContainer, th.graph(cred.ExternalID, "threads_publish"), confirm, nil, &published); err != nil {
		return "", err
	}
	if published.ID == "" {
		return "", th.api.malformed(StagePublishContainer, "id")
	}
	return string(published.ID), nil
}
