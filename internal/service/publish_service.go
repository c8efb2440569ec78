package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/postsphere/internal/events"
	"github.com/maheshrc27/postsphere/internal/models"
	"github.com/maheshrc27/postsphere/internal/platforms"
	"github.com/maheshrc27/postsphere/internal/repository"
)

// CredentialSource hands out a usable credential for an external account.
// tokenstore.Refresher implements it.
type CredentialSource interface {
	Credential(ctx context.Context, platform, externalID string) (*models.AccountCredential, error)
}

type PublishService interface {
	// PublishPost publishes a post to its account. Publishing a post that is
	// already published returns it unchanged.
	PublishPost(ctx context.Context, postID int64) (*models.Post, error)
	// PublishNow is PublishPost on behalf of a user.
	PublishNow(ctx context.Context, userID, postID int64) (*models.Post, error)
}

type publishService struct {
	pr        repository.PostRepository
	ac        repository.SocialAccountRepository
	ph        repository.PostingHistoryRepository
	orgs      OrganizationService
	providers ProviderRegistry
	creds     CredentialSource
	events    events.Publisher
	now       func() time.Time
}

func NewPublishService(
	pr repository.PostRepository,
	ac repository.SocialAccountRepository,
	ph repository.PostingHistoryRepository,
	orgs OrganizationService,
	providers ProviderRegistry,
	creds CredentialSource,
	ev events.Publisher) PublishService {
	return &publishService{
		pr:        pr,
		ac:        ac,
		ph:        ph,
		orgs:      orgs,
		providers: providers,
		creds:     creds,
		events:    ev,
		now:       time.Now,
	}
}

func (s *publishService) PublishNow(ctx context.Context, userID, postID int64) (*models.Post, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, notFound("post", postID)
	}
	account, err := s.ac.GetByID(ctx, post.SocialAccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, notFound("social account", post.SocialAccountID)
	}
	if err := s.orgs.Authorize(ctx, userID, account.OrganizationID); err != nil {
		return nil, err
	}
	return s.PublishPost(ctx, postID)
}

func (s *publishService) PublishPost(ctx context.Context, postID int64) (*models.Post, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, notFound("post", postID)
	}
	if post.Status == models.PostStatusPublished {
		return post, nil
	}

	claimed, err := s.pr.Claim(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		current, err := s.pr.GetByID(ctx, postID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, notFound("post", postID)
		}
		if current.Status == models.PostStatusPublished {
			return current, nil
		}
		return nil, fmt.Errorf("%w: post %d is being published", ErrConflict, postID)
	}

	account, err := s.ac.GetByID(ctx, post.SocialAccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, s.fail(ctx, post, &models.SocialAccount{ID: post.SocialAccountID}, notFound("social account", post.SocialAccountID))
	}

	platformPostID, err := s.publish(ctx, post, account)
	if err != nil {
		return nil, s.fail(ctx, post, account, err)
	}

	publishedAt := s.now().UTC()
	if err := s.pr.MarkPublished(ctx, post.ID, platformPostID, publishedAt); err != nil {
		// The platform already holds the post.
		slog.Error("post published but not recorded", "post_id", post.ID, "platform_post_id", platformPostID, "error", err)
	}
	post.Status = models.PostStatusPublished
	post.PlatformPostID = platformPostID
	post.PublishedTime = &publishedAt
	post.ErrorMessage = ""

	s.record(ctx, post, account, platformPostID, "")
	if err := s.events.PostPublished(ctx, events.PostEvent{
		PostID:         post.ID,
		AccountID:      account.ID,
		Platform:       account.Platform,
		PlatformPostID: platformPostID,
		OccurredAt:     publishedAt,
	}); err != nil {
		slog.Info(err.Error())
	}

	slog.Info("post published", "post_id", post.ID, "platform", account.Platform, "platform_post_id", platformPostID)
	return post, nil
}

func (s *publishService) publish(ctx context.Context, post *models.Post, account *models.SocialAccount) (string, error) {
	provider, err := s.providers.Lookup(account.Platform)
	if err != nil {
		return "", err
	}

	cred, err := s.creds.Credential(ctx, account.Platform, account.AccountID)
	if err != nil {
		if errors.Is(err, platforms.ErrNotAuthorized) {
			if serr := s.ac.SetStatus(ctx, account.Platform, account.AccountID, models.AccountStatusExpired); serr != nil {
				slog.Info(serr.Error())
			}
		}
		return "", err
	}

	return provider.Publish(ctx, cred, platforms.PublishRequest{
		Caption:   post.Content,
		MediaURL:  post.MediaURL,
		MediaKind: post.MediaKind,
	})
}

// fail records a failed attempt and returns err.
func (s *publishService) fail(ctx context.Context, post *models.Post, account *models.SocialAccount, err error) error {
	slog.Info("post publish failed", "post_id", post.ID, "platform", account.Platform, "stage", platforms.StageOf(err), "error", err)

	if merr := s.pr.MarkFailed(ctx, post.ID, err.Error()); merr != nil && !errors.Is(merr, repository.ErrNotFound) {
		slog.Info(merr.Error())
	}
	s.record(ctx, post, account, "", err.Error())
	if eerr := s.events.PostFailed(ctx, events.PostEvent{
		PostID:     post.ID,
		AccountID:  account.ID,
		Platform:   account.Platform,
		Stage:      string(platforms.StageOf(err)),
		Error:      err.Error(),
		OccurredAt: s.now().UTC(),
	}); eerr != nil {
		slog.Info(eerr.Error())
	}
	return fmt.Errorf("publish post %d: %w", post.ID, err)
}

func (s *publishService) record(ctx context.Context, post *models.Post, account *models.SocialAccount, platformPostID, message string) {
	_, err := s.ph.Create(ctx, &models.PostingHistory{
		UserID:         post.AuthorID,
		PostID:         post.ID,
		AccountID:      account.ID,
		PlatformPostID: platformPostID,
		ErrorMessage:   message,
	})
	if err != nil {
		slog.Info(err.Error())
	}
}
