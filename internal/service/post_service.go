package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/postsphere/internal/models"
	"github.com/maheshrc27/postsphere/internal/platforms"
	"github.com/maheshrc27/postsphere/internal/queue"
	"github.com/maheshrc27/postsphere/internal/repository"
	"github.com/maheshrc27/postsphere/internal/transfer"
)

// scheduleTolerance is how far in the past a scheduled time may lie; such
// posts are published right away.
const scheduleTolerance = time.Minute

type PostService interface {
	// Create stores a draft, or a scheduled post when a time is given.
	Create(ctx context.Context, userID int64, pc *transfer.PostCreation) (*models.Post, error)
	List(ctx context.Context, userID int64, page transfer.Page) ([]*models.Post, error)
	Get(ctx context.Context, userID, postID int64) (*models.Post, error)
	Schedule(ctx context.Context, userID, postID int64, at time.Time) (*models.Post, error)
	Remove(ctx context.Context, userID, postID int64) error
	History(ctx context.Context, userID, postID int64) ([]*models.PostingHistory, error)
}

type postService struct {
	pr       repository.PostRepository
	ac       repository.SocialAccountRepository
	ph       repository.PostingHistoryRepository
	orgs     OrganizationService
	enqueuer queue.Enqueuer
	now      func() time.Time
}

func NewPostService(
	pr repository.PostRepository,
	ac repository.SocialAccountRepository,
	ph repository.PostingHistoryRepository,
	orgs OrganizationService,
	enqueuer queue.Enqueuer) PostService {
	return &postService{
		pr:       pr,
		ac:       ac,
		ph:       ph,
		orgs:     orgs,
		enqueuer: enqueuer,
		now:      time.Now,
	}
}

func (s *postService) Create(ctx context.Context, userID int64, pc *transfer.PostCreation) (*models.Post, error) {
	account, err := s.account(ctx, userID, pc.SocialAccountID)
	if err != nil {
		return nil, err
	}
	if err := CheckContent(platforms.Platform(account.Platform), pc.Content, pc.MediaURL, pc.MediaKind); err != nil {
		return nil, err
	}

	post := &models.Post{
		AuthorID:        userID,
		SocialAccountID: account.ID,
		Content:         pc.Content,
		MediaURL:        pc.MediaURL,
		MediaKind:       pc.MediaKind,
		Status:          models.PostStatusDraft,
	}
	if pc.ScheduledTime != nil {
		if err := s.checkScheduleTime(*pc.ScheduledTime); err != nil {
			return nil, err
		}
		at := pc.ScheduledTime.UTC()
		post.ScheduledTime = &at
		post.Status = models.PostStatusScheduled
	}

	id, err := s.pr.Create(ctx, nil, post)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	post.ID = id
	if post.ScheduledTime == nil {
		return post, nil
	}

	// The post must be committed before its task exists.
	if err := s.enqueuer.SchedulePost(ctx, id, *post.ScheduledTime); err != nil {
		if _, rmErr := s.pr.Remove(ctx, id); rmErr != nil {
			slog.Error("failed to remove unscheduled post", "post_id", id, "error", rmErr)
		}
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

func (s *postService) List(ctx context.Context, userID int64, page transfer.Page) ([]*models.Post, error) {
	offset, limit := pageBounds(page)
	return s.pr.ListForUser(ctx, userID, offset, limit)
}

func (s *postService) Get(ctx context.Context, userID, postID int64) (*models.Post, error) {
	post, _, err := s.post(ctx, userID, postID)
	return post, err
}

func (s *postService) Schedule(ctx context.Context, userID, postID int64, at time.Time) (*models.Post, error) {
	post, _, err := s.post(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	switch post.Status {
	case models.PostStatusPublished:
		return nil, fmt.Errorf("%w: post %d is already published", ErrConflict, postID)
	case models.PostStatusPublishing:
		return nil, fmt.Errorf("%w: post %d is being published", ErrConflict, postID)
	}
	if err := s.checkScheduleTime(at); err != nil {
		return nil, err
	}

	at = at.UTC()
	if err := s.pr.Schedule(ctx, postID, at); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: post %d is published or being published", ErrConflict, postID)
		}
		return nil, err
	}
	if err := s.enqueuer.SchedulePost(ctx, postID, at); err != nil {
		if mfErr := s.pr.MarkFailed(ctx, postID, "could not be scheduled: "+err.Error()); mfErr != nil {
			slog.Error("failed to mark post failed", "post_id", postID, "error", mfErr)
		}
		return nil, err
	}

	post.Status = models.PostStatusScheduled
	post.ScheduledTime = &at
	post.ErrorMessage = ""
	return post, nil
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	post, _, err := s.post(ctx, userID, postID)
	if err != nil {
		return err
	}
	if post.Status == models.PostStatusPublished || post.Status == models.PostStatusPublishing {
		return fmt.Errorf("%w: published posts cannot be deleted", ErrConflict)
	}

	removed, err := s.pr.Remove(ctx, postID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%w: published posts cannot be deleted", ErrConflict)
	}
	return nil
}

func (s *postService) History(ctx context.Context, userID, postID int64) ([]*models.PostingHistory, error) {
	if _, _, err := s.post(ctx, userID, postID); err != nil {
		return nil, err
	}
	return s.ph.ListByPost(ctx, postID)
}

func (s *postService) checkScheduleTime(at time.Time) error {
	if at.IsZero() {
		return invalidf("scheduled_time is required")
	}
	if at.Before(s.now().Add(-scheduleTolerance)) {
		return invalidf("scheduled_time %s is in the past", at.Format(time.RFC3339))
	}
	return nil
}

// post loads a post the user may access through its account's organization.
func (s *postService) post(ctx context.Context, userID, postID int64) (*models.Post, *models.SocialAccount, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, nil, err
	}
	if post == nil {
		return nil, nil, notFound("post", postID)
	}
	account, err := s.account(ctx, userID, post.SocialAccountID)
	if err != nil {
		return nil, nil, err
	}
	return post, account, nil
}

func (s *postService) account(ctx context.Context, userID, accountID int64) (*models.SocialAccount, error) {
	account, err := s.ac.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, notFound("social account", accountID)
	}
	if err := s.orgs.Authorize(ctx, userID, account.OrganizationID); err != nil {
		return nil, err
	}
	return account, nil
}
