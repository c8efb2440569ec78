package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/maheshrc27/postsphere/internal/models"
	"github.com/maheshrc27/postsphere/internal/platforms"
)

type Worker struct {
	posts     PostGetter
	publisher PostPublisher
}

func NewWorker(posts PostGetter, publisher PostPublisher) *Worker {
	return &Worker{posts: posts, publisher: publisher}
}

func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypePublishPost, w.HandlePublishPostTask)
}

func (w *Worker) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("%w: decode payload: %v", asynq.SkipRetry, err)
	}

	post, err := w.posts.GetByID(ctx, payload.PostID)
	if err != nil {
		return err
	}
	if reason := staleReason(post, payload); reason != "" {
		slog.Info("skipping stale publish task", "post_id", payload.PostID, "reason", reason)
		return nil
	}

	if _, err := w.publisher.PublishPost(ctx, payload.PostID); err != nil {
		if !platforms.Retryable(err) {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return err
	}
	return nil
}

// staleReason explains why a task no longer applies to its post, or returns
// "" when it should run. Failed posts keep their task so retries can run.
func staleReason(post *models.Post, payload PublishPostPayload) string {
	switch {
	case post == nil:
		return "post deleted"
	case post.Status == models.PostStatusPublished:
		return "already published"
	case post.Status != models.PostStatusScheduled && post.Status != models.PostStatusFailed:
		return "no longer scheduled"
	case post.ScheduledTime == nil || post.ScheduledTime.Unix() != payload.ScheduledAt:
		return "rescheduled"
	}
	return ""
}
