package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer schedules a post for publication at a given time.
type Enqueuer interface {
	SchedulePost(ctx context.Context, postID int64, at time.Time) error
}

type AsynqEnqueuer struct {
	client   *asynq.Client
	maxRetry int
}

func NewAsynqEnqueuer(client *asynq.Client, maxRetry int) *AsynqEnqueuer {
	return &AsynqEnqueuer{client: client, maxRetry: maxRetry}
}

func (e *AsynqEnqueuer) SchedulePost(ctx context.Context, postID int64, at time.Time) error {
	task, err := NewPublishPostTask(postID, at)
	if err != nil {
		return err
	}

	// The task id makes enqueueing the same schedule twice a no-op.
	id := fmt.Sprintf("%s:%d:%d", TaskTypePublishPost, postID, at.Unix())
	info, err := e.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(at),
		asynq.TaskID(id),
		asynq.MaxRetry(e.maxRetry),
		asynq.Timeout(5*time.Minute),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("enqueue post %d: %w", postID, err)
	}

	slog.Info("post scheduled", "post_id", postID, "task_id", info.ID, "process_at", at)
	return nil
}
