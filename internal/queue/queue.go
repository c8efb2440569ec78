package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/maheshrc27/postsphere/internal/models"
)

const TaskTypePublishPost = "post:publish"

// PublishPostPayload identifies a post and the schedule it was enqueued for.
// ScheduledAt is in Unix seconds; a task whose schedule no longer matches the
// post is stale.
type PublishPostPayload struct {
	PostID      int64 `json:"post_id"`
	ScheduledAt int64 `json:"scheduled_at"`
}

func NewPublishPostTask(postID int64, at time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(PublishPostPayload{PostID: postID, ScheduledAt: at.Unix()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePublishPost, payload), nil
}

type PostGetter interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
}

type PostPublisher interface {
	PublishPost(ctx context.Context, postID int64) (*models.Post, error)
}
