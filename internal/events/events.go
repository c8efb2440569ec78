package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	SubjectPostPublished = "post.published"
	SubjectPostFailed    = "post.failed"
)

// PostEvent describes the outcome of one publish attempt.
type PostEvent struct {
	PostID         int64     `json:"post_id"`
	AccountID      int64     `json:"account_id"`
	Platform       string    `json:"platform"`
	PlatformPostID string    `json:"platform_post_id,omitempty"`
	Stage          string    `json:"stage,omitempty"`
	Error          string    `json:"error,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type Publisher interface {
	PostPublished(ctx context.Context, e PostEvent) error
	PostFailed(ctx context.Context, e PostEvent) error
}

type NatsPublisher struct {
	nc *nats.Conn
}

func NewNatsPublisher(nc *nats.Conn) *NatsPublisher {
	return &NatsPublisher{nc: nc}
}

func (p *NatsPublisher) PostPublished(ctx context.Context, e PostEvent) error {
	return p.publish(ctx, SubjectPostPublished, e)
}

func (p *NatsPublisher) PostFailed(ctx context.Context, e PostEvent) error {
	return p.publish(ctx, SubjectPostFailed, e)
}

func (p *NatsPublisher) publish(_ context.Context, subject string, e PostEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshalling error: %w", err)
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{},
	}
	// Lets JetStream consumers drop redeliveries of the same attempt.
	msg.Header.Set(nats.MsgIdHdr, subject+"-"+strconv.FormatInt(e.PostID, 10)+"-"+strconv.FormatInt(e.OccurredAt.UnixNano(), 10))

	slog.Info("publishing event", "subject", subject, "post_id", e.PostID)
	return p.nc.PublishMsg(msg)
}

// Noop drops events. It is used when no NATS URL is configured.
type Noop struct{}

func (Noop) PostPublished(context.Context, PostEvent) error { return nil }
func (Noop) PostFailed(context.Context, PostEvent) error    { return nil }
