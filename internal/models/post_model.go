package models

import (
	"strings"
	"time"
)

type Post struct {
	ID              int64      `db:"id" json:"id"`
	AuthorID        int64      `db:"author_id" json:"author_id"`
	SocialAccountID int64      `db:"social_account_id" json:"social_account_id"`
	Content         string     `db:"content" json:"content"`
	MediaURL        string     `db:"media_url" json:"media_url,omitempty"`
	MediaKind       string     `db:"media_kind" json:"media_kind,omitempty"`
	Status          string     `db:"status" json:"status"` // draft, scheduled, published, failed
	ScheduledTime   *time.Time `db:"scheduled_time" json:"scheduled_time,omitempty"`
	PublishedTime   *time.Time `db:"published_time" json:"published_time,omitempty"`
	PlatformPostID  string     `db:"platform_post_id" json:"platform_post_id,omitempty"`
	ErrorMessage    string     `db:"error_message" json:"error_message,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

type MediaAsset struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	FileName  string    `db:"file_name" json:"file_name"`
	FileType  string    `db:"file_type" json:"file_type"`
	FileSize  int64     `db:"file_size" json:"file_size"`
	FileURL   string    `db:"file_url" json:"file_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Kind maps the asset's MIME type to the media kind posts use.
func (m *MediaAsset) Kind() string {
	switch {
	case strings.HasPrefix(m.FileType, "image/"):
		return MediaKindImage
	case strings.HasPrefix(m.FileType, "video/"):
		return MediaKindVideo
	}
	return ""
}

const (
	PostStatusDraft      = "draft"
	PostStatusScheduled  = "scheduled"
	PostStatusPublishing = "publishing"
	PostStatusPublished  = "published"
	PostStatusFailed     = "failed"
)

const (
	MediaKindImage = "image"
	MediaKindVideo = "video"
)
