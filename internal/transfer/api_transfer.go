package transfer

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// StateClaims travel through the platform authorization redirect and bind
// the callback to the user and organization that started it.
type StateClaims struct {
	UserID         int64 `json:"uid"`
	OrganizationID int64 `json:"oid"`
	jwt.RegisteredClaims
}

type OrganizationCreation struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=2000"`
}

type MemberAddition struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

type SocialAccountCreation struct {
	OrganizationID int64      `json:"organization_id" validate:"required,gt=0"`
	Platform       string     `json:"platform" validate:"required"`
	AccountID      string     `json:"account_id" validate:"required"`
	AccountName    string     `json:"account_name" validate:"omitempty,max=255"`
	AccessToken    string     `json:"access_token" validate:"required"`
	ExpiresAt      *time.Time `json:"expires_at"`
}

type PostCreation struct {
	SocialAccountID int64      `json:"social_account_id" validate:"required,gt=0"`
	Content         string     `json:"content" validate:"max=63206"`
	MediaURL        string     `json:"media_url" validate:"omitempty,url"`
	MediaKind       string     `json:"media_kind" validate:"omitempty,oneof=image video"`
	ScheduledTime   *time.Time `json:"scheduled_time"`
}

type PostSchedule struct {
	ScheduledTime time.Time `json:"scheduled_time" validate:"required"`
}

type PublishResult struct {
	PostID         int64     `json:"post_id"`
	PlatformPostID string    `json:"platform_post_id"`
	PublishedAt    time.Time `json:"published_at"`
}

type Page struct {
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}
