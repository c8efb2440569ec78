package models

import (
	"time"
)

// SocialAccount is an external platform account linked to an organization.
// Its tokens live in AccountCredential, keyed by (Platform, AccountID).
type SocialAccount struct {
	ID              int64     `db:"id" json:"id"`
	OrganizationID  int64     `db:"organization_id" json:"organization_id"`
	UserID          int64     `db:"user_id" json:"user_id"`
	Platform        string    `db:"platform" json:"platform"`
	AccountID       string    `db:"account_id" json:"account_id"`
	AccountName     string    `db:"account_name" json:"account_name"`
	AccountUsername string    `db:"account_username" json:"account_username"`
	ProfilePicture  string    `db:"profile_picture_url" json:"profile_picture"`
	AccountStatus   string    `db:"account_status" json:"account_status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

const (
	AccountStatusActive  = "active"
	AccountStatusExpired = "expired"
)

// AccountCredential holds the OAuth tokens of one external account.
type AccountCredential struct {
	Platform        string    `db:"platform" json:"platform"`
	ExternalID      string    `db:"external_id" json:"external_id"`
	ShortLivedToken string    `db:"short_lived_token" json:"-"`
	LongLivedToken  string    `db:"long_lived_token" json:"-"`
	RefreshToken    string    `db:"refresh_token" json:"-"`
	ExpiresAt       time.Time `db:"expires_at" json:"expires_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// ExpiresWithin reports whether the long-lived token expires before now+d.
// A zero ExpiresAt means the platform did not report an expiry.
func (c *AccountCredential) ExpiresWithin(now time.Time, d time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return c.ExpiresAt.Before(now.Add(d))
}

// Authorized reports whether a long-lived token is on record.
func (c *AccountCredential) Authorized() bool {
	return c != nil && c.LongLivedToken != ""
}
