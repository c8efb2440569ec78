package platforms

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMissingCode         = errors.New("authorization code is missing")
	ErrNotAuthorized       = errors.New("account has no long-lived token")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrUnsupportedContent  = errors.New("content not supported by platform")
)

type Stage string

const (
	StageShortLivedToken  Stage = "short_lived_token"
	StageLongLivedToken   Stage = "long_lived_token"
	StageRefreshToken     Stage = "refresh_token"
	StageProfile          Stage = "profile"
	StageCreateContainer  Stage = "create_container"
	StageContainerStatus  Stage = "container_status"
	StagePublishContainer Stage = "publish_container"
	StagePageToken        Stage = "page_token"
	StageCreatorInfo      Stage = "creator_info"
	StagePublish          Stage = "publish"
	StageRevoke           Stage = "revoke"
)

// OAuthError is an error the platform reported on the authorization callback.
type OAuthError struct {
	Platform    Platform
	Code        string
	Reason      string
	Description string
}

func (e *OAuthError) Error() string {
	msg := fmt.Sprintf("%s authorization failed: %s", e.Platform, e.Code)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	if e.Description != "" {
		msg += ": " + e.Description
	}
	return msg
}

// APIError is a failed call to a platform endpoint. StatusCode is zero when
// no response was received.
type APIError struct {
	Platform   Platform
	Stage      Stage
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode == 0:
		return fmt.Sprintf("%s %s: %v", e.Platform, e.Stage, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: status %d: %v", e.Platform, e.Stage, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Platform, e.Stage, e.StatusCode, e.Body)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Temporary reports whether the same call may succeed if repeated.
func (e *APIError) Temporary() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// StageOf returns the stage at which err was raised, or "" when err did not
// come from a platform call.
func StageOf(err error) Stage {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Stage
	}
	return ""
}

// Retryable reports whether a publish that failed with err could succeed on
// a later attempt.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotAuthorized) || errors.Is(err, ErrUnsupportedContent) || errors.Is(err, ErrUnsupportedPlatform) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}
