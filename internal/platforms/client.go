package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"github.com/maheshrc27/postsphere/internal/models"
)

const maxResponseBody = 1 << 20

// Options configures the HTTP behaviour shared by every provider.
type Options struct {
	HTTPClient *http.Client
	// RateLimit is the request rate allowed per platform. Zero disables limiting.
	RateLimit rate.Limit
	Burst     int
	// MaxRetries applies to idempotent calls only.
	MaxRetries     uint
	RetryBaseDelay time.Duration
}

type apiClient struct {
	platform  Platform
	http      *http.Client
	limiter   *rate.Limiter
	maxTries  uint
	baseDelay time.Duration
}

func newAPIClient(p Platform, opts Options) *apiClient {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(opts.RateLimit, max(opts.Burst, 1))
	}
	delay := opts.RetryBaseDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &apiClient{
		platform:  p,
		http:      hc,
		limiter:   limiter,
		maxTries:  opts.MaxRetries + 1,
		baseDelay: delay,
	}
}

func (c *apiClient) getJSON(ctx context.Context, stage Stage, endpoint string, query url.Values, header http.Header, out any) error {
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return c.failure(stage, 0, nil, err)
	}
	return c.do(req, stage, header, out)
}

func (c *apiClient) postForm(ctx context.Context, stage Stage, endpoint string, form url.Values, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return c.failure(stage, 0, nil, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, stage, header, out)
}

func (c *apiClient) postJSON(ctx context.Context, stage Stage, endpoint string, payload any, header http.Header, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return c.failure(stage, 0, nil, fmt.Errorf("encode request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return c.failure(stage, 0, nil, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	return c.do(req, stage, header, out)
}

func (c *apiClient) do(req *http.Request, stage Stage, header http.Header, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return c.failure(stage, 0, nil, err)
		}
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return c.failure(stage, 0, nil, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return c.failure(stage, resp.StatusCode, nil, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Info("platform request failed",
			"platform", c.platform, "stage", stage, "status", resp.StatusCode)
		return c.failure(stage, resp.StatusCode, body, nil)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return c.failure(stage, resp.StatusCode, body, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *apiClient) failure(stage Stage, status int, body []byte, err error) *APIError {
	return &APIError{Platform: c.platform, Stage: stage, StatusCode: status, Body: string(body), Err: err}
}

// malformed reports a 2xx response that lacks a field the flow depends on.
func (c *apiClient) malformed(stage Stage, field string) *APIError {
	return c.failure(stage, http.StatusOK, nil, fmt.Errorf("response has no %s", field))
}

// retry repeats fn with exponential backoff while it fails with a temporary
// APIError.
func (c *apiClient) retry(ctx context.Context, fn func() error) error {
	if c.maxTries <= 1 {
		return fn()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.baseDelay
	b.MaxInterval = 10 * c.baseDelay

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn()
		var apiErr *APIError
		if err != nil && !(errors.As(err, &apiErr) && apiErr.Temporary()) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(c.maxTries))
	return err
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

// expiresAt converts an expires_in value in seconds, falling back to ttl when
// the platform omitted it.
func expiresAt(seconds int64, ttl time.Duration) time.Time {
	if seconds <= 0 {
		return time.Now().Add(ttl)
	}
	return time.Now().Add(time.Duration(seconds) * time.Second)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func requireLongLived(cred *models.AccountCredential) error {
	if !cred.Authorized() {
		return ErrNotAuthorized
	}
	return nil
}
