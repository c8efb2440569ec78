// Package platforms talks to the social network APIs: the OAuth credential
// exchange, token refresh, profile lookup and the publish sequence of every
// supported platform.
package platforms

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/maheshrc27/postsphere/internal/models"
)

type Platform string

const (
	Facebook  Platform = "facebook"
	Instagram Platform = "instagram"
	Twitter   Platform = "twitter"
	LinkedIn  Platform = "linkedin"
	Threads   Platform = "threads"
	TikTok    Platform = "tiktok"
	Mastodon  Platform = "mastodon"
)

// Parse accepts a platform name as it appears in routes and requests.
func Parse(name string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "facebook":
		return Facebook, nil
	case "instagram":
		return Instagram, nil
	case "twitter", "x":
		return Twitter, nil
	case "linkedin":
		return LinkedIn, nil
	case "threads":
		return Threads, nil
	case "tiktok":
		return TikTok, nil
	case "mastodon":
		return Mastodon, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedPlatform, name)
}

// ShortLivedToken is the result of redeeming an authorization code.
type ShortLivedToken struct {
	ExternalID   string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type LongLivedToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type Profile struct {
	ID         string
	Username   string
	Name       string
	PictureURL string
}

type PublishRequest struct {
	Caption   string
	MediaURL  string
	MediaKind string
}

// Exchanger turns an authorization code into credentials the publisher can use.
type Exchanger interface {
	AuthURL(state string) string
	// ExchangeCode redeems the single-use code. It is never retried.
	ExchangeCode(ctx context.Context, code, state string) (*ShortLivedToken, error)
	ExtendToken(ctx context.Context, short *ShortLivedToken) (*LongLivedToken, error)
	Refresh(ctx context.Context, cred *models.AccountCredential) (*LongLivedToken, error)
}

type Publisher interface {
	// Publish returns the identifier the platform assigned to the new post.
	Publish(ctx context.Context, cred *models.AccountCredential, req PublishRequest) (string, error)
}

type Provider interface {
	Exchanger
	Publisher
	Platform() Platform
	Profile(ctx context.Context, accessToken string) (*Profile, error)
}

// Revoker is implemented by providers whose tokens can be revoked upstream.
type Revoker interface {
	Revoke(ctx context.Context, cred *models.AccountCredential) error
}

type Registry struct {
	providers map[Platform]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[Platform]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Platform()] = p
	}
	return r
}

func (r *Registry) Get(p Platform) (Provider, error) {
	provider, ok := r.providers[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not configured", ErrUnsupportedPlatform, p)
	}
	return provider, nil
}

// Lookup parses name and returns its provider.
func (r *Registry) Lookup(name string) (Provider, error) {
	p, err := Parse(name)
	if err != nil {
		return nil, err
	}
	return r.Get(p)
}

func (r *Registry) Platforms() []Platform {
	out := make([]Platform, 0, len(r.providers))
	for _, p := range []Platform{Facebook, Instagram, Twitter, LinkedIn, Threads, TikTok, Mastodon} {
		if _, ok := r.providers[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
