package platforms

import (
	"net/http"

	"golang.org/x/time/rate"

	config "github.com/maheshrc27/postsphere/configs"
)

// FromConfig registers a provider for every platform whose app credentials
// are configured.
func FromConfig(cfg *config.Config) *Registry {
	opts := Options{
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
		RateLimit:  rate.Limit(cfg.PlatformRateLimit),
		Burst:      cfg.PlatformRateBurst,
		MaxRetries: uint(max(cfg.MaxRetries, 0)),
	}

	var providers []Provider
	meta := func(c config.OAuthClient) MetaConfig {
		return MetaConfig{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURI:  c.RedirectURI,
			GraphVersion: cfg.GraphAPIVersion,
		}
	}
	oauth := func(c config.OAuthClient) OAuth2Config {
		return OAuth2Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURI:  c.RedirectURI,
			VerifierKey:  []byte(cfg.SecretKey),
		}
	}

	if cfg.Instagram.Configured() {
		providers = append(providers, NewInstagram(meta(cfg.Instagram), opts))
	}
	if cfg.Threads.Configured() {
		providers = append(providers, NewThreads(MetaConfig{
			ClientID:     cfg.Threads.ClientID,
			ClientSecret: cfg.Threads.ClientSecret,
			RedirectURI:  cfg.Threads.RedirectURI,
		}, opts))
	}
	if cfg.Facebook.Configured() {
		providers = append(providers, NewFacebook(meta(cfg.Facebook), opts))
	}
	if cfg.Tiktok.Configured() {
		providers = append(providers, NewTikTok(TikTokConfig{
			ClientKey:    cfg.Tiktok.ClientID,
			ClientSecret: cfg.Tiktok.ClientSecret,
			RedirectURI:  cfg.Tiktok.RedirectURI,
			PrivacyLevel: cfg.TiktokPrivacyLevel,
		}, opts))
	}
	if cfg.Twitter.Configured() {
		providers = append(providers, NewTwitter(oauth(cfg.Twitter), opts))
	}
	if cfg.LinkedIn.Configured() {
		providers = append(providers, NewLinkedIn(oauth(cfg.LinkedIn), opts))
	}
	if cfg.Mastodon.Configured() && cfg.MastodonURL != "" {
		mc := oauth(cfg.Mastodon)
		mc.APIURL = cfg.MastodonURL
		providers = append(providers, NewMastodon(mc, opts))
	}
	return NewRegistry(providers...)
}
