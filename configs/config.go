package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

// OAuthClient holds the app credentials registered with one platform.
// RedirectURI must match the registered value exactly.
type OAuthClient struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

func (c OAuthClient) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	Instagram OAuthClient
	Threads   OAuthClient
	Facebook  OAuthClient
	Tiktok    OAuthClient
	Twitter   OAuthClient
	LinkedIn  OAuthClient
	Mastodon  OAuthClient
	Google    OAuthClient

	// MastodonURL is the instance the Mastodon app is registered with.
	MastodonURL string

	GraphAPIVersion    string
	TiktokPrivacyLevel string

	PostgresURI string
	RedisURI    string
	NatsURL     string
	FrontendURL string
	R2          R2

	SecretKey     string
	EncryptionKey string
	CookieName    string

	HTTPTimeout        time.Duration
	PlatformRateLimit  float64
	PlatformRateBurst  int
	MaxRetries         int
	PublishConcurrency int
	RefreshInterval    time.Duration
	RefreshWindow      time.Duration
	RefreshConcurrency int
}

func LoadConfig() *Config {
	return &Config{
		Port:        getEnv("PORT", "8000"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getLogLevel("LOG_LEVEL", slog.LevelInfo),
		Instagram:   getOAuthClient("INSTAGRAM"),
		Threads:     getOAuthClient("THREADS"),
		Facebook:    getOAuthClient("FACEBOOK"),
		Tiktok: OAuthClient{
			ClientID:     getEnv("TIKTOK_CLIENT_KEY", ""),
			ClientSecret: getEnv("TIKTOK_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("TIKTOK_REDIRECT_URI", ""),
		},
		Twitter:            getOAuthClient("TWITTER"),
		LinkedIn:           getOAuthClient("LINKEDIN"),
		Mastodon:           getOAuthClient("MASTODON"),
		MastodonURL:        strings.TrimRight(getEnv("MASTODON_API_BASE_URL", ""), "/"),
		Google:             getOAuthClient("GOOGLE"),
		GraphAPIVersion:    getEnv("GRAPH_API_VERSION", "v22.0"),
		TiktokPrivacyLevel: getEnv("TIKTOK_PRIVACY_LEVEL", "SELF_ONLY"),
		PostgresURI:        getEnv("POSTGRES_URI", ""),
		RedisURI:           getEnv("REDIS_URI", "localhost:6379"),
		NatsURL:            getEnv("NATS_URL", ""),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  strings.TrimRight(getEnv("R2_PUBLIC_URL", ""), "/"),
		},
		SecretKey:          getEnv("SECRET_KEY", ""),
		EncryptionKey:      getEnv("ENCRYPTION_KEY", ""),
		CookieName:         getEnv("COOKIE_NAME", "postsphere_session"),
		HTTPTimeout:        getDuration("HTTP_TIMEOUT", 15*time.Second),
		PlatformRateLimit:  getFloat("PLATFORM_RATE_LIMIT", 5),
		PlatformRateBurst:  getInt("PLATFORM_RATE_BURST", 10),
		MaxRetries:         getInt("PLATFORM_MAX_RETRIES", 3),
		PublishConcurrency: getInt("PUBLISH_CONCURRENCY", 10),
		RefreshInterval:    getDuration("REFRESH_INTERVAL", 10*time.Minute),
		RefreshWindow:      getDuration("REFRESH_WINDOW", 30*time.Minute),
		RefreshConcurrency: getInt("REFRESH_CONCURRENCY", 10),
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.SecretKey == "" {
		errs = append(errs, errors.New("SECRET_KEY is required"))
	}
	if len(c.EncryptionKey) != 32 {
		errs = append(errs, fmt.Errorf("ENCRYPTION_KEY must be 32 bytes, got %d", len(c.EncryptionKey)))
	}
	if c.PostgresURI == "" {
		errs = append(errs, errors.New("POSTGRES_URI is required"))
	}
	if c.PublishConcurrency < 1 {
		errs = append(errs, errors.New("PUBLISH_CONCURRENCY must be positive"))
	}
	if c.RefreshConcurrency < 1 {
		errs = append(errs, errors.New("REFRESH_CONCURRENCY must be positive"))
	}
	if c.RefreshInterval <= 0 {
		errs = append(errs, errors.New("REFRESH_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}

func getOAuthClient(prefix string) OAuthClient {
	return OAuthClient{
		ClientID:     getEnv(prefix+"_CLIENT_ID", ""),
		ClientSecret: getEnv(prefix+"_CLIENT_SECRET", ""),
		RedirectURI:  getEnv(prefix+"_REDIRECT_URI", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("invalid integer setting, using default", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		slog.Warn("invalid number setting, using default", "key", key, "value", value)
		return defaultValue
	}
	return f
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("invalid duration setting, using default", "key", key, "value", value)
		return defaultValue
	}
	return d
}

func getLogLevel(key string, defaultValue slog.Level) slog.Level {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return defaultValue
	}
	return level
}
