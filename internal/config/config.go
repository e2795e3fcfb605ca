package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cache backend constants
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// LINE platform endpoint defaults.
const (
	defaultLoginAuthURL   = "https://access.line.me/oauth2/v2.1/authorize"
	defaultLoginTokenURL  = "https://api.line.me/oauth2/v2.1/token"
	defaultLoginVerifyURL = "https://api.line.me/oauth2/v2.1/verify"

	defaultNotifyAuthURL   = "https://notify-bot.line.me/oauth/authorize"
	defaultNotifyTokenURL  = "https://notify-bot.line.me/oauth/token"
	defaultNotifySendURL   = "https://notify-api.line.me/api/notify"
	defaultNotifyStatusURL = "https://notify-api.line.me/api/status"
	defaultNotifyRevokeURL = "https://notify-api.line.me/api/revoke"
)

// OAuthClient is one OAuth2 client registration against the provider.
type OAuthClient struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	Scopes       []string
	RedirectURL  string
}

type Config struct {
	// Server settings
	ServerAddr string
	BaseURL    string
	LandingURL string

	// Cookie session settings
	SessionSecret string
	SessionTTL    time.Duration
	SecureCookie  bool

	// Session token settings
	JWTSecret        string
	JWTAlgorithm     string
	JWTExpireMinutes int

	// Provider HTTP client settings
	ProviderTimeout    time.Duration
	ProviderMaxRetries int
	ProviderRetryDelay time.Duration

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string

	// Cache backend: "memory" or "redis"
	CacheBackend  string
	RedisAddr     string
	RedisUsername string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	// Rate limiting
	RateLimitEnabled   bool
	RateLimitPerMinute int

	// Metrics
	MetricsEnabled bool
	MetricsToken   string

	// LINE Login client
	LineLogin      OAuthClient
	LoginVerifyURL string

	// LINE Notify client
	LineNotify      OAuthClient
	NotifySendURL   string
	NotifyStatusURL string
	NotifyRevokeURL string
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", getEnv("DATABASE_PATH", "linegate.db"))
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	baseURL := getEnv("BASE_URL", "http://localhost:8080")

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		BaseURL:    baseURL,
		LandingURL: getEnv("LANDING_URL", baseURL+"/"),

		SessionSecret: getEnv("SESSION_SECRET", "session-secret-change-in-production"),
		SessionTTL:    getEnvDuration("SESSION_TTL", 24*time.Hour),
		SecureCookie:  getEnvBool("SECURE_COOKIE", strings.HasPrefix(baseURL, "https://")),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAlgorithm:     getEnv("JWT_ALGORITHM", "HS256"),
		JWTExpireMinutes: getEnvInt("JWT_EXPIRE_MINUTES", 120),

		ProviderTimeout:    getEnvDuration("PROVIDER_TIMEOUT", 10*time.Second),
		ProviderMaxRetries: getEnvInt("PROVIDER_MAX_RETRIES", 2),
		ProviderRetryDelay: getEnvDuration("PROVIDER_RETRY_DELAY", 500*time.Millisecond),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		CacheBackend:  getEnv("CACHE_BACKEND", CacheBackendMemory),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPrefix:   getEnv("REDIS_PREFIX", "linegate:"),

		RateLimitEnabled:   getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", false),
		MetricsToken:   getEnv("METRICS_TOKEN", ""),

		LineLogin: OAuthClient{
			ClientID:     getEnv("LINE_LOGIN_CLIENT_ID", ""),
			ClientSecret: getEnv("LINE_LOGIN_CLIENT_SECRET", ""),
			AuthURL:      getEnv("LINE_LOGIN_AUTH_URL", defaultLoginAuthURL),
			TokenURL:     getEnv("LINE_LOGIN_TOKEN_URL", defaultLoginTokenURL),
			Scopes:       getEnvSlice("LINE_LOGIN_SCOPES", []string{"profile", "openid", "email"}),
			RedirectURL:  getEnv("LINE_LOGIN_REDIRECT_URL", baseURL+"/line/login/callback"),
		},
		LoginVerifyURL: getEnv("LINE_LOGIN_VERIFY_URL", defaultLoginVerifyURL),

		LineNotify: OAuthClient{
			ClientID:     getEnv("LINE_NOTIFY_CLIENT_ID", ""),
			ClientSecret: getEnv("LINE_NOTIFY_CLIENT_SECRET", ""),
			AuthURL:      getEnv("LINE_NOTIFY_AUTH_URL", defaultNotifyAuthURL),
			TokenURL:     getEnv("LINE_NOTIFY_TOKEN_URL", defaultNotifyTokenURL),
			Scopes:       getEnvSlice("LINE_NOTIFY_SCOPES", []string{"notify"}),
			RedirectURL:  getEnv("LINE_NOTIFY_REDIRECT_URL", baseURL+"/line/notify/callback"),
		},
		NotifySendURL:   getEnv("LINE_NOTIFY_SEND_URL", defaultNotifySendURL),
		NotifyStatusURL: getEnv("LINE_NOTIFY_STATUS_URL", defaultNotifyStatusURL),
		NotifyRevokeURL: getEnv("LINE_NOTIFY_REVOKE_URL", defaultNotifyRevokeURL),
	}
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.LineLogin.ClientID == "" || c.LineLogin.ClientSecret == "" {
		errs = append(errs, errors.New("LINE_LOGIN_CLIENT_ID and LINE_LOGIN_CLIENT_SECRET are required"))
	}
	if c.LineNotify.ClientID == "" || c.LineNotify.ClientSecret == "" {
		errs = append(errs, errors.New("LINE_NOTIFY_CLIENT_ID and LINE_NOTIFY_CLIENT_SECRET are required"))
	}
	if c.DatabaseDriver != "sqlite" && c.DatabaseDriver != "postgres" {
		errs = append(errs, fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN is required"))
	}
	if c.CacheBackend != CacheBackendMemory && c.CacheBackend != CacheBackendRedis {
		errs = append(errs, fmt.Errorf("unsupported CACHE_BACKEND %q", c.CacheBackend))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var parts []string
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}
