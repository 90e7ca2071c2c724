package folio

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// SiteConfig holds all configuration for a folio site.
type SiteConfig struct {
	Name        string // Site name used by the feed when blogTitle is unset (default "Blog")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Feed description fallback

	Addr         string // Listen address (default ":3000")
	DatabasePath string // SQLite path (default "data/blog.db")
	UploadDir    string // Image upload directory (default "data/uploads")

	AdminUsername string // Bootstrap admin username (default "admin")
	AdminPassword string // Bootstrap admin password, required only when no admin exists
	SessionSecret string // Required: session signing secret, at least 32 bytes
	CookieSecure  bool   // Set true for HTTPS

	CacheTTL               time.Duration // Settings/categories cache TTL (default 1min)
	ViewLogRetentionDays   int           // Days of view history kept for dashboards (default 365)
	ShutdownTimeout        time.Duration // Graceful shutdown budget (default 10s)
	LoginAttemptsPerMinute int           // Failed logins per IP per minute (default 5)

	LogLevel  string // debug, info, warn, error (default "info")
	LogFormat string // json or pretty (default "json")
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimSuffix(c.URL, "/")
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/blog.db"
	}
	if c.UploadDir == "" {
		c.UploadDir = "data/uploads"
	}
	if c.AdminUsername == "" {
		c.AdminUsername = "admin"
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = time.Minute
	}
	if c.ViewLogRetentionDays == 0 {
		c.ViewLogRetentionDays = 365
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.LoginAttemptsPerMinute == 0 {
		c.LoginAttemptsPerMinute = 5
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
}

// Validate checks the configuration after defaults have been applied.
func (c *SiteConfig) Validate() error {
	if len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 bytes")
	}
	if c.ViewLogRetentionDays < 0 {
		return fmt.Errorf("VIEW_LOG_RETENTION_DAYS must not be negative")
	}
	return nil
}

// LoadConfig reads configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment variables
// take precedence over it.
func LoadConfig() (SiteConfig, error) {
	_ = godotenv.Load()

	cfg := SiteConfig{
		Name:                   os.Getenv("SITE_NAME"),
		URL:                    os.Getenv("SITE_URL"),
		Description:            os.Getenv("SITE_DESCRIPTION"),
		Addr:                   os.Getenv("ADDR"),
		DatabasePath:           os.Getenv("DATABASE_PATH"),
		UploadDir:              os.Getenv("UPLOAD_DIR"),
		AdminUsername:          os.Getenv("ADMIN_USERNAME"),
		AdminPassword:          os.Getenv("ADMIN_PASSWORD"),
		SessionSecret:          os.Getenv("SESSION_SECRET"),
		CookieSecure:           getBoolEnv("COOKIE_SECURE", false),
		CacheTTL:               getDurationEnv("CACHE_TTL", 0),
		ViewLogRetentionDays:   getIntEnv("VIEW_LOG_RETENTION_DAYS", 0),
		ShutdownTimeout:        getDurationEnv("SHUTDOWN_TIMEOUT", 0),
		LoginAttemptsPerMinute: getIntEnv("LOGIN_ATTEMPTS_PER_MINUTE", 0),
		LogLevel:               os.Getenv("LOG_LEVEL"),
		LogFormat:              os.Getenv("LOG_FORMAT"),
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return SiteConfig{}, err
	}
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithClock overrides the time source used by the store. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.clock = now
	}
}

func getIntEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
