package agrosite

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrosite/agrosite/notify"
	"github.com/agrosite/agrosite/store"
)

// SiteConfig holds all configuration for an agrosite server.
type SiteConfig struct {
	Name        string // Site name used in feeds and email subjects (default "Agrosite")
	URL         string // Canonical public URL of the front end (default "http://localhost:8080")
	Description string // Feed description

	Addr           string        // Listen address (default ":8080")
	RequestTimeout time.Duration // Per-request deadline (default 15s)

	DatabaseDriver string // "sqlite" (default) or "postgres"
	DatabaseDSN    string // SQLite path or PostgreSQL DSN (default "data/agrosite.db")

	SessionSecret string        // Required: cookie session signing secret
	JWTSecret     string        // Required: bearer token signing secret
	TokenTTL      time.Duration // Admin token lifetime (default 12h)
	CookieSecure  bool          // Set true behind HTTPS

	LoginMaxAttempts int           // Failed logins allowed per IP and window (default 5)
	LoginWindow      time.Duration // Login limiter window (default 1m)

	CacheTTL  time.Duration // Catalog cache TTL (default 5m)
	UploadDir string        // Directory for uploaded images (default "data/uploads")

	SMTPHost     string // Mail relay; empty logs emails instead of sending them
	SMTPPort     int    // default 587
	SMTPUsername string
	SMTPPassword string
	SMTPTimeout  time.Duration // Bound on one send (default 10s)
	MailFrom     string        // Sender address (default "noreply@localhost")
	MailTo       []string      // Operator recipients

	OutboxPollInterval time.Duration // default 10s
	OutboxMaxAttempts  int           // default 5
	OutboxBatch        int           // default 20

	LogLevel  string // debug, info, warn, error (default info)
	LogFormat string // json (default) or console
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Agrosite"
	}
	if c.URL == "" {
		c.URL = "http://localhost:8080"
	}
	if c.Description == "" {
		c.Description = c.Name + " news and articles"
	}
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 15 * time.Second
	}
	if c.DatabaseDriver == "" {
		c.DatabaseDriver = string(store.DialectSQLite)
	}
	if c.DatabaseDSN == "" {
		c.DatabaseDSN = "data/agrosite.db"
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 12 * time.Hour
	}
	if c.LoginMaxAttempts == 0 {
		c.LoginMaxAttempts = 5
	}
	if c.LoginWindow == 0 {
		c.LoginWindow = time.Minute
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.UploadDir == "" {
		c.UploadDir = "data/uploads"
	}
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
	}
	if c.SMTPTimeout == 0 {
		c.SMTPTimeout = 10 * time.Second
	}
	if c.MailFrom == "" {
		c.MailFrom = "noreply@localhost"
	}
	if c.OutboxPollInterval == 0 {
		c.OutboxPollInterval = 10 * time.Second
	}
	if c.OutboxMaxAttempts == 0 {
		c.OutboxMaxAttempts = 5
	}
	if c.OutboxBatch == 0 {
		c.OutboxBatch = 20
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
}

func (c *SiteConfig) validate() error {
	if c.SessionSecret == "" {
		return fmt.Errorf("agrosite: SessionSecret is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("agrosite: JWTSecret is required")
	}
	if c.SMTPHost != "" && len(c.MailTo) == 0 {
		return fmt.Errorf("agrosite: MailTo is required when SMTPHost is set")
	}
	if _, err := store.ParseDialect(c.DatabaseDriver); err != nil {
		return fmt.Errorf("agrosite: %w", err)
	}
	return nil
}

// ConfigFromEnv reads a SiteConfig from environment variables through getenv
// (usually os.Getenv). Unset variables keep their zero value so setDefaults
// can fill them later.
func ConfigFromEnv(getenv func(string) string) (SiteConfig, error) {
	p := envParser{getenv: getenv}
	cfg := SiteConfig{
		Name:               getenv("SITE_NAME"),
		URL:                getenv("SITE_URL"),
		Description:        getenv("SITE_DESCRIPTION"),
		Addr:               getenv("ADDR"),
		RequestTimeout:     p.duration("REQUEST_TIMEOUT"),
		DatabaseDriver:     getenv("DATABASE_DRIVER"),
		DatabaseDSN:        getenv("DATABASE_DSN"),
		SessionSecret:      getenv("SESSION_SECRET"),
		JWTSecret:          getenv("JWT_SECRET"),
		TokenTTL:           p.duration("TOKEN_TTL"),
		CookieSecure:       p.bool("COOKIE_SECURE"),
		CacheTTL:           p.duration("CACHE_TTL"),
		UploadDir:          getenv("UPLOAD_DIR"),
		SMTPHost:           getenv("SMTP_HOST"),
		SMTPPort:           p.int("SMTP_PORT"),
		SMTPUsername:       getenv("SMTP_USERNAME"),
		SMTPPassword:       getenv("SMTP_PASSWORD"),
		SMTPTimeout:        p.duration("SMTP_TIMEOUT"),
		MailFrom:           getenv("MAIL_FROM"),
		MailTo:             FilterEmpty(strings.Split(getenv("MAIL_TO"), ",")),
		OutboxPollInterval: p.duration("OUTBOX_POLL_INTERVAL"),
		OutboxMaxAttempts:  p.int("OUTBOX_MAX_ATTEMPTS"),
		OutboxBatch:        p.int("OUTBOX_BATCH"),
		LogLevel:           getenv("LOG_LEVEL"),
		LogFormat:          getenv("LOG_FORMAT"),
	}
	return cfg, p.err
}

// envParser parses typed variables and keeps the first error.
type envParser struct {
	getenv func(string) string
	err    error
}

func (p *envParser) fail(key, val string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, val, err)
	}
}

func (p *envParser) duration(key string) time.Duration {
	v := p.getenv(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
	}
	return d
}

func (p *envParser) int(key string) int {
	v := p.getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
	}
	return n
}

func (p *envParser) bool(key string) bool {
	v := p.getenv(key)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
	}
	return b
}

// Option configures additional App behavior.
type Option func(*App)

// WithStore uses s instead of opening the configured database. The caller
// keeps ownership of s.
func WithStore(s store.Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithSender replaces the mail sender chosen from the SMTP settings.
func WithSender(s notify.Sender) Option {
	return func(a *App) {
		a.sender = s
	}
}

// WithLogger replaces the logger built from LogLevel and LogFormat.
func WithLogger(l zerolog.Logger) Option {
	return func(a *App) {
		a.Log = l
		a.customLogger = true
	}
}

// WithBcryptCost sets the cost for newly hashed passwords.
func WithBcryptCost(cost int) Option {
	return func(a *App) {
		a.bcryptCost = cost
	}
}
