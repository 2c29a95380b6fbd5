package agrosite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestConfigFromEnv(t *testing.T) {
	cfg, err := ConfigFromEnv(envMap(map[string]string{
		"SITE_NAME":           "Agro Norte",
		"ADDR":                ":9000",
		"DATABASE_DRIVER":     "postgres",
		"DATABASE_DSN":        "postgres://agro@localhost/agro",
		"SESSION_SECRET":      "s1",
		"JWT_SECRET":          "j1",
		"TOKEN_TTL":           "2h",
		"COOKIE_SECURE":       "true",
		"SMTP_PORT":           "2525",
		"MAIL_TO":             "ops@example.com, ,sales@example.com",
		"OUTBOX_MAX_ATTEMPTS": "3",
	}))
	require.NoError(t, err)

	assert.Equal(t, "Agro Norte", cfg.Name)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.Equal(t, []string{"ops@example.com", "sales@example.com"}, cfg.MailTo)
	assert.Equal(t, 3, cfg.OutboxMaxAttempts)
	assert.Zero(t, cfg.RequestTimeout, "unset values stay zero until defaults apply")
}

func TestConfigFromEnvInvalid(t *testing.T) {
	tests := map[string]map[string]string{
		"duration": {"TOKEN_TTL": "soon"},
		"int":      {"SMTP_PORT": "smtp"},
		"bool":     {"COOKIE_SECURE": "maybe"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ConfigFromEnv(envMap(env))
			assert.Error(t, err)
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg SiteConfig
	cfg.setDefaults()

	assert.Equal(t, "Agrosite", cfg.Name)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "data/agrosite.db", cfg.DatabaseDSN)
	assert.Equal(t, "data/uploads", cfg.UploadDir)
	assert.Equal(t, 12*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 5, cfg.LoginMaxAttempts)
	assert.Equal(t, time.Minute, cfg.LoginWindow)
	assert.Equal(t, 10*time.Second, cfg.OutboxPollInterval)
	assert.Equal(t, 5, cfg.OutboxMaxAttempts)
	assert.Equal(t, 20, cfg.OutboxBatch)
}

func TestConfigValidate(t *testing.T) {
	cfg := SiteConfig{SessionSecret: "s", JWTSecret: "j"}
	cfg.setDefaults()
	require.NoError(t, cfg.validate())

	missing := cfg
	missing.JWTSecret = ""
	assert.ErrorContains(t, missing.validate(), "JWTSecret")

	missing = cfg
	missing.SessionSecret = ""
	assert.ErrorContains(t, missing.validate(), "SessionSecret")

	bad := cfg
	bad.DatabaseDriver = "mysql"
	assert.Error(t, bad.validate())

	relay := cfg
	relay.SMTPHost = "smtp.example.com"
	assert.ErrorContains(t, relay.validate(), "MailTo")
	relay.MailTo = []string{"ops@example.com"}
	assert.NoError(t, relay.validate())
}
