package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Port:                   3000,
		AllowedOrigins:         []string{"https://app.example.com"},
		SessionSecret:          "session-secret-session-secret-12",
		JWTSecret:              "jwt-secret-jwt-secret-jwt-secret",
		ClientID:               "client-123",
		RedirectURL:            "https://relay.example.com/auth/callback",
		SuccessRedirect:        "https://app.example.com/logged-in",
		DiscoveryURL:           "https://auth.civic.com/.well-known/openid-configuration",
		SessionStore:           SessionStoreMemory,
		SessionTTL:             24 * time.Hour,
		SessionCleanupInterval: 5 * time.Minute,
		TokenTTL:               time.Hour,
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, Validate(&cfg))
}

func TestValidateRejectsMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing allowed origins",
			mutate:  func(c *Config) { c.AllowedOrigins = nil },
			wantErr: "ALLOWED_ORIGINS",
		},
		{
			name:    "empty origin entry",
			mutate:  func(c *Config) { c.AllowedOrigins = []string{"https://a.com", ""} },
			wantErr: "empty origin",
		},
		{
			name:    "short session secret",
			mutate:  func(c *Config) { c.SessionSecret = "short" },
			wantErr: "SESSION_SECRET",
		},
		{
			name:    "short jwt secret",
			mutate:  func(c *Config) { c.JWTSecret = "short" },
			wantErr: "JWT_SECRET",
		},
		{
			name:    "missing client id",
			mutate:  func(c *Config) { c.ClientID = "" },
			wantErr: "CIVIC_CLIENT_ID",
		},
		{
			name:    "missing redirect url",
			mutate:  func(c *Config) { c.RedirectURL = "" },
			wantErr: "REDIRECT_URL",
		},
		{
			name:    "relative redirect url",
			mutate:  func(c *Config) { c.RedirectURL = "/auth/callback" },
			wantErr: "absolute URL",
		},
		{
			name:    "missing success redirect",
			mutate:  func(c *Config) { c.SuccessRedirect = "" },
			wantErr: "FLUTTER_SUCCESS_REDIRECT",
		},
		{
			name: "no discovery and incomplete endpoints",
			mutate: func(c *Config) {
				c.DiscoveryURL = ""
				c.AuthURL = "https://auth.civic.com/oauth/auth"
			},
			wantErr: "CIVIC_DISCOVERY_URL",
		},
		{
			name: "firestore without project",
			mutate: func(c *Config) {
				c.SessionStore = SessionStoreFirestore
			},
			wantErr: "GCP_PROJECT",
		},
		{
			name:    "unknown session store",
			mutate:  func(c *Config) { c.SessionStore = "redis" },
			wantErr: "SESSION_STORE",
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Port = 0 },
			wantErr: "PORT",
		},
		{
			name:    "non-positive token ttl",
			mutate:  func(c *Config) { c.TokenTTL = 0 },
			wantErr: "TOKEN_TTL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := Validate(&cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateAcceptsDirectEndpoints(t *testing.T) {
	cfg := validConfig()
	cfg.DiscoveryURL = ""
	cfg.AuthURL = "https://auth.civic.com/oauth/auth"
	cfg.TokenURL = "https://auth.civic.com/oauth/token"
	cfg.UserInfoURL = "https://auth.civic.com/oauth/userinfo"
	require.NoError(t, Validate(&cfg))
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")
	t.Setenv("SESSION_SECRET", "session-secret-session-secret-12")
	t.Setenv("JWT_SECRET", "jwt-secret-jwt-secret-jwt-secret")
	t.Setenv("CIVIC_CLIENT_ID", "client-123")
	t.Setenv("REDIRECT_URL", "https://relay.example.com/auth/callback")
	t.Setenv("FLUTTER_SUCCESS_REDIRECT", "https://app.example.com/logged-in")
	t.Setenv("CIVIC_DISCOVERY_URL", "https://auth.civic.com/.well-known/openid-configuration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, SessionStoreMemory, cfg.SessionStore)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, []string{"openid", "email", "profile"}, cfg.Scopes)
}

func TestLoadFailsFastOnMissingOrigins(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("SESSION_SECRET", "session-secret-session-secret-12")
	t.Setenv("JWT_SECRET", "jwt-secret-jwt-secret-jwt-secret")
	t.Setenv("CIVIC_CLIENT_ID", "client-123")
	t.Setenv("REDIRECT_URL", "https://relay.example.com/auth/callback")
	t.Setenv("FLUTTER_SUCCESS_REDIRECT", "https://app.example.com/logged-in")
	t.Setenv("CIVIC_DISCOVERY_URL", "https://auth.civic.com/.well-known/openid-configuration")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALLOWED_ORIGINS")
}
