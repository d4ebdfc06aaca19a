package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// SessionStoreKind selects the session store backend
type SessionStoreKind string

const (
	SessionStoreMemory    SessionStoreKind = "memory"
	SessionStoreFirestore SessionStoreKind = "firestore"
)

// Config holds the full relay configuration, sourced from environment
// variables. Secrets stay in the environment; nothing here is written back.
type Config struct {
	Port           int      `env:"PORT" envDefault:"3000"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	SessionSecret string `env:"SESSION_SECRET"`
	JWTSecret     string `env:"JWT_SECRET"`

	// Provider client configuration
	ClientID      string `env:"CIVIC_CLIENT_ID"`
	ClientSecret  string `env:"CIVIC_CLIENT_SECRET"`
	RedirectURL   string `env:"REDIRECT_URL"`
	PostLogoutURL string `env:"POST_LOGOUT_URL"`

	// Provider endpoints: either a discovery URL or all three direct endpoints
	DiscoveryURL string   `env:"CIVIC_DISCOVERY_URL"`
	AuthURL      string   `env:"CIVIC_AUTH_URL"`
	TokenURL     string   `env:"CIVIC_TOKEN_URL"`
	UserInfoURL  string   `env:"CIVIC_USERINFO_URL"`
	Scopes       []string `env:"CIVIC_SCOPES" envSeparator:"," envDefault:"openid,email,profile"`

	SuccessRedirect string `env:"FLUTTER_SUCCESS_REDIRECT"`

	SessionStore           SessionStoreKind `env:"SESSION_STORE" envDefault:"memory"`
	GCPProject             string           `env:"GCP_PROJECT"`
	FirestoreDatabase      string           `env:"FIRESTORE_DATABASE"`
	FirestoreCollection    string           `env:"FIRESTORE_COLLECTION" envDefault:"relay_sessions"`
	SessionTTL             time.Duration    `env:"SESSION_TTL" envDefault:"24h"`
	SessionCleanupInterval time.Duration    `env:"SESSION_CLEANUP_INTERVAL" envDefault:"5m"`

	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`
	TokenTTL     time.Duration `env:"TOKEN_TTL" envDefault:"1h"`
}

// Load parses the environment and validates the result. Any error here is
// fatal at startup: the relay must not run with undefined behavior.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the resolved configuration
func Validate(cfg *Config) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("PORT must be a valid port number (got %d)", cfg.Port)
	}
	if len(cfg.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_ORIGINS is required")
	}
	for _, origin := range cfg.AllowedOrigins {
		if origin == "" {
			return fmt.Errorf("ALLOWED_ORIGINS contains an empty origin")
		}
	}
	if len(cfg.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters (got %d). Generate with: openssl rand -base64 32", len(cfg.SessionSecret))
	}
	if len(cfg.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters (got %d). Generate with: openssl rand -base64 32", len(cfg.JWTSecret))
	}
	if cfg.ClientID == "" {
		return fmt.Errorf("CIVIC_CLIENT_ID is required")
	}
	if err := requireURL("REDIRECT_URL", cfg.RedirectURL); err != nil {
		return err
	}
	if err := requireURL("FLUTTER_SUCCESS_REDIRECT", cfg.SuccessRedirect); err != nil {
		return err
	}

	if cfg.DiscoveryURL == "" {
		if cfg.AuthURL == "" || cfg.TokenURL == "" || cfg.UserInfoURL == "" {
			return fmt.Errorf("either CIVIC_DISCOVERY_URL or all of CIVIC_AUTH_URL, CIVIC_TOKEN_URL and CIVIC_USERINFO_URL must be set")
		}
	}

	switch cfg.SessionStore {
	case SessionStoreMemory:
	case SessionStoreFirestore:
		if cfg.GCPProject == "" {
			return fmt.Errorf("GCP_PROJECT is required when SESSION_STORE=firestore")
		}
	default:
		return fmt.Errorf("SESSION_STORE must be %q or %q (got %q)", SessionStoreMemory, SessionStoreFirestore, cfg.SessionStore)
	}

	if cfg.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if cfg.SessionCleanupInterval <= 0 {
		return fmt.Errorf("SESSION_CLEANUP_INTERVAL must be positive")
	}
	if cfg.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}

	return nil
}

func requireURL(name, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL (got %q)", name, value)
	}
	return nil
}
