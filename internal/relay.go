package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mobileauth/civic-relay/internal/civic"
	"github.com/mobileauth/civic-relay/internal/config"
	"github.com/mobileauth/civic-relay/internal/crypto"
	"github.com/mobileauth/civic-relay/internal/log"
	"github.com/mobileauth/civic-relay/internal/server"
	"github.com/mobileauth/civic-relay/internal/session"
	"github.com/mobileauth/civic-relay/internal/token"
)

// Relay is the assembled application: session store, provider adapter, token
// issuer, and the HTTP server in front of them.
type Relay struct {
	config     config.Config
	httpServer *server.HTTPServer
	store      session.Store
	cleanup    *session.CleanupManager
}

// NewRelay builds the relay with all dependencies wired
func NewRelay(ctx context.Context, cfg config.Config) (*Relay, error) {
	log.LogInfoWithFields("relay", "Building auth relay", map[string]any{
		"port":          cfg.Port,
		"session_store": string(cfg.SessionStore),
	})

	store, err := setupStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup session store: %w", err)
	}

	// The raw session secret never signs anything directly; each signing
	// context gets its own derived key.
	cookieKey, err := crypto.DeriveKey([]byte(cfg.SessionSecret), "session-cookie")
	if err != nil {
		return nil, err
	}
	sessions := session.NewManager(store, cookieKey, cfg.CookieSecure, cfg.SessionTTL)

	adapter, err := civic.New(civic.Config{
		ClientID:              cfg.ClientID,
		ClientSecret:          cfg.ClientSecret,
		RedirectURL:           cfg.RedirectURL,
		PostLogoutRedirectURL: cfg.PostLogoutURL,
		DiscoveryURL:          cfg.DiscoveryURL,
		AuthURL:               cfg.AuthURL,
		TokenURL:              cfg.TokenURL,
		UserInfoURL:           cfg.UserInfoURL,
		Scopes:                cfg.Scopes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to setup provider adapter: %w", err)
	}

	issuer := token.NewIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL)

	handlers := server.NewAuthHandlers(adapter, issuer, sessions, cfg.SuccessRedirect)

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", handlers.LoginHandler)
	mux.HandleFunc("/auth/callback", handlers.CallbackHandler)
	mux.Handle("/healthz", server.NewHealthHandler())

	handler := server.ChainMiddleware(mux,
		server.NewCORSMiddleware(cfg.AllowedOrigins),
		server.NewLoggerMiddleware("http"),
		server.NewRecoverMiddleware("http"),
	)

	return &Relay{
		config:     cfg,
		httpServer: server.NewHTTPServer(handler, fmt.Sprintf(":%d", cfg.Port)),
		store:      store,
		cleanup:    session.NewCleanupManager(store, cfg.SessionCleanupInterval),
	}, nil
}

func setupStore(ctx context.Context, cfg config.Config) (session.Store, error) {
	switch cfg.SessionStore {
	case config.SessionStoreFirestore:
		return session.NewFirestoreStore(ctx, cfg.GCPProject, cfg.FirestoreDatabase, cfg.FirestoreCollection, cfg.SessionTTL)
	default:
		return session.NewMemoryStore(cfg.SessionTTL), nil
	}
}

// Run starts the relay and blocks until shutdown
func (r *Relay) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r.cleanup.Start(ctx)

	errChan := make(chan error, 1)
	go func() {
		if err := r.httpServer.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		log.LogInfoWithFields("relay", "Received shutdown signal", map[string]any{
			"signal": sig.String(),
		})
	case err := <-errChan:
		log.LogError("Shutting down after error: %v", err)
		runErr = err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := r.httpServer.Stop(shutdownCtx); err != nil {
		log.LogError("HTTP server shutdown error: %v", err)
	}
	r.cleanup.Stop()
	if err := r.store.Close(); err != nil {
		log.LogError("Session store close error: %v", err)
	}

	log.Logf("Auth relay stopped")
	return runErr
}
