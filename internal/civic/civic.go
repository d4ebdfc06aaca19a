// Package civic wraps the Civic identity provider as an OAuth2/OIDC client.
// The adapter is process-wide and stateless; all per-browser auth state lives
// in the session passed explicitly into each call.
package civic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/mobileauth/civic-relay/internal/crypto"
	"github.com/mobileauth/civic-relay/internal/log"
	"github.com/mobileauth/civic-relay/internal/session"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// Session keys written by the adapter. Namespaced so unrelated session data
// cannot collide with auth state.
const (
	keyState    = "civic:oauth_state"
	keyVerifier = "civic:pkce_verifier"
	keyTokens   = "civic:tokens"
	keyUser     = "civic:user"
)

// Config configures the provider client.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// PostLogoutRedirectURL is forwarded to the provider's end-session flow.
	PostLogoutRedirectURL string

	// DiscoveryURL for OIDC discovery (optional if endpoints are provided
	// directly).
	DiscoveryURL string

	// Direct endpoint configuration (used if DiscoveryURL is not set).
	AuthURL     string
	TokenURL    string
	UserInfoURL string

	Scopes []string
}

// endpoints is the resolved provider endpoint set
type endpoints struct {
	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// discoveryDocument represents the OIDC discovery document
type discoveryDocument struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserInfoEndpoint      string `json:"userinfo_endpoint"`
	EndSessionEndpoint    string `json:"end_session_endpoint"`
	Issuer                string `json:"issuer"`
}

// Adapter bridges the HTTP relay and the Civic provider.
type Adapter struct {
	cfg Config

	mu       sync.RWMutex
	resolved *endpoints

	// Discovery is fetched lazily; singleflight collapses concurrent
	// fetches into one network call.
	group singleflight.Group
}

// New creates a provider adapter.
func New(cfg Config) (*Adapter, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("clientId is required")
	}
	if cfg.RedirectURL == "" {
		return nil, fmt.Errorf("redirectUrl is required")
	}

	a := &Adapter{cfg: cfg}
	if len(a.cfg.Scopes) == 0 {
		a.cfg.Scopes = []string{"openid", "email", "profile"}
	}

	if cfg.DiscoveryURL == "" {
		if cfg.AuthURL == "" || cfg.TokenURL == "" || cfg.UserInfoURL == "" {
			return nil, fmt.Errorf("either discoveryUrl or all endpoints (authUrl, tokenUrl, userInfoUrl) must be provided")
		}
		a.resolved = &endpoints{
			AuthURL:     cfg.AuthURL,
			TokenURL:    cfg.TokenURL,
			UserInfoURL: cfg.UserInfoURL,
		}
	}

	return a, nil
}

// BuildLoginURL returns the provider authorization URL for this session and
// stores the correlation state (nonce and PKCE verifier) in it.
func (a *Adapter) BuildLoginURL(ctx context.Context, sess *session.Session) (string, error) {
	ep, err := a.endpoints(ctx)
	if err != nil {
		return "", adapterErr("discovery", err)
	}

	state, err := crypto.GenerateSecureToken()
	if err != nil {
		return "", adapterErr("state", err)
	}
	verifier := oauth2.GenerateVerifier()

	if err := sess.Set(ctx, keyState, state); err != nil {
		return "", adapterErr("session write", err)
	}
	if err := sess.Set(ctx, keyVerifier, verifier); err != nil {
		return "", adapterErr("session write", err)
	}

	conf := a.oauthConfig(ep)
	return conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), nil
}

// ResolveOAuthAccessCode validates the callback state against the session,
// exchanges the authorization code, fetches the user profile, and stores the
// resulting material in the session. The stored state is consumed on first
// use: a replayed or unmatched state always fails.
func (a *Adapter) ResolveOAuthAccessCode(ctx context.Context, sess *session.Session, code, state string) error {
	if code == "" || state == "" {
		return adapterErr("callback", fmt.Errorf("missing code or state parameter"))
	}

	ep, err := a.endpoints(ctx)
	if err != nil {
		return adapterErr("discovery", err)
	}

	storedState, err := sess.Get(ctx, keyState)
	if err != nil {
		return adapterErr("state", ErrStateMismatch)
	}
	verifier, err := sess.Get(ctx, keyVerifier)
	if err != nil {
		return adapterErr("state", ErrStateMismatch)
	}

	// Consume the correlation state before talking to the provider so a
	// second callback with the same state fails regardless of outcome.
	if err := sess.DeleteKey(ctx, keyState); err != nil {
		return adapterErr("session write", err)
	}
	if err := sess.DeleteKey(ctx, keyVerifier); err != nil {
		return adapterErr("session write", err)
	}

	if state != storedState {
		return adapterErr("state", ErrStateMismatch)
	}

	conf := a.oauthConfig(ep)
	token, err := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return adapterErr("exchange", err)
	}

	user, err := a.fetchUserInfo(ctx, conf, ep.UserInfoURL, token)
	if err != nil {
		return adapterErr("userinfo", err)
	}

	tokenJSON, err := json.Marshal(token)
	if err != nil {
		return adapterErr("token", err)
	}
	if err := sess.Set(ctx, keyTokens, string(tokenJSON)); err != nil {
		return adapterErr("session write", err)
	}
	if err := sess.Set(ctx, keyUser, string(user)); err != nil {
		return adapterErr("session write", err)
	}

	log.LogDebugWithFields("civic", "Authorization code resolved", map[string]any{
		"session": sess.ID(),
	})
	return nil
}

// GetUser returns the raw user payload resolved by a prior
// ResolveOAuthAccessCode call. The payload is opaque to the relay; its shape
// belongs to the provider.
func (a *Adapter) GetUser(ctx context.Context, sess *session.Session) (json.RawMessage, error) {
	user, err := sess.Get(ctx, keyUser)
	if err != nil {
		return nil, adapterErr("user", ErrNotAuthenticated)
	}
	return json.RawMessage(user), nil
}

func (a *Adapter) oauthConfig(ep *endpoints) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     a.cfg.ClientID,
		ClientSecret: a.cfg.ClientSecret,
		RedirectURL:  a.cfg.RedirectURL,
		Scopes:       a.cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  ep.AuthURL,
			TokenURL: ep.TokenURL,
		},
	}
}

// endpoints returns the resolved endpoint set, fetching the discovery
// document on first use.
func (a *Adapter) endpoints(ctx context.Context) (*endpoints, error) {
	a.mu.RLock()
	ep := a.resolved
	a.mu.RUnlock()
	if ep != nil {
		return ep, nil
	}

	v, err, _ := a.group.Do("discovery", func() (any, error) {
		discovery, err := fetchDiscovery(ctx, a.cfg.DiscoveryURL)
		if err != nil {
			return nil, err
		}
		resolved := &endpoints{
			AuthURL:     discovery.AuthorizationEndpoint,
			TokenURL:    discovery.TokenEndpoint,
			UserInfoURL: discovery.UserInfoEndpoint,
		}

		a.mu.Lock()
		a.resolved = resolved
		a.mu.Unlock()

		log.LogInfoWithFields("civic", "Provider discovery resolved", map[string]any{
			"issuer": discovery.Issuer,
		})
		return resolved, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*endpoints), nil
}

func fetchDiscovery(ctx context.Context, discoveryURL string) (*discoveryDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build discovery request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("discovery endpoint returned status %d: %s", resp.StatusCode, body)
	}

	var discovery discoveryDocument
	if err := json.NewDecoder(resp.Body).Decode(&discovery); err != nil {
		return nil, fmt.Errorf("failed to decode discovery document: %w", err)
	}

	if discovery.AuthorizationEndpoint == "" || discovery.TokenEndpoint == "" || discovery.UserInfoEndpoint == "" {
		return nil, fmt.Errorf("discovery document missing required endpoints")
	}

	return &discovery, nil
}

func (a *Adapter) fetchUserInfo(ctx context.Context, conf *oauth2.Config, userInfoURL string, token *oauth2.Token) (json.RawMessage, error) {
	client := conf.Client(ctx, token)
	resp, err := client.Get(userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("failed to get user info: status %d: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read user info: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("user info response is not valid JSON")
	}
	return json.RawMessage(body), nil
}
