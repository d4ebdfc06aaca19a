package session

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mobileauth/civic-relay/internal/crypto"
	"github.com/mobileauth/civic-relay/internal/log"
)

// CookieName is the session-identity cookie
const CookieName = "relay_session"

// Manager correlates browser requests with sessions through a signed cookie.
// The cookie value is "<sid>.<hmac>"; a bad or missing signature simply gets
// a fresh session, never access to an existing one.
type Manager struct {
	store      Store
	signingKey []byte
	secure     bool
	maxAge     time.Duration
}

// NewManager creates a session manager. signingKey should be derived from the
// session secret, not the raw secret itself.
func NewManager(store Store, signingKey []byte, secure bool, maxAge time.Duration) *Manager {
	return &Manager{
		store:      store,
		signingKey: signingKey,
		secure:     secure,
		maxAge:     maxAge,
	}
}

// Attach resolves the request's session, creating one when the browser has no
// valid cookie, and ensures the cookie is present on the response.
func (m *Manager) Attach(w http.ResponseWriter, r *http.Request) (*Session, error) {
	if sid, ok := m.sessionIDFromCookie(r); ok {
		return New(sid, m.store), nil
	}

	sid, err := crypto.GenerateSecureToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}
	m.setCookie(w, sid)

	log.LogDebugWithFields("session", "New session created", map[string]any{
		"remote_addr": r.RemoteAddr,
	})
	return New(sid, m.store), nil
}

// sessionIDFromCookie extracts and verifies the session id carried by the
// request, if any.
func (m *Manager) sessionIDFromCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return "", false
	}

	sid, signature, ok := strings.Cut(c.Value, ".")
	if !ok || sid == "" {
		return "", false
	}
	if !crypto.ValidateSignedData(sid, signature, m.signingKey) {
		log.LogWarn("Rejected session cookie with invalid signature")
		return "", false
	}
	return sid, true
}

func (m *Manager) setCookie(w http.ResponseWriter, sid string) {
	value := sid + "." + crypto.SignData(sid, m.signingKey)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.maxAge.Seconds()),
	})
}
