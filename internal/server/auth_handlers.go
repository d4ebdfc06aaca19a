package server

import (
	"net/http"
	"net/url"

	"github.com/mobileauth/civic-relay/internal/civic"
	jsonwriter "github.com/mobileauth/civic-relay/internal/json"
	"github.com/mobileauth/civic-relay/internal/log"
	"github.com/mobileauth/civic-relay/internal/session"
	"github.com/mobileauth/civic-relay/internal/token"
)

// AuthHandlers provides the relay's two auth routes with dependency injection
type AuthHandlers struct {
	adapter         *civic.Adapter
	issuer          *token.Issuer
	sessions        *session.Manager
	successRedirect string
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(adapter *civic.Adapter, issuer *token.Issuer, sessions *session.Manager, successRedirect string) *AuthHandlers {
	return &AuthHandlers{
		adapter:         adapter,
		issuer:          issuer,
		sessions:        sessions,
		successRedirect: successRedirect,
	}
}

// LoginHandler handles GET /auth/login. It binds the request to its session,
// asks the adapter for a provider login URL, and returns it as JSON. All
// failures collapse into a generic 500; detail stays in the server log.
func (h *AuthHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonwriter.WriteMethodNotAllowed(w)
		return
	}

	sess, err := h.sessions.Attach(w, r)
	if err != nil {
		log.LogError("Login failed to attach session: %v", err)
		jsonwriter.WriteInternalServerError(w, "buildLoginUrl failed")
		return
	}

	loginURL, err := h.adapter.BuildLoginURL(r.Context(), sess)
	if err != nil {
		log.LogError("Login failed to build login URL: %v", err)
		jsonwriter.WriteInternalServerError(w, "buildLoginUrl failed")
		return
	}

	_ = jsonwriter.Write(w, map[string]string{"loginUrl": loginURL})
}

// CallbackHandler handles GET /auth/callback. It resolves the authorization
// code against the session, mints the application token, and redirects the
// browser to the configured success URL with the token attached.
//
// Unlike login, every failure here is surfaced as a structured error rather
// than an unhandled one: state mismatches and provider rejections return 400,
// issuance failures 500. Provider error detail is logged, never forwarded.
func (h *AuthHandlers) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonwriter.WriteMethodNotAllowed(w)
		return
	}

	sess, err := h.sessions.Attach(w, r)
	if err != nil {
		log.LogError("Callback failed to attach session: %v", err)
		jsonwriter.WriteInternalServerError(w, "callback failed")
		return
	}

	ctx := r.Context()
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if err := h.adapter.ResolveOAuthAccessCode(ctx, sess, code, state); err != nil {
		log.LogErrorWithFields("auth", "Callback code resolution failed", map[string]any{
			"session": sess.ID(),
			"error":   err.Error(),
		})
		jsonwriter.WriteBadRequest(w, "callback failed")
		return
	}

	user, err := h.adapter.GetUser(ctx, sess)
	if err != nil {
		log.LogError("Callback failed to read resolved user: %v", err)
		jsonwriter.WriteInternalServerError(w, "callback failed")
		return
	}

	signed, err := h.issuer.Issue(user)
	if err != nil {
		log.LogError("Callback failed to issue token: %v", err)
		jsonwriter.WriteInternalServerError(w, "token issuance failed")
		return
	}

	redirect, err := appendTokenParam(h.successRedirect, signed)
	if err != nil {
		log.LogError("Callback failed to build redirect URL: %v", err)
		jsonwriter.WriteInternalServerError(w, "callback failed")
		return
	}

	http.Redirect(w, r, redirect, http.StatusFound)
}

// appendTokenParam adds token=<signed> to the success redirect base,
// preserving any query it already carries.
func appendTokenParam(base, signed string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", signed)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
