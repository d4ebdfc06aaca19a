package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mobileauth/civic-relay/internal/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("cookie-signing-key-for-tests-123")

func TestAttachCreatesSessionAndSetsCookie(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	mgr := NewManager(store, testSigningKey, false, time.Hour)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/auth/login", nil)

	sess, err := mgr.Attach(w, r)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID())

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure) // non-secure by default
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
}

func TestAttachReusesValidCookie(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	mgr := NewManager(store, testSigningKey, false, time.Hour)

	// First request establishes the session
	w1 := httptest.NewRecorder()
	r1 := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	sess1, err := mgr.Attach(w1, r1)
	require.NoError(t, err)

	// Second request carries the cookie back
	r2 := httptest.NewRequest(http.MethodGet, "/auth/callback", nil)
	r2.AddCookie(w1.Result().Cookies()[0])
	w2 := httptest.NewRecorder()
	sess2, err := mgr.Attach(w2, r2)
	require.NoError(t, err)

	assert.Equal(t, sess1.ID(), sess2.ID())
	assert.Empty(t, w2.Result().Cookies(), "existing session should not reset the cookie")
}

func TestAttachRejectsForgedCookie(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	mgr := NewManager(store, testSigningKey, false, time.Hour)

	forged := "stolen-session-id." + crypto.SignData("stolen-session-id", []byte("wrong-key-wrong-key-wrong-key-12"))
	r := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: forged})
	w := httptest.NewRecorder()

	sess, err := mgr.Attach(w, r)
	require.NoError(t, err)
	assert.NotEqual(t, "stolen-session-id", sess.ID())

	// A fresh cookie replaces the forged one
	require.Len(t, w.Result().Cookies(), 1)
}

func TestAttachRejectsMalformedCookie(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	mgr := NewManager(store, testSigningKey, false, time.Hour)

	for _, value := range []string{"", "no-signature", ".only-signature"} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: CookieName, Value: value})
		w := httptest.NewRecorder()

		sess, err := mgr.Attach(w, r)
		require.NoError(t, err)
		assert.NotEmpty(t, sess.ID())
	}
}
