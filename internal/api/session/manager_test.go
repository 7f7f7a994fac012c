package session

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/sheetfeedback/internal/domain/entities"
	"github.com/zatekoja/sheetfeedback/pkg/config"
)

func newTestManager(t *testing.T, header string) *Manager {
	t.Helper()
	m, err := NewManager(
		config.SessionConfig{CookieName: "feedback_session", Secret: "test-secret", MaxAge: time.Hour},
		config.IdentityConfig{EmailHeader: header},
	)
	require.NoError(t, err)
	return m
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "feedback_session" {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestManager_IssuesAndReusesSession(t *testing.T) {
	m := newTestManager(t, "")

	rec := httptest.NewRecorder()
	first, err := m.Session(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, first.RequestID, entities.MinSessionRequestID)
	assert.LessOrEqual(t, first.RequestID, entities.MaxSessionRequestID)

	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 3600, cookie.MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec2 := httptest.NewRecorder()
	again, err := m.Session(rec2, req)
	require.NoError(t, err)
	assert.Equal(t, first.RequestID, again.RequestID)
	assert.Empty(t, rec2.Result().Cookies(), "valid cookie must not be reissued")
}

func TestManager_RejectsTamperedCookie(t *testing.T) {
	m := newTestManager(t, "")
	m.random = bytes.NewReader(bytes.Repeat([]byte{0}, 64))

	forged := []string{
		"123",
		"123.bogus",
		"abc." + strings.Split(m.sign(123), ".")[1],
		"124." + strings.Split(m.sign(123), ".")[1],
		m.sign(0),
	}
	for _, value := range forged {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "feedback_session", Value: value})
		rec := httptest.NewRecorder()

		s, err := m.Session(rec, req)

		require.NoError(t, err)
		assert.Equal(t, entities.MinSessionRequestID, s.RequestID, value)
		sessionCookie(t, rec)

		_, ok := m.verify(value)
		assert.False(t, ok, value)
	}
}

func TestManager_CookieFromOtherSecretRejected(t *testing.T) {
	m := newTestManager(t, "")
	other, err := NewManager(config.SessionConfig{CookieName: "feedback_session", Secret: "another"}, config.IdentityConfig{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "feedback_session", Value: other.sign(4242)})
	rec := httptest.NewRecorder()

	s, err := m.Session(rec, req)
	require.NoError(t, err)
	assert.NotEqual(t, int64(4242), s.RequestID)
	sessionCookie(t, rec)
}

func TestManager_ClearMintsNewID(t *testing.T) {
	m := newTestManager(t, "")
	m.random = bytes.NewReader(append(bytes.Repeat([]byte{0}, 3), bytes.Repeat([]byte{1}, 3)...))

	rec := httptest.NewRecorder()
	first, err := m.Session(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(sessionCookie(t, rec))
	clearRec := httptest.NewRecorder()
	cleared, err := m.Clear(clearRec, req)
	require.NoError(t, err)

	assert.NotEqual(t, first.RequestID, cleared.RequestID)
	id, ok := m.verify(sessionCookie(t, clearRec).Value)
	require.True(t, ok)
	assert.Equal(t, cleared.RequestID, id)
}

func TestManager_ContactEmailFromHeader(t *testing.T) {
	m := newTestManager(t, "X-Forwarded-Email")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Email", "  me@corp.example ")
	s, err := m.Session(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Equal(t, "me@corp.example", s.ContactEmail)

	untrusted := newTestManager(t, "")
	s, err = untrusted.Session(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Empty(t, s.ContactEmail)
}

func TestManager_EphemeralSecret(t *testing.T) {
	m, err := NewManager(config.SessionConfig{CookieName: "s"}, config.IdentityConfig{})
	require.NoError(t, err)
	assert.Len(t, m.secret, 32)

	id, ok := m.verify(m.sign(77))
	assert.True(t, ok)
	assert.Equal(t, int64(77), id)
}
