package session

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/sheetfeedback/internal/domain/entities"
	"github.com/zatekoja/sheetfeedback/pkg/config"
)

// Manager owns the feedback session: a random request id kept in a signed
// cookie, plus the contact email an identity proxy may pass in a header.
type Manager struct {
	cookieName  string
	secret      []byte
	secure      bool
	maxAge      int
	emailHeader string
	random      io.Reader
}

// NewManager creates a session manager. Without a configured secret a random
// one is generated, so sessions do not survive a restart.
func NewManager(cfg config.SessionConfig, identity config.IdentityConfig) (*Manager, error) {
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		log.Warn().Msg("SESSION_SECRET not set; using an ephemeral key")
	}

	return &Manager{
		cookieName:  cfg.CookieName,
		secret:      secret,
		secure:      cfg.Secure,
		maxAge:      int(cfg.MaxAge.Seconds()),
		emailHeader: identity.EmailHeader,
		random:      rand.Reader,
	}, nil
}

// Session returns the caller's session, minting a new id and setting the
// cookie when the request carries none or a tampered one.
func (m *Manager) Session(w http.ResponseWriter, r *http.Request) (entities.Session, error) {
	if cookie, err := r.Cookie(m.cookieName); err == nil {
		if id, ok := m.verify(cookie.Value); ok {
			return entities.Session{RequestID: id, ContactEmail: m.contactEmail(r)}, nil
		}
	}
	return m.issue(w, r)
}

// Clear discards the current request id and issues a fresh one.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) (entities.Session, error) {
	return m.issue(w, r)
}

func (m *Manager) issue(w http.ResponseWriter, r *http.Request) (entities.Session, error) {
	id, err := m.newRequestID()
	if err != nil {
		return entities.Session{}, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    m.sign(id),
		Path:     "/",
		MaxAge:   m.maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return entities.Session{RequestID: id, ContactEmail: m.contactEmail(r)}, nil
}

func (m *Manager) newRequestID() (int64, error) {
	span := big.NewInt(entities.MaxSessionRequestID - entities.MinSessionRequestID + 1)
	n, err := rand.Int(m.random, span)
	if err != nil {
		return 0, fmt.Errorf("failed to generate request id: %w", err)
	}
	return n.Int64() + entities.MinSessionRequestID, nil
}

func (m *Manager) contactEmail(r *http.Request) string {
	if m.emailHeader == "" {
		return ""
	}
	return strings.TrimSpace(r.Header.Get(m.emailHeader))
}

func (m *Manager) sign(id int64) string {
	value := strconv.FormatInt(id, 10)
	h := hmac.New(sha256.New, m.secret)
	h.Write([]byte(value))
	return value + "." + base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func (m *Manager) verify(raw string) (int64, bool) {
	value, _, ok := strings.Cut(raw, ".")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id < entities.MinSessionRequestID || id > entities.MaxSessionRequestID {
		return 0, false
	}
	if !hmac.Equal([]byte(m.sign(id)), []byte(raw)) {
		return 0, false
	}
	return id, true
}
