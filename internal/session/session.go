// Package session carries the per-request session identity and flash messages.
//
// A Session travels between requests as an HS256-signed JWT in an HttpOnly
// cookie. The middleware materialises it once per request and stores it in the
// request context; handlers read and mutate that explicit object and call
// Manager.Save before writing the response.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CookieName is the name of the session cookie
const CookieName = "session"

// Session is the state of one browser session
type Session struct {
	ID        string
	Username  string
	AccountID string
	Flashes   []string
	ExpiresAt time.Time
}

// New returns a fresh anonymous session
func New() *Session {
	return &Session{ID: uuid.NewString()}
}

// Authenticated reports whether a user is logged in
func (s *Session) Authenticated() bool {
	return s.Username != ""
}

// IsOwner reports whether the logged-in user is the given owner
func (s *Session) IsOwner(owner string) bool {
	return s.Authenticated() && s.Username == owner
}

// Login records the identity and rotates the session ID.
// accountID ties the session to this registration of the username.
func (s *Session) Login(username, accountID string) {
	s.ID = uuid.NewString()
	s.Username = username
	s.AccountID = accountID
}

// Logout clears the identity and rotates the session ID
func (s *Session) Logout() {
	s.ID = uuid.NewString()
	s.Username = ""
	s.AccountID = ""
}

// AddFlash queues a message for the next page view
func (s *Session) AddFlash(msg string) {
	s.Flashes = append(s.Flashes, msg)
}

// PopFlashes returns and clears queued messages
func (s *Session) PopFlashes() []string {
	flashes := s.Flashes
	s.Flashes = nil
	return flashes
}

// Store persists IDs of sessions that were logged out and confirms that a
// session's account still exists
type Store interface {
	RevokeSession(ctx context.Context, id string, expiresAt time.Time) error
	SessionActive(ctx context.Context, id, username, accountID string) (bool, error)
}

// Manager encodes sessions to cookies and back
type Manager struct {
	secret  []byte
	ttl     time.Duration
	secure  bool
	store   Store
	log     *logrus.Logger
	now     func() time.Time
}

// NewManager initializes a session manager
func NewManager(secret string, ttl time.Duration, secure bool, store Store, log *logrus.Logger) *Manager {
	return &Manager{
		secret:  []byte(secret),
		ttl:     ttl,
		secure:  secure,
		store:   store,
		log:     log,
		now:     time.Now,
	}
}

type claims struct {
	Username string   `json:"usr,omitempty"`
	Account  string   `json:"acc,omitempty"`
	Flashes  []string `json:"fl,omitempty"`
	jwt.RegisteredClaims
}

// Load returns the session carried by the request, or a new anonymous one
func (m *Manager) Load(r *http.Request) *Session {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return New()
	}

	sess, err := m.Decode(cookie.Value)
	if err != nil {
		m.log.Debugf("Discarding session cookie: %v", err)
		return New()
	}

	if sess.Authenticated() {
		active, err := m.store.SessionActive(r.Context(), sess.ID, sess.Username, sess.AccountID)
		if err != nil {
			m.log.Errorf("Failed to check session: %v", err)
			return New()
		}
		if !active {
			m.log.Debugf("Discarding revoked session of %s", sess.Username)
			return New()
		}
	}
	return sess
}

// Encode signs the session into a token string
func (m *Manager) Encode(s *Session) (string, error) {
	now := m.now()
	s.ExpiresAt = now.Add(m.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: s.Username,
		Account:  s.AccountID,
		Flashes:  s.Flashes,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

// Decode verifies a token string and returns the session it carries
func (m *Manager) Decode(token string) (*Session, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}
	if c.ID == "" {
		return nil, errors.New("invalid session token: missing id")
	}

	sess := &Session{ID: c.ID, Username: c.Username, AccountID: c.Account, Flashes: c.Flashes}
	if c.ExpiresAt != nil {
		sess.ExpiresAt = c.ExpiresAt.Time
	}
	return sess, nil
}

// Save writes the session cookie; call before the response header is written
func (m *Manager) Save(w http.ResponseWriter, s *Session) error {
	value, err := m.Encode(s)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Revoke blocks the session's current ID until it would have expired
func (m *Manager) Revoke(ctx context.Context, s *Session) error {
	expiresAt := s.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = m.now().Add(m.ttl)
	}
	return m.store.RevokeSession(ctx, s.ID, expiresAt)
}

type contextKey struct{}

// NewContext returns a context carrying the session
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the request's session, or a new anonymous one if none is attached
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(contextKey{}).(*Session); ok && s != nil {
		return s
	}
	return New()
}
