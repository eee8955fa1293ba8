// Package session holds the process-wide login state: the access token and
// the user it belongs to. It is initialized from persisted storage, mutated
// by login and logout, and torn down when the backend rejects the token.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nissyi-gh/remind/internal/model"
)

const (
	tokenKey = "accessToken"
	userKey  = "currentUser"
)

// ErrNotAuthenticated is returned when an operation needs a live session.
var ErrNotAuthenticated = errors.New("not logged in")

// KV persists session values between runs.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(keys ...string) error
	UpdatedAt(key string) (time.Time, bool, error)
}

// Claims are the token fields the client reads. The signature is never
// verified here; the backend does that.
type Claims struct {
	UserID    int
	ExpiresAt time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// Session is safe for concurrent use.
type Session struct {
	kv     KV
	now    func() time.Time
	logger *slog.Logger

	mu    sync.RWMutex
	token string
	user  model.User
	since time.Time
	hooks []func()
}

// New restores the persisted session. An expired or unreadable token is
// discarded and the session starts logged out.
func New(kv KV, opts ...Option) (*Session, error) {
	s := &Session{kv: kv, now: time.Now, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}

	token, ok, err := kv.Get(tokenKey)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if !ok || token == "" {
		return s, nil
	}
	claims, err := ParseClaims(token)
	if err != nil || s.expired(claims) {
		s.logger.Info("discarding persisted token", "err", err)
		if err := kv.Delete(tokenKey, userKey); err != nil {
			return nil, fmt.Errorf("clear session: %w", err)
		}
		return s, nil
	}

	var user model.User
	if raw, ok, err := kv.Get(userKey); err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	} else if ok {
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			s.logger.Warn("persisted user unreadable", "err", err)
		}
	}
	if user.ID == 0 {
		user.ID = claims.UserID
	}

	since, _, err := kv.UpdatedAt(tokenKey)
	if err != nil {
		s.logger.Warn("persisted login time unreadable", "err", err)
	}

	s.token = token
	s.user = user
	s.since = since
	if !since.IsZero() {
		s.logger.Info("session restored", "user", user.Username, "age", s.now().Sub(since).Round(time.Second))
	}
	return s, nil
}

// ParseClaims reads user_id and exp from an access token without verifying it.
func ParseClaims(token string) (Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}, fmt.Errorf("parse token: %w", err)
	}
	var c Claims
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if id, ok := mc["user_id"].(float64); ok {
		c.UserID = int(id)
	}
	return c, nil
}

func (s *Session) expired(c Claims) bool {
	return !c.ExpiresAt.IsZero() && !s.now().Before(c.ExpiresAt)
}

// Token returns the bearer token, or "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the logged-in user.
func (s *Session) User() model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Since returns when the current login was established, or the zero time
// when logged out or unknown.
func (s *Session) Since() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.since
}

// Authenticated reports whether a token is held and has not expired.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token == "" {
		return false
	}
	c, err := ParseClaims(token)
	return err == nil && !s.expired(c)
}

// Establish stores a fresh login.
func (s *Session) Establish(tok model.AuthToken) error {
	if tok.Access == "" {
		return ErrNotAuthenticated
	}
	user := tok.User
	if user.ID == 0 {
		if c, err := ParseClaims(tok.Access); err == nil {
			user.ID = c.UserID
		}
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.kv.Set(tokenKey, tok.Access); err != nil {
		return err
	}
	if err := s.kv.Set(userKey, string(raw)); err != nil {
		return err
	}

	s.mu.Lock()
	s.token = tok.Access
	s.user = user
	s.since = s.now()
	s.mu.Unlock()
	s.logger.Info("logged in", "user", user.Username, "user_id", user.ID)
	return nil
}

// OnTeardown registers fn to run after every Teardown, e.g. to show the
// login screen.
func (s *Session) OnTeardown(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Teardown clears the persisted credentials and runs the teardown hooks.
// It is used both for logout and for a rejected token.
func (s *Session) Teardown() {
	s.mu.Lock()
	s.token = ""
	s.user = model.User{}
	s.since = time.Time{}
	hooks := append([]func(){}, s.hooks...)
	s.mu.Unlock()

	if err := s.kv.Delete(tokenKey, userKey); err != nil {
		s.logger.Error("clear persisted session", "err", err)
	}
	s.logger.Info("session torn down")
	for _, h := range hooks {
		h()
	}
}
