// Package session tracks browser sessions, logins and anti-forgery tokens.
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/your-org/todostack/internal/clock"
	"github.com/your-org/todostack/internal/domain"
)

// Session is the server-side state behind a session cookie
type Session struct {
	ID           string
	CSRFToken    string
	UserID       string
	UserName     string
	UserEmail    string
	UserRole     domain.Role
	IsSuperAdmin bool
	AuthTime     time.Time
	LastSeen     time.Time
}

// Authenticated reports whether a user is logged in
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != ""
}

// CanWrite reports whether the logged in user may change the list
func (s *Session) CanWrite() bool {
	return s.Authenticated() && s.UserRole.CanWrite()
}

// IsAdmin reports whether the logged in user may manage accounts
func (s *Session) IsAdmin() bool {
	return s.Authenticated() && s.UserRole == domain.RoleAdmin
}

func (s *Session) clearUser() {
	s.UserID = ""
	s.UserName = ""
	s.UserEmail = ""
	s.UserRole = ""
	s.IsSuperAdmin = false
	s.AuthTime = time.Time{}
}

// Authenticator verifies credentials and resolves the current state of an account
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.PublicUser, error)
}

// Limiter tracks failed logins per client
type Limiter interface {
	IsRateLimited(ctx context.Context, id string) (bool, error)
	RemainingTime(ctx context.Context, id string) (time.Duration, error)
	RecordFailure(ctx context.Context, id string) (domain.LoginAttempt, error)
	Clear(ctx context.Context, id string) error
}

// Manager drives the session state machine: anonymous, authenticated,
// and back to anonymous on logout or once the lifetime has passed since
// the last authenticated request.
type Manager struct {
	store    *Store
	users    Authenticator
	limiter  Limiter
	clock    clock.Clock
	lifetime time.Duration
	logger   *zap.Logger
}

// NewManager creates a new session manager
func NewManager(store *Store, users Authenticator, limiter Limiter, clk clock.Clock, lifetime time.Duration, logger *zap.Logger) *Manager {
	if clk == nil {
		clk = clock.Real{}
	}
	if lifetime <= 0 {
		lifetime = defaultLifetime
	}
	return &Manager{
		store:    store,
		users:    users,
		limiter:  limiter,
		clock:    clk,
		lifetime: lifetime,
		logger:   logger,
	}
}

// randomToken returns 256 random bits as 64 hex characters
func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (m *Manager) newSession(ctx context.Context) (*Session, error) {
	id, err := randomToken()
	if err != nil {
		return nil, err
	}
	csrf, err := randomToken()
	if err != nil {
		return nil, err
	}
	sess := &Session{ID: id, CSRFToken: csrf}
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (m *Manager) timedOut(sess *Session) bool {
	return m.clock.Now().Sub(sess.AuthTime) > m.lifetime
}

// Start resolves the session behind id, creating an anonymous one when id
// is unknown. created reports that a new cookie must be issued.
func (m *Manager) Start(ctx context.Context, id string) (sess *Session, created bool, err error) {
	if existing, ok := m.store.Get(ctx, id); ok {
		if existing.Authenticated() && m.timedOut(existing) {
			m.logger.Info("session expired", zap.String("user_id", existing.UserID))
			existing.clearUser()
		}
		stored, err := m.store.Update(ctx, existing)
		if err != nil {
			return nil, false, err
		}
		if stored {
			return existing, false, nil
		}
	}

	sess, err = m.newSession(ctx)
	if err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

// Check reports whether sess is authenticated. A session past its lifetime
// or whose user was deleted is logged out; a live one gets its auth time
// refreshed and the user's current name, email and role.
func (m *Manager) Check(ctx context.Context, sess *Session) (bool, error) {
	if !sess.Authenticated() {
		return false, nil
	}
	if m.timedOut(sess) {
		sess.clearUser()
		_, err := m.store.Update(ctx, sess)
		return false, err
	}

	// role changes and deletions take effect on the next request
	user, err := m.users.Get(ctx, sess.UserID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		m.logger.Info("session user no longer exists", zap.String("user_id", sess.UserID))
		sess.clearUser()
		_, err = m.store.Update(ctx, sess)
		return false, err
	case err != nil:
		return false, err
	}
	sess.UserName = user.Name
	sess.UserEmail = user.Email
	sess.UserRole = user.Role
	sess.IsSuperAdmin = user.IsSuperAdmin

	sess.AuthTime = m.clock.Now()
	stored, err := m.store.Update(ctx, sess)
	if err != nil {
		return false, err
	}
	if !stored {
		// logged out or rotated by another request
		sess.clearUser()
		return false, nil
	}
	return true, nil
}

// Login verifies credentials for the client identified by clientID.
// On success the old session is discarded and a new one with a fresh id
// and anti-forgery token is returned.
func (m *Manager) Login(ctx context.Context, sess *Session, clientID, email, password string) (*Session, *domain.User, error) {
	limited, err := m.limiter.IsRateLimited(ctx, clientID)
	if err != nil {
		return nil, nil, err
	}
	if limited {
		remaining, err := m.limiter.RemainingTime(ctx, clientID)
		if err != nil {
			return nil, nil, err
		}
		now := m.clock.Now()
		wait := strings.TrimSpace(humanize.RelTime(now, now.Add(remaining), "", ""))
		m.logger.Warn("login rejected, client locked out",
			zap.String("client", clientID),
			zap.Duration("remaining", remaining),
		)
		return nil, nil, domain.NewError(domain.ErrRateLimited, "Too many login attempts. Try again in %s", wait)
	}

	user, err := m.users.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			if _, recErr := m.limiter.RecordFailure(ctx, clientID); recErr != nil {
				return nil, nil, recErr
			}
			m.logger.Info("login failed", zap.String("client", clientID))
		}
		return nil, nil, err
	}

	if err := m.limiter.Clear(ctx, clientID); err != nil {
		return nil, nil, err
	}

	if sess != nil {
		if err := m.store.Delete(ctx, sess.ID); err != nil {
			return nil, nil, err
		}
	}
	rotated, err := m.newSession(ctx)
	if err != nil {
		return nil, nil, err
	}
	rotated.UserID = user.ID
	rotated.UserName = user.Name
	rotated.UserEmail = user.Email
	rotated.UserRole = user.Role
	rotated.IsSuperAdmin = user.IsSuperAdmin
	rotated.AuthTime = m.clock.Now()
	if err := m.store.Save(ctx, rotated); err != nil {
		return nil, nil, err
	}

	m.logger.Info("user logged in", zap.String("user_id", user.ID), zap.String("client", clientID))
	return rotated, user, nil
}

// Logout discards sess and returns a fresh anonymous session
func (m *Manager) Logout(ctx context.Context, sess *Session) (*Session, error) {
	if sess != nil {
		if err := m.store.Delete(ctx, sess.ID); err != nil {
			return nil, err
		}
		if sess.Authenticated() {
			m.logger.Info("user logged out", zap.String("user_id", sess.UserID))
		}
	}
	return m.newSession(ctx)
}

// ValidateCSRF compares token with the session token in constant time
func ValidateCSRF(sess *Session, token string) bool {
	if sess == nil || sess.CSRFToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(sess.CSRFToken), []byte(token)) == 1
}

type contextKey struct{}

// WithSession stores sess in ctx
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the session stored by WithSession
func FromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(contextKey{}).(*Session)
	return sess
}
