// Package session issues opaque session ids and tracks whether each one has
// presented the shared access code.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"travellog/internal/metrics"
	"travellog/pkg/logger"
)

const DefaultTTL = 24 * time.Hour

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID            string    `json:"id"`
	Authenticated bool      `json:"authenticated"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store is the persistence backend of the session service.
// Get returns ErrNotFound for unknown ids.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Service implements create / authenticate / validate / invalidate on top of
// a Store. Unknown, expired and unauthenticated sessions are indistinguishable
// to callers.
type Service struct {
	store   Store
	matcher Matcher
	ttl     time.Duration
	now     func() time.Time
}

func NewService(store Store, matcher Matcher, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		store:   store,
		matcher: matcher,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Create registers a new unauthenticated session.
func (s *Service) Create(ctx context.Context) (*Session, error) {
	id, err := generateID()
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess := &Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// Authenticate marks the session authenticated when code matches the access
// code. A mismatch leaves the session untouched.
func (s *Service) Authenticate(ctx context.Context, id, code string) (bool, error) {
	sess, err := s.lookup(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.SessionAuthAttempts.WithLabelValues("failure").Inc()
			return false, nil
		}
		metrics.SessionAuthAttempts.WithLabelValues("error").Inc()
		return false, err
	}

	if !s.matcher.Match(code) {
		metrics.SessionAuthAttempts.WithLabelValues("failure").Inc()
		return false, nil
	}

	sess.Authenticated = true
	sess.ExpiresAt = s.now().Add(s.ttl)
	if err := s.store.Save(ctx, sess); err != nil {
		metrics.SessionAuthAttempts.WithLabelValues("error").Inc()
		return false, fmt.Errorf("save session: %w", err)
	}

	metrics.SessionAuthAttempts.WithLabelValues("success").Inc()
	return true, nil
}

// IsValid reports whether id names a live authenticated session and, if so,
// slides its expiry forward.
func (s *Service) IsValid(ctx context.Context, id string) bool {
	sess, err := s.lookup(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.LogError("Session lookup failed: %v", err)
		}
		return false
	}
	if !sess.Authenticated {
		return false
	}

	sess.ExpiresAt = s.now().Add(s.ttl)
	if err := s.store.Save(ctx, sess); err != nil {
		logger.LogWarn("Session expiry refresh failed: %v", err)
	}
	return true
}

// Exists reports whether id names a live session, authenticated or not.
func (s *Service) Exists(ctx context.Context, id string) bool {
	_, err := s.lookup(ctx, id)
	return err == nil
}

// Invalidate removes the session. Unknown ids are not an error.
func (s *Service) Invalidate(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// lookup fetches a session and purges it when expired.
func (s *Service) lookup(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.IsExpired(s.now()) {
		if err := s.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			logger.LogWarn("Expired session purge failed: %v", err)
		}
		return nil, ErrNotFound
	}
	return sess, nil
}

// generateID returns 32 random bytes, hex encoded.
func generateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
