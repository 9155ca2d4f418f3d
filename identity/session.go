package identity

import (
	"context"
	"sync"
	"time"
)

// DefaultSessionTTL is how long a resolved user is reused before the
// provider is consulted again.
const DefaultSessionTTL = 24 * time.Hour

// Session caches the current user for the lifetime of a client session.
//
// A cached user is reused for the session TTL, but the access level is
// re-read from the provider on every cached hit so a role change takes
// effect without waiting out the TTL.
type Session struct {
	provider Provider
	ttl      time.Duration
	now      func() time.Time

	mu       sync.Mutex
	cached   *User
	cachedAt time.Time
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionTTL sets the reuse window. Defaults to DefaultSessionTTL.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(s *Session) {
		s.ttl = ttl
	}
}

// WithSessionClock sets the time source. Defaults to time.Now.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

// NewSession creates a session over the given provider.
func NewSession(provider Provider, opts ...SessionOption) *Session {
	s := &Session{
		provider: provider,
		ttl:      DefaultSessionTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// CurrentUser returns the session user, resolving through the provider on
// first use or after the TTL elapses. Returns nil when signed out.
func (s *Session) CurrentUser(ctx context.Context) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.now().Sub(s.cachedAt) < s.ttl {
		access, err := s.provider.AccessLevel(ctx, s.cached.UID)
		if err == nil && access.Valid() {
			s.cached.Access = access
		}
		u := *s.cached
		return &u, nil
	}

	user, err := s.provider.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.cached = nil
		return nil, nil
	}
	if !user.Access.Valid() {
		user.Access = AccessUser
	}
	cached := *user
	s.cached = &cached
	s.cachedAt = s.now()
	u := *user
	return &u, nil
}

// Invalidate drops the cached user; the next CurrentUser call resolves
// through the provider again.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
	s.cachedAt = time.Time{}
}
