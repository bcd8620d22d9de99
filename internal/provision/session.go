package provision

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// SessionCookie is the cookie carrying the setup session token.
const SessionCookie = "roompanel_session"

// Sessions tracks authenticated setup sessions. Tokens expire on their own;
// there is nothing to persist, a reboot simply logs everyone out.
type Sessions struct {
	tokens *cache.Cache
	ttl    time.Duration
}

// NewSessions creates an empty session set whose tokens live for ttl after
// their last use.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{tokens: cache.New(ttl, 2*ttl), ttl: ttl}
}

// Issue mints a session token and registers it.
func (s *Sessions) Issue() string {
	token := uuid.NewString()
	s.tokens.SetDefault(token, struct{}{})
	return token
}

// Valid reports whether token belongs to a live session and refreshes its
// expiry.
func (s *Sessions) Valid(token string) bool {
	if token == "" {
		return false
	}
	if _, ok := s.tokens.Get(token); !ok {
		return false
	}
	s.tokens.SetDefault(token, struct{}{})
	return true
}

// Revoke ends the session for token.
func (s *Sessions) Revoke(token string) {
	s.tokens.Delete(token)
}
