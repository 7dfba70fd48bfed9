package media

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long an untouched session is kept.
const DefaultSessionTTL = 30 * time.Minute

// ErrUnknownSession is returned for ids the registry does not hold.
var ErrUnknownSession = errors.New("media: unknown session")

type sessionEntry struct {
	session *Session
	touched time.Time
}

// Sessions tracks in-flight upload sessions by id. Sessions not touched
// within the TTL are abandoned and forgotten.
type Sessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*sessionEntry
	ttl      time.Duration
	now      func() time.Time
}

// SessionsOption customises a Sessions registry.
type SessionsOption func(*Sessions)

// WithSessionTTL overrides DefaultSessionTTL.
func WithSessionTTL(d time.Duration) SessionsOption {
	return func(r *Sessions) {
		if d > 0 {
			r.ttl = d
		}
	}
}

// WithSessionClock replaces time.Now.
func WithSessionClock(now func() time.Time) SessionsOption {
	return func(r *Sessions) {
		if now != nil {
			r.now = now
		}
	}
}

// NewSessions returns an empty registry.
func NewSessions(opts ...SessionsOption) *Sessions {
	r := &Sessions{
		sessions: make(map[uuid.UUID]*sessionEntry),
		ttl:      DefaultSessionTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open starts a new empty session. Expired sessions are swept first.
func (r *Sessions) Open() (uuid.UUID, *Session) {
	r.Sweep()
	id := uuid.New()
	s := NewSession()
	r.mu.Lock()
	r.sessions[id] = &sessionEntry{session: s, touched: r.now()}
	r.mu.Unlock()
	return id, s
}

// Get returns the session for id and refreshes its TTL.
func (r *Sessions) Get(id uuid.UUID) (*Session, error) {
	now := r.now()
	r.mu.Lock()
	e, ok := r.sessions[id]
	if ok && now.Sub(e.touched) > r.ttl {
		delete(r.sessions, id)
		r.mu.Unlock()
		e.session.Abandon()
		return nil, ErrUnknownSession
	}
	defer r.mu.Unlock()
	if !ok {
		return nil, ErrUnknownSession
	}
	e.touched = now
	return e.session, nil
}

// Close abandons and forgets the session.
func (r *Sessions) Close(id uuid.UUID) {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		e.session.Abandon()
	}
}

// Sweep abandons sessions idle for longer than the TTL and reports how many
// were removed.
func (r *Sessions) Sweep() int {
	now := r.now()
	var expired []*Session
	r.mu.Lock()
	for id, e := range r.sessions {
		if now.Sub(e.touched) > r.ttl {
			expired = append(expired, e.session)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()
	for _, s := range expired {
		s.Abandon()
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (r *Sessions) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Len is the number of open sessions.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
