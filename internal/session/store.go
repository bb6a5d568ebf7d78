// Package session holds the authenticated participant and the latest
// balance/portfolio snapshot the backend returned for them.
package session

import (
	"sync"
	"time"

	"bursa/internal/domain"
	"bursa/pkg/bursa"
)

// Session is an immutable view of the logged-in participant. Every backend
// round-trip produces a new Session value; existing ones are never edited.
type Session struct {
	Identity   string
	User       *domain.UserSnapshot
	Generation uint64
	StartedAt  time.Time
}

// Store owns the current session. Each Begin and End advances the
// generation, so results issued under an earlier login can be recognised
// and dropped.
type Store struct {
	mu  sync.RWMutex
	cur *Session
	gen uint64
	now func() time.Time
}

// NewStore returns a logged-out store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Begin starts a new session, replacing any existing one.
func (s *Store) Begin(identity string, user *domain.UserSnapshot) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if user == nil {
		user = &domain.UserSnapshot{Portfolio: map[string]float64{}}
	}
	s.cur = &Session{
		Identity:   identity,
		User:       user.Clone(),
		Generation: s.gen,
		StartedAt:  s.now(),
	}
	return s.cur
}

// Current returns the active session, or nil when logged out.
func (s *Store) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Generation returns the generation of the latest Begin or End.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Replace swaps in a new user snapshot if gen still identifies the active
// session. It reports whether the snapshot was applied.
func (s *Store) Replace(gen uint64, user *domain.UserSnapshot) bool {
	if user == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil || s.cur.Generation != gen {
		return false
	}
	next := *s.cur
	next.User = user.Clone()
	s.cur = &next
	return true
}

// End logs out. Pending results of the ended session will be rejected by
// Replace.
func (s *Store) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.cur = nil
}

// FromUserData converts a backend user payload into a snapshot. A nil
// payload yields nil.
func FromUserData(u *bursa.UserData) *domain.UserSnapshot {
	if u == nil {
		return nil
	}
	return (&domain.UserSnapshot{
		Balance:   u.Balance,
		Portfolio: u.Portfolio,
		Initial:   u.Initial,
	}).Clone()
}
