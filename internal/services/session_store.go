package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	domain "github.com/avicolanorte/api/internal/domain"
)

var (
	errSessionClockRequired = errors.New("session store: clock is required")

	// ErrSessionInvalidInput indicates the caller supplied an empty user id.
	ErrSessionInvalidInput = errors.New("session store: invalid input")
)

// SessionStore holds the ephemeral per-user dialogue state. Sessions live in
// process memory only; a missing session is indistinguishable from a fresh
// idle one, so losing the map on restart is safe.
//
// Mutations from the same user are serialised through a per-user lock because
// WhatsApp can deliver two messages from one customer close together and a
// last-write-wins save would drop cart lines. Different users never contend.
type SessionStore struct {
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*sessionEntry
}

type sessionEntry struct {
	mu      sync.Mutex
	session domain.Session
}

// SessionStoreDeps wires the clock for the session store.
type SessionStoreDeps struct {
	Clock func() time.Time
}

// NewSessionStore constructs an in-memory session store.
func NewSessionStore(deps SessionStoreDeps) (*SessionStore, error) {
	if deps.Clock == nil {
		return nil, errSessionClockRequired
	}
	return &SessionStore{
		now:     func() time.Time { return deps.Clock().UTC() },
		entries: make(map[string]*sessionEntry),
	}, nil
}

// Load returns a copy of the user's session, creating a fresh idle session
// when none exists.
func (s *SessionStore) Load(userID string) (domain.Session, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return domain.Session{}, ErrSessionInvalidInput
	}

	entry := s.entry(uid)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return cloneSession(entry.session), nil
}

// Save replaces the user's session wholesale. Callers that read-modify-write
// must use Mutate instead; Save exists for restoring externally captured state.
func (s *SessionStore) Save(userID string, session domain.Session) error {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return ErrSessionInvalidInput
	}

	entry := s.entry(uid)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	session.UserID = uid
	entry.session = cloneSession(session)
	return nil
}

// Mutate runs fn as the user's critical section: fn sees the live session and
// its edits are kept only when it returns nil. LastActiveAt is stamped on
// every successful mutation so the sweep sees the user as active.
func (s *SessionStore) Mutate(ctx context.Context, userID string, fn func(session *domain.Session) error) error {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return ErrSessionInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	entry := s.entry(uid)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	working := cloneSession(entry.session)
	working.UserID = uid
	if err := fn(&working); err != nil {
		return err
	}
	working.LastActiveAt = s.now()
	entry.session = working
	return nil
}

// Sweep discards sessions idle longer than maxIdle and reports how many were
// removed. Entries busy in a Mutate are skipped and picked up next round.
func (s *SessionStore) Sweep(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	swept := 0
	for uid, entry := range s.entries {
		if !entry.mu.TryLock() {
			continue
		}
		idle := entry.session.LastActiveAt.Before(cutoff)
		entry.mu.Unlock()
		if idle {
			delete(s.entries, uid)
			swept++
		}
	}
	return swept
}

// Len reports the number of live sessions, for readiness metrics.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *SessionStore) entry(uid string) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[uid]
	if !ok {
		entry = &sessionEntry{
			session: domain.Session{
				UserID:       uid,
				Mode:         domain.ModeIdle,
				LastActiveAt: s.now(),
			},
		}
		s.entries[uid] = entry
	}
	return entry
}

func cloneSession(session domain.Session) domain.Session {
	out := session
	if len(session.Cart) > 0 {
		out.Cart = make([]domain.CartLine, len(session.Cart))
		copy(out.Cart, session.Cart)
	}
	return out
}
