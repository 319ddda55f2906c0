// Package conversation owns per-session message history and the accumulating
// candidate transaction. It is a pure state container: no external calls.
package conversation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hsaleh/chequeflow/internal/common"
	"github.com/hsaleh/chequeflow/internal/model"
)

// DefaultTTL is the idle window after which a session is evicted.
const DefaultTTL = 30 * time.Minute

// Store keeps live sessions in memory, keyed by opaque session key. Work for
// a single session is serialized through its entry mutex: a caller holds it
// for the whole turn via Acquire, and the eviction sweeper takes the same
// lock, so eviction never races an in-flight turn.
type Store struct {
	sessions map[string]*entry
	ttl      time.Duration
	mu       sync.RWMutex
}

type entry struct {
	session *model.Session
	mu      sync.Mutex
}

// New creates a store with the given idle TTL; zero means the default.
func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions: make(map[string]*entry),
		ttl:      ttl,
	}
}

// Create registers a new session and returns its key.
func (s *Store) Create() string {
	now := time.Now()
	sess := &model.Session{
		Key:          uuid.NewString(),
		State:        model.StateAwaitingMaterial,
		CreatedAt:    now,
		LastActivity: now,
	}

	s.mu.Lock()
	s.sessions[sess.Key] = &entry{session: sess}
	s.mu.Unlock()

	return sess.Key
}

// Get returns a snapshot of the session. The turns slice is copied so callers
// cannot mutate history.
func (s *Store) Get(key string) (*model.Session, error) {
	s.mu.RLock()
	e, ok := s.sessions[key]
	s.mu.RUnlock()
	if !ok {
		return nil, common.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshot(e.session), nil
}

// Acquire locks the session for exclusive use and returns a handle. The
// caller must Release the handle when the turn is finished.
func (s *Store) Acquire(key string) (*Handle, error) {
	s.mu.RLock()
	e, ok := s.sessions[key]
	s.mu.RUnlock()
	if !ok {
		return nil, common.ErrNotFound
	}

	e.mu.Lock()

	// The sweeper may have evicted the session while we waited on the lock.
	s.mu.RLock()
	_, alive := s.sessions[key]
	s.mu.RUnlock()
	if !alive {
		e.mu.Unlock()
		return nil, common.ErrNotFound
	}

	return &Handle{store: s, entry: e, key: key}, nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// StartSweeper evicts idle sessions on the given interval until ctx is done.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *Store) sweep() {
	s.mu.RLock()
	keys := make([]string, 0, len(s.sessions))
	for k := range s.sessions {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	cutoff := time.Now().Add(-s.ttl)
	for _, key := range keys {
		s.mu.RLock()
		e, ok := s.sessions[key]
		s.mu.RUnlock()
		if !ok {
			continue
		}

		// Same lock as a normal turn: an in-flight turn blocks eviction,
		// and its activity timestamp then disqualifies the session.
		e.mu.Lock()
		if e.session.LastActivity.Before(cutoff) {
			e.session.State = model.StateCancelled
			s.mu.Lock()
			delete(s.sessions, key)
			s.mu.Unlock()
			slog.Info("Evicted idle session", "session", key,
				"idle", time.Since(e.session.LastActivity))
		}
		e.mu.Unlock()
	}
}

func snapshot(sess *model.Session) *model.Session {
	cp := *sess
	cp.Turns = make([]model.Turn, len(sess.Turns))
	copy(cp.Turns, sess.Turns)
	if sess.Draft != nil {
		d := *sess.Draft
		cp.Draft = &d
	}
	return &cp
}

// Handle is an exclusive view of one session, valid until Release.
type Handle struct {
	store *Store
	entry *entry
	key   string
}

// Session returns the live session. Mutations outside the handle's methods
// are not allowed.
func (h *Handle) Session() *model.Session {
	return h.entry.session
}

// AppendTurn appends an immutable turn and returns its index.
func (h *Handle) AppendTurn(t model.Turn) int {
	if t.At.IsZero() {
		t.At = time.Now()
	}
	h.entry.session.Turns = append(h.entry.session.Turns, t)
	h.entry.session.LastActivity = time.Now()
	return len(h.entry.session.Turns) - 1
}

// MergeCandidate folds partial fields into the accumulator under the
// no-regression rule and returns the updated candidate.
func (h *Handle) MergeCandidate(partial model.Candidate) model.Candidate {
	h.entry.session.Candidate.Merge(partial)
	h.entry.session.LastActivity = time.Now()
	return h.entry.session.Candidate
}

// SetState moves the session to a new orchestrator state.
func (h *Handle) SetState(state model.SessionState) {
	h.entry.session.State = state
	h.entry.session.LastActivity = time.Now()
}

// SetDraft stores (or clears) the reconciled draft awaiting confirmation.
func (h *Handle) SetDraft(d *model.Draft) {
	h.entry.session.Draft = d
}

// Snapshot returns a copy of the session safe to return to callers after
// Release.
func (h *Handle) Snapshot() *model.Session {
	return snapshot(h.entry.session)
}

// Close destroys the session. The handle must still be released.
func (h *Handle) Close() {
	h.store.mu.Lock()
	delete(h.store.sessions, h.key)
	h.store.mu.Unlock()
}

// Release unlocks the session.
func (h *Handle) Release() {
	h.entry.mu.Unlock()
}
