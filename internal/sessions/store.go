// Package sessions hosts client upload sessions: one orchestrator per opened
// link, kept in memory and closed after a period of inactivity.
package sessions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"photoreq-backend/internal/requests"
	"photoreq-backend/internal/shared/telemetry"
	"photoreq-backend/internal/upload"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

// Factory builds the orchestrator for a newly opened link.
type Factory func(req requests.PhotoRequest) (*upload.Orchestrator, error)

type entry struct {
	orch    *upload.Orchestrator
	touched time.Time
}

// Store keeps live sessions keyed by id.
type Store struct {
	newSession Factory
	ttl        time.Duration
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

// NewStore returns an empty store. Sessions idle for longer than ttl are
// closed by Sweep.
func NewStore(factory Factory, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Store{
		newSession: factory,
		ttl:        ttl,
		now:        time.Now,
		sessions:   make(map[string]*entry),
	}
}

// Open starts a session for a decoded request.
func (s *Store) Open(req requests.PhotoRequest) (string, *upload.Orchestrator, error) {
	orch, err := s.newSession(req)
	if err != nil {
		return "", nil, err
	}
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &entry{orch: orch, touched: s.now()}
	s.mu.Unlock()
	return id, orch, nil
}

// Get returns a live session and marks it as active.
func (s *Store) Get(id string) (*upload.Orchestrator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.touched = s.now()
	return e.orch, nil
}

// Delete closes and forgets a session.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	return e.orch.Close()
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many
// were removed. A session with a submission in flight counts as active.
func (s *Store) Sweep() int {
	now := s.now()
	cutoff := now.Add(-s.ttl)
	var expired []*upload.Orchestrator
	s.mu.Lock()
	for id, e := range s.sessions {
		if !e.touched.Before(cutoff) {
			continue
		}
		if e.orch.Submitting() {
			e.touched = now
			continue
		}
		expired = append(expired, e.orch)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, orch := range expired {
		if err := orch.Close(); err != nil {
			telemetry.Warn("sessions.close_failed", map[string]any{"err": err})
		}
	}
	if len(expired) > 0 {
		telemetry.Info("sessions.swept", map[string]any{"expired": len(expired)})
	}
	return len(expired)
}

// Run sweeps on every interval until ctx is done, then closes every session.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Close tears down every session.
func (s *Store) Close() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*entry)
	s.mu.Unlock()
	for _, e := range all {
		_ = e.orch.Close()
	}
}
