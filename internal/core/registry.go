package core

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mvett/watchsync/internal/domain"
)

// Registry is the concurrency-safe map from session key to Session.
// Membership changes go through the registry lock so the empty-check on
// departure and a racing first-Join on the same key resolve in one
// exclusion domain: exactly one session survives, never a deleted one
// with a live member. State mutation never takes this lock.
type Registry struct {
	ctx         context.Context
	notifyDelay time.Duration

	mu       sync.Mutex
	sessions map[domain.SessionKey]*sessionEntry
}

type sessionEntry struct {
	session *Session
	cancel  context.CancelFunc
}

func NewRegistry(ctx context.Context, notifyDelay time.Duration) *Registry {
	return &Registry{
		ctx:         ctx,
		notifyDelay: notifyDelay,
		sessions:    make(map[domain.SessionKey]*sessionEntry),
	}
}

// Join returns the session for key, creating it if absent, and adds the
// member. It cannot fail.
func (r *Registry) Join(key domain.SessionKey, id ConnectionID, viewer domain.Viewer, conn Conn) *Session {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[key]
	if !ok {
		s := newSession(key, r.notifyDelay, now)
		ctx, cancel := context.WithCancel(r.ctx)
		go s.notes.run(ctx, s)
		e = &sessionEntry{session: s, cancel: cancel}
		r.sessions[key] = e
		log.Info().Str("module", "core.registry").Str("key", string(key)).Msg("session created")
	}
	e.session.addMember(id, viewer, conn, now)
	return e.session
}

// Leave removes the member and deletes the session if it became empty,
// re-validated here so a concurrent Join cannot lose its session.
// Reports whether the session was deleted.
func (r *Registry) Leave(key domain.SessionKey, id ConnectionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[key]
	if !ok {
		return false
	}
	if e.session.removeMember(id) > 0 {
		return false
	}
	e.cancel()
	delete(r.sessions, key)
	log.Info().Str("module", "core.registry").Str("key", string(key)).Msg("session deleted")
	return true
}

func (r *Registry) Get(key domain.SessionKey) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[key]
	if !ok {
		return nil, false
	}
	return e.session, true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// List snapshots every live session for the session directory.
func (r *Registry) List() []SessionInfo {
	now := time.Now()

	r.mu.Lock()
	entries := make([]*sessionEntry, 0, len(r.sessions))
	for _, e := range r.sessions {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	out := make([]SessionInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.session.Info(now))
	}
	return out
}
