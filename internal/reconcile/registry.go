package reconcile

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Registry tracks live sessions so HTTP handlers can address them by ID and
// the background worker can flush their pending writes.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	rows     Rows
	defaults Options
}

// NewRegistry creates an empty registry with default session options.
func NewRegistry(rows Rows, defaults Options) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		rows:     rows,
		defaults: defaults,
	}
}

// Open creates a session, applies option overrides, and loads the current
// expected set into it.
func (r *Registry) Open(ctx context.Context, override *Options) (*Session, error) {
	opts := r.defaults
	if override != nil {
		if len(override.Prefixes) > 0 {
			opts.Prefixes = override.Prefixes
		}
		if override.CodeLength > 0 {
			opts.CodeLength = override.CodeLength
		}
		if override.SimilarityThreshold > 0 {
			opts.SimilarityThreshold = override.SimilarityThreshold
		}
		if override.TopN > 0 {
			opts.TopN = override.TopN
		}
	}

	sess := NewSession(uuid.NewString(), r.rows, opts)
	if err := sess.LoadExpected(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions[sess.ID] = sess
	r.mu.Unlock()
	return sess, nil
}

// Get looks up a live session.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// Close drops a session from the registry.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// FlushAll retries pending writes on every session; returns the total still
// unsynced. Called by the periodic best-effort persist worker.
func (r *Registry) FlushAll(ctx context.Context) int {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	remaining := 0
	for _, s := range sessions {
		remaining += s.Flush(ctx)
	}
	return remaining
}
