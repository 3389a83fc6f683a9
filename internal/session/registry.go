package session

import (
	"sort"
	"sync"

	"avaneesh/dnp3-tester/internal/telemetry"
	"avaneesh/dnp3-tester/pkg/logger"
)

// DefaultID is used when a request names no session
const DefaultID = "default"

// Registry maps session ids to services, creating them on first use.
// Entries live until Close.
type Registry struct {
	engine Engine
	store  *telemetry.Store
	logger logger.Logger
	opts   Options

	mu       sync.Mutex
	sessions map[string]*Service
}

// NewRegistry creates a registry whose sessions share engine and store
func NewRegistry(engine Engine, store *telemetry.Store, log logger.Logger, opts Options) *Registry {
	return &Registry{
		engine:   engine,
		store:    store,
		logger:   logger.OrNoOp(log),
		opts:     opts,
		sessions: make(map[string]*Service),
	}
}

// Get returns the session for id, creating it if needed. An empty id means DefaultID.
func (r *Registry) Get(id string) *Service {
	if id == "" {
		id = DefaultID
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		return s
	}
	s := NewService(id, r.engine, r.store, r.logger, r.opts)
	r.sessions[id] = s
	r.logger.Debug("registry: created session %s", id)
	return s
}

// Lookup returns an existing session without creating one
func (r *Registry) Lookup(id string) (*Service, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// IDs returns the known session ids, sorted
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Store returns the shared telemetry store
func (r *Registry) Store() *telemetry.Store {
	return r.store
}

// Close stops every session
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := make([]*Service, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
