package channel

import (
	"fmt"
	"sync"

	"avaneesh/dnp3-tester/pkg/link"
)

// Session is a master or outstation bound to one link address on a channel
type Session interface {
	OnReceive(frame *link.Frame) error
	LinkAddress() uint16
	Type() SessionType
}

// SessionType identifies the type of session
type SessionType int

const (
	SessionTypeMaster SessionType = iota
	SessionTypeOutstation
)

// String returns string representation of SessionType
func (t SessionType) String() string {
	switch t {
	case SessionTypeMaster:
		return "Master"
	case SessionTypeOutstation:
		return "Outstation"
	default:
		return "Unknown"
	}
}

// Router delivers link frames to the session owning the destination address
type Router struct {
	mu       sync.RWMutex
	sessions map[uint16]Session
}

// NewRouter creates a new router
func NewRouter() *Router {
	return &Router{sessions: make(map[uint16]Session)}
}

// AddSession adds a session to the router
func (r *Router) AddSession(session Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	addr := session.LinkAddress()
	if _, exists := r.sessions[addr]; exists {
		return fmt.Errorf("session with address %d already exists", addr)
	}
	r.sessions[addr] = session
	return nil
}

// RemoveSession removes a session from the router
func (r *Router) RemoveSession(address uint16) {
	r.mu.Lock()
	delete(r.sessions, address)
	r.mu.Unlock()
}

// Route delivers frame to the session at its destination address
func (r *Router) Route(frame *link.Frame) error {
	r.mu.RLock()
	session, ok := r.sessions[frame.Destination]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("no session found for address %d", frame.Destination)
	}
	return session.OnReceive(frame)
}

// Count returns the number of registered sessions
func (r *Router) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
