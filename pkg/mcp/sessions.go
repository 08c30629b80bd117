package mcp

import (
	"sort"
	"sync"
)

// SessionRegistry maps operator names to MCP session IDs.
// Populated when an operator saves an assessment.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]string // operator → sessionID
}

// NewSessionRegistry creates a new empty SessionRegistry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]string)}
}

// Register associates an operator with a session ID, replacing any earlier
// session for the same operator.
func (r *SessionRegistry) Register(operator, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[operator] = sessionID
}

// SessionFor returns the session ID for the given operator, if connected.
func (r *SessionRegistry) SessionFor(operator string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sid, ok := r.sessions[operator]
	return sid, ok
}

// Operators returns the registered operator names, sorted.
func (r *SessionRegistry) Operators() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sessions))
	for op := range r.sessions {
		out = append(out, op)
	}
	sort.Strings(out)
	return out
}

// Remove drops every operator bound to the given session ID.
func (r *SessionRegistry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for op, sid := range r.sessions {
		if sid == sessionID {
			delete(r.sessions, op)
		}
	}
}
