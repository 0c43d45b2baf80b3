package memory

import (
	"sync"

	"assessment-session-service/internal/app"
)

// SessionRegistry is an in-memory implementation of app.SessionRegistry.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*app.Session),
	}
}

func (r *SessionRegistry) Get(assessmentID string) (*app.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[assessmentID]
	return session, ok
}

func (r *SessionRegistry) Put(assessmentID string, session *app.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[assessmentID] = session
}

func (r *SessionRegistry) Release(assessmentID string, session *app.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.sessions[assessmentID]; ok && current == session {
		delete(r.sessions, assessmentID)
	}
}
