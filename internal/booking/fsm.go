// Package booking implements the consultation booking wizard.
package booking

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State represents the current wizard step.
type State string

const (
	StateServiceSelection  State = "service_selection"
	StateDateTimeSelection State = "datetime_selection"
	StateContactDetails    State = "contact_details"
	StateConfirmation      State = "confirmation"
)

// Step returns the 1-based position of the state in the wizard.
func (s State) Step() int {
	switch s {
	case StateServiceSelection:
		return 1
	case StateDateTimeSelection:
		return 2
	case StateContactDetails:
		return 3
	case StateConfirmation:
		return 4
	}
	return 0
}

// Data holds the values collected by the wizard.
type Data struct {
	Service     string `json:"service,omitempty"`
	ServiceName string `json:"service_name,omitempty"`
	Date        string `json:"date,omitempty"`
	Time        string `json:"time,omitempty"`
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Company     string `json:"company,omitempty"`
	Message     string `json:"message,omitempty"`
	BookingID   int64  `json:"booking_id,omitempty"`
}

// Session represents one visitor's pass through the wizard.
type Session struct {
	ID        string
	State     State
	Data      Data
	LastError string
	StartedAt time.Time
	lastSeen  atomic.Int64
	mu        sync.Mutex
}

// NewSession creates a session in the first step.
func NewSession() *Session {
	now := time.Now()
	s := &Session{
		ID:        uuid.NewString(),
		State:     StateServiceSelection,
		StartedAt: now,
	}
	s.lastSeen.Store(now.UnixNano())
	return s
}

// setState updates the state. The caller holds s.mu.
func (s *Session) setState(state State) {
	s.State = state
	s.touch()
}

// touch marks the session as used.
func (s *Session) touch() {
	s.lastSeen.Store(time.Now().UnixNano())
}

// UpdatedAt returns the last time the session was used.
func (s *Session) UpdatedAt() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// IsExpired checks if session has been idle longer than timeout.
// It does not take s.mu, so a step in flight never blocks the store.
func (s *Session) IsExpired(timeout time.Duration) bool {
	return time.Since(s.UpdatedAt()) > timeout
}

// SessionStore manages wizard sessions.
type SessionStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	timeout  time.Duration
}

// NewSessionStore creates a new session store.
func NewSessionStore(timeout time.Duration) *SessionStore {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		timeout:  timeout,
	}
}

// Create stores and returns a fresh session.
func (ss *SessionStore) Create() *Session {
	session := NewSession()
	ss.mu.Lock()
	ss.sessions[session.ID] = session
	ss.mu.Unlock()
	return session
}

// Get returns a live session or nil.
func (ss *SessionStore) Get(id string) *Session {
	ss.mu.RLock()
	session, ok := ss.sessions[id]
	ss.mu.RUnlock()
	if !ok || session.IsExpired(ss.timeout) {
		return nil
	}
	return session
}

// Delete removes a session.
func (ss *SessionStore) Delete(id string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, id)
}

// Len returns the number of stored sessions, expired ones included.
func (ss *SessionStore) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

// Cleanup removes expired sessions.
func (ss *SessionStore) Cleanup() int {
	ss.mu.RLock()
	var expired []string
	for id, session := range ss.sessions {
		if session.IsExpired(ss.timeout) {
			expired = append(expired, id)
		}
	}
	ss.mu.RUnlock()
	if len(expired) == 0 {
		return 0
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()
	removed := 0
	for _, id := range expired {
		if session, ok := ss.sessions[id]; ok && session.IsExpired(ss.timeout) {
			delete(ss.sessions, id)
			removed++
		}
	}
	return removed
}

// RunCleanup removes expired sessions every interval until ctx is done.
func (ss *SessionStore) RunCleanup(ctx context.Context, interval time.Duration, logger *zerolog.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := ss.Cleanup(); n > 0 {
				logger.Debug().Int("removed", n).Msg("expired wizard sessions removed")
			}
		}
	}
}

// FSM manages state transitions for the wizard.
type FSM struct {
	transitions map[State][]State
}

// NewFSM creates the linear wizard FSM. Confirmation is terminal.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[State][]State{
			StateServiceSelection:  {StateDateTimeSelection},
			StateDateTimeSelection: {StateContactDetails},
			StateContactDetails:    {StateConfirmation},
			StateConfirmation:      {},
		},
	}
}

// CanTransition checks if transition is allowed.
func (f *FSM) CanTransition(from, to State) bool {
	allowed, ok := f.transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Transition updates the session state if the transition is allowed. The caller holds session.mu.
func (f *FSM) Transition(session *Session, to State) bool {
	if f.CanTransition(session.State, to) {
		session.setState(to)
		return true
	}
	return false
}
