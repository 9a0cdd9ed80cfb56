package live

import (
	"sync"

	"huddle/pkg/logger"
)

// Manager tracks at most one live session per chat. Opening a new view
// in a chat displaces the old one, and shutdown can sweep every session
// that is still running.
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	log      *logger.Logger
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[int64]*Session),
		log:      logger.Get().With("component", "live_manager"),
	}
}

// Put installs the chat's session, stopping any session it displaces.
func (m *Manager) Put(chatID int64, s *Session) {
	m.mu.Lock()
	prior := m.sessions[chatID]
	m.sessions[chatID] = s
	m.mu.Unlock()

	if prior != nil {
		m.log.Debugw("Displacing live session", "chat_id", chatID, "session_id", prior.ID())
		prior.Stop()
	}
}

// Get returns the chat's session, if any.
func (m *Manager) Get(chatID int64) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[chatID]
	return s, ok
}

// Release forgets the chat's session when it still is the given one.
// The identity check keeps a stale teardown from dropping a replacement
// that arrived in between.
func (m *Manager) Release(chatID int64, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[chatID]; ok && s.ID() == sessionID {
		delete(m.sessions, chatID)
	}
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StopAll stops every tracked session and empties the manager.
func (m *Manager) StopAll() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = make(map[int64]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.Stop()
	}

	if len(all) > 0 {
		m.log.Infow("Stopped all live sessions", "count", len(all))
	}
}
