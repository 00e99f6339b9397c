package repository

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/upawatch/upawatch/pkg/domain/interfaces"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/domain/types"
)

// Memory keeps admin sessions and the users they belong to. A user lives as long as one of
// its sessions; the backend stays the owner of accounts.
type Memory struct {
	mu       sync.RWMutex
	users    map[types.UserID]model.User
	sessions map[types.SessionID]model.Session
}

var _ interfaces.Repository = (*Memory)(nil)

// NewMemory creates a new memory repository
func NewMemory() *Memory {
	return &Memory{
		users:    make(map[types.UserID]model.User),
		sessions: make(map[types.SessionID]model.Session),
	}
}

// SaveUser stores a copy of the user claims taken from an access token
func (m *Memory) SaveUser(ctx context.Context, user *model.User) error {
	if user == nil || user.ID == "" {
		return goerr.New("user ID is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = *user
	return nil
}

// GetUser retrieves a user by ID
func (m *Memory) GetUser(ctx context.Context, id types.UserID) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, goerr.New("user not found", goerr.V("user_id", id))
	}
	return &user, nil
}

// SaveSession stores a copy of the session
func (m *Memory) SaveSession(ctx context.Context, session *model.Session) error {
	if session == nil || session.ID == "" {
		return goerr.New("session ID is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = *session
	return nil
}

// GetSession retrieves a session by ID. Expired sessions are reported as missing.
func (m *Memory) GetSession(ctx context.Context, id types.SessionID) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok || session.IsExpired() {
		return nil, goerr.Wrap(model.ErrSessionNotFound, "failed to get session", goerr.V("session_id", id))
	}
	return &session, nil
}

// DeleteSession deletes a session, and its user when no other session refers to it
func (m *Memory) DeleteSession(ctx context.Context, id types.SessionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return goerr.Wrap(model.ErrSessionNotFound, "failed to delete session", goerr.V("session_id", id))
	}
	delete(m.sessions, id)
	m.dropOrphanLocked(session.UserID)
	return nil
}

// PurgeExpiredSessions removes expired sessions with their orphaned users and returns how
// many sessions were removed
func (m *Memory) PurgeExpiredSessions(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, session := range m.sessions {
		if session.IsExpired() {
			delete(m.sessions, id)
			m.dropOrphanLocked(session.UserID)
			removed++
		}
	}
	return removed
}

func (m *Memory) dropOrphanLocked(userID types.UserID) {
	for _, s := range m.sessions {
		if s.UserID == userID {
			return
		}
	}
	delete(m.users, userID)
}

// Close does nothing for memory repository
func (m *Memory) Close() error {
	return nil
}
