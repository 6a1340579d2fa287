package store

import (
	"context"
	"sync"

	"github.com/Emixee/intimacy-play-sub001/pkg/interfaces"
	"github.com/Emixee/intimacy-play-sub001/pkg/types"
)

// Memory is an in-process SessionStore with the same versioning semantics
// as the SQLite store. It backs tests and single-node development runs.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*types.Session
	notifier interfaces.Notifier
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]*types.Session)}
}

// SetNotifier attaches a change listener. Every successful write publishes
// the full session snapshot.
func (m *Memory) SetNotifier(n interfaces.Notifier) {
	m.notifier = n
}

func (m *Memory) Create(ctx context.Context, session *types.Session) error {
	m.mu.Lock()
	if _, exists := m.sessions[session.Code]; exists {
		m.mu.Unlock()
		return interfaces.ErrCodeTaken
	}
	session.Version = 1
	m.sessions[session.Code] = session.Clone()
	m.mu.Unlock()

	m.publish(session)
	return nil
}

func (m *Memory) Get(ctx context.Context, code string) (*types.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[code]
	if !exists {
		return nil, interfaces.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (m *Memory) Update(ctx context.Context, session *types.Session) error {
	m.mu.Lock()
	stored, exists := m.sessions[session.Code]
	if !exists {
		m.mu.Unlock()
		return interfaces.ErrSessionNotFound
	}
	if stored.Version != session.Version {
		m.mu.Unlock()
		return interfaces.ErrVersionConflict
	}
	session.Version++
	m.sessions[session.Code] = session.Clone()
	m.mu.Unlock()

	m.publish(session)
	return nil
}

func (m *Memory) Delete(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[code]; !exists {
		return interfaces.ErrSessionNotFound
	}
	delete(m.sessions, code)
	return nil
}

func (m *Memory) SessionsByUser(ctx context.Context, userID string) ([]*types.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.Session
	for _, session := range m.sessions {
		if session.IsMember(userID) {
			out = append(out, session.Clone())
		}
	}
	return out, nil
}

func (m *Memory) HealthCheck(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

func (m *Memory) publish(session *types.Session) {
	if m.notifier != nil {
		m.notifier.Publish(session.Clone())
	}
}
