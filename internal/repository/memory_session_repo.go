package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yakoovad/team-roster/internal/roster"
)

type Session struct {
	ID        string
	Workspace *roster.Workspace
	CreatedAt time.Time
	LastSeen  time.Time
}

// SessionRepository keeps browser-session scoped roster workspaces.
type SessionRepository interface {
	Create(ctx context.Context) (string, error)
	// WithinSession runs fn with exclusive access to the session.
	WithinSession(ctx context.Context, id string, fn func(s *Session) error) error
	Delete(ctx context.Context, id string) error
	// Sweep removes sessions idle for longer than idleFor and reports how many were removed.
	Sweep(ctx context.Context, idleFor time.Duration) (int, error)
	Len(ctx context.Context) int
}

type memorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*Session

	newWorkspace func() *roster.Workspace
	now          func() time.Time
}

func NewMemorySessionRepository(newWorkspace func() *roster.Workspace) SessionRepository {
	return &memorySessionRepository{
		sessions:     make(map[string]*Session),
		newWorkspace: newWorkspace,
		now:          time.Now,
	}
}

func (m *memorySessionRepository) Create(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		Workspace: m.newWorkspace(),
		CreatedAt: now,
		LastSeen:  now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	return s.ID, nil
}

func (m *memorySessionRepository) WithinSession(ctx context.Context, id string, fn func(s *Session) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.LastSeen = m.now()

	return fn(s)
}

func (m *memorySessionRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *memorySessionRepository) Sweep(ctx context.Context, idleFor time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	cutoff := m.now().Add(-idleFor)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.LastSeen.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (m *memorySessionRepository) Len(_ context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
