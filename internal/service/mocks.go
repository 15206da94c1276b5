package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/yakoovad/team-roster/internal/repository"
)

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// WithinSession hands the mocked session, if any, to fn.
func (m *MockSessionRepository) WithinSession(ctx context.Context, id string, fn func(s *repository.Session) error) error {
	args := m.Called(ctx, id)
	if s, ok := args.Get(0).(*repository.Session); ok && s != nil {
		if err := fn(s); err != nil {
			return err
		}
	}
	return args.Error(1)
}

func (m *MockSessionRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSessionRepository) Sweep(ctx context.Context, idleFor time.Duration) (int, error) {
	args := m.Called(ctx, idleFor)
	return args.Int(0), args.Error(1)
}

func (m *MockSessionRepository) Len(ctx context.Context) int {
	args := m.Called(ctx)
	return args.Int(0)
}
