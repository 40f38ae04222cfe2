package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"spystory-server/internal/models"
)

// Mock Generator
type Generator struct {
	mock.Mock
}

func (m *Generator) Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*models.GenerationResult)
	return result, args.Error(1)
}

// Mock SessionGuard
type SessionGuard struct {
	mock.Mock
}

func (m *SessionGuard) Acquire(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}
func (m *SessionGuard) Release(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// Mock ClientUpdatePublisher
type ClientUpdatePublisher struct {
	mock.Mock
}

func (m *ClientUpdatePublisher) PublishClientUpdate(ctx context.Context, snapshot *models.SessionSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

// Mock StateListener
type StateListener struct {
	mock.Mock
}

func (m *StateListener) OnStateChanged(snapshot *models.SessionSnapshot) {
	m.Called(snapshot)
}
