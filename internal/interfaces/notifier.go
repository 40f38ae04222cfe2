package interfaces

import (
	"context"

	"spystory-server/internal/models"
)

// StateListener receives session snapshots after successful transitions.
// Listeners must not block: slow consumers drop or buffer on their side.
type StateListener interface {
	OnStateChanged(snapshot *models.SessionSnapshot)
}

// SessionGuard serializes transitions per session ahead of the DB row lock.
// Acquire returns false when another transition is already in flight.
//
//go:generate mockery --name SessionGuard --output ./mocks --outpkg mocks --case=underscore
type SessionGuard interface {
	Acquire(ctx context.Context, userID string) (bool, error)
	Release(ctx context.Context, userID string) error
}

// ClientUpdatePublisher pushes snapshots to the out-of-process UI sync layer.
//
//go:generate mockery --name ClientUpdatePublisher --output ./mocks --outpkg mocks --case=underscore
type ClientUpdatePublisher interface {
	PublishClientUpdate(ctx context.Context, snapshot *models.SessionSnapshot) error
}
