package service

import (
	"sync"

	"go.uber.org/zap"

	"spystory-server/internal/interfaces"
	"spystory-server/internal/models"
)

// StateNotifier is an explicit fan-out point for session snapshots. It holds
// no global state: each server instance wires its own notifier and listener
// set at startup.
type StateNotifier struct {
	mu        sync.RWMutex
	listeners []interfaces.StateListener
	logger    *zap.Logger
}

func NewStateNotifier(logger *zap.Logger) *StateNotifier {
	return &StateNotifier{
		logger: logger.Named("StateNotifier"),
	}
}

// Register adds a listener. Registration order is delivery order.
func (n *StateNotifier) Register(listener interfaces.StateListener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, listener)
}

// Notify delivers the snapshot to every listener. A panicking listener is
// logged and skipped so one bad consumer cannot break the transition path.
func (n *StateNotifier) Notify(snapshot *models.SessionSnapshot) {
	n.mu.RLock()
	listeners := make([]interfaces.StateListener, len(n.listeners))
	copy(listeners, n.listeners)
	n.mu.RUnlock()

	for _, l := range listeners {
		n.deliver(l, snapshot)
	}
}

func (n *StateNotifier) deliver(l interfaces.StateListener, snapshot *models.SessionSnapshot) {
	defer func() {
		if p := recover(); p != nil {
			n.logger.Error("State listener panicked",
				zap.Any("panic", p),
				zap.String("userID", snapshot.UserID.String()))
		}
	}()
	l.OnStateChanged(snapshot)
}
