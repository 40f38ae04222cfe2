package messaging

import (
	"context"
	"time"

	"go.uber.org/zap"

	"spystory-server/internal/interfaces"
	"spystory-server/internal/models"
)

const listenerPublishTimeout = 15 * time.Second

// publisherListener bridges the in-process notifier to the out-of-process
// queue. Publishing runs in a goroutine so a slow broker never stalls the
// transition path.
type publisherListener struct {
	publisher interfaces.ClientUpdatePublisher
	logger    *zap.Logger
}

var _ interfaces.StateListener = (*publisherListener)(nil)

func NewPublisherListener(publisher interfaces.ClientUpdatePublisher, logger *zap.Logger) interfaces.StateListener {
	return &publisherListener{
		publisher: publisher,
		logger:    logger.Named("PublisherListener"),
	}
}

func (l *publisherListener) OnStateChanged(snapshot *models.SessionSnapshot) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), listenerPublishTimeout)
		defer cancel()
		if err := l.publisher.PublishClientUpdate(ctx, snapshot); err != nil {
			l.logger.Error("Failed to publish session snapshot",
				zap.String("userID", snapshot.UserID.String()),
				zap.Error(err))
		}
	}()
}
