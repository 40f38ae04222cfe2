package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"spystory-server/internal/interfaces"
	"spystory-server/internal/models"
)

const (
	publishTimeout  = 10 * time.Second
	publishAttempts = 3
)

type rabbitMQPublisher struct {
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

var _ interfaces.ClientUpdatePublisher = (*rabbitMQPublisher)(nil)

// NewRabbitMQClientUpdatePublisher opens a channel on conn and declares the
// client updates queue. Queue parameters must match the consumer's.
func NewRabbitMQClientUpdatePublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (interfaces.ClientUpdatePublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("client update publisher: failed to open channel: %w", err)
	}
	if _, err = ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("client update publisher: failed to declare queue %q: %w", queueName, err)
	}
	return &rabbitMQPublisher{
		channel:   ch,
		queueName: queueName,
		logger:    logger.Named("ClientUpdatePublisher"),
	}, nil
}

// PublishClientUpdate serializes the snapshot and publishes it to the client
// updates queue via the default exchange.
func (p *rabbitMQPublisher) PublishClientUpdate(ctx context.Context, snapshot *models.SessionSnapshot) error {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}
	return p.publishMessage(ctx, body)
}

func (p *rabbitMQPublisher) publishMessage(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	var err error
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		err = p.channel.PublishWithContext(ctx,
			"",          // exchange (default)
			p.queueName, // routing key
			false,       // mandatory
			false,       // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Body:         body,
				Timestamp:    time.Now(),
				AppId:        "spystory-server",
			},
		)
		if err == nil {
			return nil
		}
		p.logger.Warn("Publish attempt failed",
			zap.Int("attempt", attempt),
			zap.String("queue", p.queueName),
			zap.Error(err))
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	return fmt.Errorf("failed to publish to queue %s after retries: %w", p.queueName, err)
}
