package messaging

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
)

var _ ports.StaffEventPublisher = (*RabbitMQBroker)(nil)

// PublishStaffRegistered sends the event as a persistent JSON message to
// the staff queue through the default exchange.
func (rmq *RabbitMQBroker) PublishStaffRegistered(ctx context.Context, evt ports.StaffRegisteredEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	// Respect context deadline
	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) <= 0 {
			return ctx.Err()
		}
	}

	_, err = rmq.cb.Execute(func() (interface{}, error) {
		err := rmq.ch.PublishWithContext(
			ctx,
			"",            // exchange (default)
			rmq.queueName, // routing key == queue name
			false,         // mandatory
			false,         // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Type:         ports.StaffRegisteredEventType,
				MessageId:    evt.StaffID,
				Timestamp:    evt.RegisteredAt,
				Body:         body,
			},
		)
		return nil, err
	})
	if err != nil {
		rmq.log.Error("failed to publish staff registration",
			zap.String("staff_id", evt.StaffID),
			zap.String("queue", rmq.queueName),
			zap.Error(err),
		)
		return err
	}

	rmq.log.Info("staff registration published", zap.String("staff_id", evt.StaffID))
	return nil
}
