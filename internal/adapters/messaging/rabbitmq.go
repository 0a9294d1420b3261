package messaging

import (
	"context"
	"io"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/config"
)

// publishChannel is the part of *amqp.Channel the broker publishes through.
type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQBroker implements ports.StaffEventPublisher using RabbitMQ.
type RabbitMQBroker struct {
	conn      io.Closer
	ch        publishChannel
	queueName string
	cb        *gobreaker.CircuitBreaker
	log       *zap.Logger
}

func NewRabbitMQBroker(amqpURL, queueName string, log *zap.Logger) (*RabbitMQBroker, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	// Declare the queue (idempotent)
	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return newBroker(conn, ch, queueName, config.NewCircuitBreaker("RabbitMQ-Publisher", log), log), nil
}

func newBroker(conn io.Closer, ch publishChannel, queueName string, cb *gobreaker.CircuitBreaker, log *zap.Logger) *RabbitMQBroker {
	return &RabbitMQBroker{conn: conn, ch: ch, queueName: queueName, cb: cb, log: log}
}

func (rmq *RabbitMQBroker) Close() error {
	if rmq.ch != nil {
		if err := rmq.ch.Close(); err != nil {
			return err
		}
	}
	if rmq.conn != nil {
		return rmq.conn.Close()
	}
	return nil
}
