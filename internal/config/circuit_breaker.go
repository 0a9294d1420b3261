package config

import (
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// NewCircuitBreaker creates a circuit breaker with standard settings.
// The name parameter uniquely identifies the circuit breaker instance.
func NewCircuitBreaker(name string, log *zap.Logger) *gobreaker.CircuitBreaker {
	var timeout time.Duration

	// Use different timeouts for different dependencies
	switch name {
	case "Redis-Session":
		timeout = time.Second * 5 // Align with health check timeout
	case "PostgreSQL", "Relay-PostgreSQL":
		timeout = time.Second * 10
	default:
		timeout = time.Second * 30 // OpenAI, RabbitMQ and other remote APIs
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Second * 10,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Open circuit after 3 consecutive failures
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if log != nil {
				log.Error("circuit breaker state change",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			}
		},
	})
}
