package config

import (
	"errors"
	"fmt"
)

// RelayConfig holds configuration for the outbox relay service.
type RelayConfig struct {
	DatabaseURL    string
	RabbitMQURL    string
	StaffQueueName string
	HealthPort     string
	LogLevel       string
	LogFormat      string
}

func LoadRelayConfig() (*RelayConfig, error) {
	v := newViper()
	v.SetDefault("STAFF_QUEUE_NAME", "staff_registrations")
	v.SetDefault("RELAY_HEALTH_PORT", "8090")

	cfg := &RelayConfig{
		DatabaseURL:    setting(v, "DB_CONNECTION_STRING"),
		RabbitMQURL:    setting(v, "RABBITMQ_URL"),
		StaffQueueName: v.GetString("STAFF_QUEUE_NAME"),
		HealthPort:     v.GetString("RELAY_HEALTH_PORT"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		LogFormat:      v.GetString("LOG_FORMAT"),
	}

	var errs []error
	if cfg.DatabaseURL == "" {
		errs = append(errs, errors.New("DB_CONNECTION_STRING environment variable is required"))
	}
	if cfg.RabbitMQURL == "" {
		errs = append(errs, errors.New("RABBITMQ_URL environment variable is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("relay configuration: %w", err)
	}
	return cfg, nil
}
