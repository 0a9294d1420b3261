package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/config"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
)

const (
	// PostgreSQL NOTIFY/LISTEN configuration
	listenerMinReconnectInterval = 10 * time.Second
	listenerMaxReconnectInterval = time.Minute
	outboxChannelName            = "outbox_channel"

	// Event processing timeouts
	eventProcessTimeout     = 30 * time.Second
	batchProcessTimeout     = 60 * time.Second
	periodicProcessInterval = 90 * time.Second

	healthCheckStaleThreshold = 5 * time.Minute

	maxEventsPerBatch = 100
)

// errInvalidPayload marks outbox rows that can never be published.
var errInvalidPayload = errors.New("invalid outbox payload")

// Relay listens for PostgreSQL NOTIFY signals on the outbox_channel
// and publishes staff registration events to RabbitMQ.
type Relay struct {
	db        *sql.DB
	publisher ports.StaffEventPublisher
	listener  *pq.Listener
	dbURL     string
	dbCB      *gobreaker.CircuitBreaker
	log       *zap.Logger

	mu            sync.RWMutex
	lastProcessed time.Time
	isHealthy     bool
}

func NewRelay(db *sql.DB, dbURL string, publisher ports.StaffEventPublisher, log *zap.Logger) *Relay {
	return &Relay{
		db:            db,
		dbURL:         dbURL,
		publisher:     publisher,
		dbCB:          config.NewCircuitBreaker("Relay-PostgreSQL", log),
		log:           log,
		lastProcessed: time.Now(),
		isHealthy:     true,
	}
}

// IsHealthy reports whether the relay process is alive. Used for liveness;
// an open circuit is degraded but recoverable and does not count.
func (r *Relay) IsHealthy() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isHealthy
}

// IsReady reports whether the relay can process events.
func (r *Relay) IsReady() bool {
	if r.dbCB.State() == gobreaker.StateOpen {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if time.Since(r.lastProcessed) > healthCheckStaleThreshold {
		return false
	}
	return r.isHealthy
}

func (r *Relay) markProcessed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastProcessed = time.Now()
	r.isHealthy = true
}

func (r *Relay) markUnhealthy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.isHealthy = false
}

// Start begins listening for outbox notifications and processing events.
// It blocks until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			r.log.Warn("outbox listener error", zap.Error(err))
		}
	}

	r.listener = pq.NewListener(r.dbURL, listenerMinReconnectInterval, listenerMaxReconnectInterval, reportProblem)
	defer r.listener.Close()

	if err := r.listener.Listen(outboxChannelName); err != nil {
		return err
	}

	r.log.Info("outbox relay listening", zap.String("channel", outboxChannelName))

	// Catch up on events written while the relay was down.
	if err := r.processUnprocessedEvents(ctx); err != nil {
		r.log.Error("failed to process startup backlog", zap.Error(err))
	}

	ticker := time.NewTicker(periodicProcessInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("outbox relay shutting down")
			return ctx.Err()

		case notification := <-r.listener.Notify:
			if notification == nil {
				r.log.Warn("listener connection lost, reconnecting")
				r.markUnhealthy()
				continue
			}

			if err := r.processEventByID(ctx, notification.Extra); err != nil {
				r.log.Error("failed to process event", zap.String("event_id", notification.Extra), zap.Error(err))
			} else {
				r.markProcessed()
			}

		case <-ticker.C:
			go r.listener.Ping()

			// Safety net for missed notifications.
			if err := r.processUnprocessedEvents(ctx); err != nil {
				r.log.Error("periodic outbox processing failed", zap.Error(err))
			} else {
				r.markProcessed()
			}
		}
	}
}

// dispatch publishes one outbox row. Unknown event types are skipped;
// errInvalidPayload means the row should be marked processed without retry.
func (r *Relay) dispatch(ctx context.Context, id, eventType string, payload []byte) error {
	if eventType != ports.StaffRegisteredEventType {
		r.log.Debug("skipping outbox event of unknown type", zap.String("event_id", id), zap.String("type", eventType))
		return nil
	}

	var evt ports.StaffRegisteredEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		r.log.Error("invalid outbox payload", zap.String("event_id", id), zap.Error(err))
		return errInvalidPayload
	}
	return r.publisher.PublishStaffRegistered(ctx, evt)
}

func (r *Relay) processEventByID(ctx context.Context, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, eventProcessTimeout)
	defer cancel()

	_, err := r.dbCB.Execute(func() (interface{}, error) {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback()

		var id, eventType string
		var payload []byte
		err = tx.QueryRowContext(ctx, `
			SELECT id, event_type, payload
			FROM outbox_events
			WHERE id = $1 AND processed_at IS NULL
			FOR UPDATE SKIP LOCKED`, eventID).Scan(&id, &eventType, &payload)

		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		if err := r.dispatch(ctx, id, eventType, payload); err != nil && !errors.Is(err, errInvalidPayload) {
			return nil, err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`, id); err != nil {
			return nil, err
		}
		return nil, tx.Commit()
	})
	return err
}

func (r *Relay) processUnprocessedEvents(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, batchProcessTimeout)
	defer cancel()

	_, err := r.dbCB.Execute(func() (interface{}, error) {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback()

		rows, err := tx.QueryContext(ctx, `
			SELECT id, event_type, payload
			FROM outbox_events
			WHERE processed_at IS NULL
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED`, maxEventsPerBatch)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		type record struct {
			ID        string
			EventType string
			Payload   []byte
		}

		var records []record
		for rows.Next() {
			var rec record
			if err := rows.Scan(&rec.ID, &rec.EventType, &rec.Payload); err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}

		for _, rec := range records {
			if err := r.dispatch(ctx, rec.ID, rec.EventType, rec.Payload); err != nil && !errors.Is(err, errInvalidPayload) {
				r.log.Warn("failed to publish event, will retry", zap.String("event_id", rec.ID), zap.Error(err))
				continue
			}

			if _, err := tx.ExecContext(ctx, `UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`, rec.ID); err != nil {
				return nil, err
			}
			r.log.Info("outbox event processed", zap.String("event_id", rec.ID))
		}

		return nil, tx.Commit()
	})
	return err
}
