package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bloomforlungs/bloom/internal/models"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// InsertChannel is the NOTIFY channel the pledges trigger publishes on.
const InsertChannel = "pledge_inserts"

const (
	minReconnect = 10 * time.Second
	maxReconnect = time.Minute
	pingPeriod   = 90 * time.Second
)

// Listener feeds a Hub from PostgreSQL LISTEN/NOTIFY so that every process
// sees inserts committed by any process.
type Listener struct {
	dsn    string
	hub    *Hub
	logger *zap.Logger
}

func NewListener(dsn string, hub *Hub, logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Listener{dsn: dsn, hub: hub, logger: logger}
}

// Run blocks until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	listener := pq.NewListener(l.dsn, minReconnect, maxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			l.logger.Warn("pledge listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	defer listener.Close()

	if err := listener.Listen(InsertChannel); err != nil {
		return fmt.Errorf("listen %s: %w", InsertChannel, err)
	}

	l.logger.Info("listening for pledge inserts", zap.String("channel", InsertChannel))

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			// A nil notification means the connection was re-established and
			// inserts in between were missed.
			if n == nil {
				l.logger.Warn("pledge listener reconnected, inserts may have been missed")
				continue
			}

			p, err := DecodeNotification(n.Extra)
			if err != nil {
				l.logger.Warn("dropping malformed pledge notification", zap.Error(err))
				continue
			}

			l.hub.Publish(p)
		case <-ticker.C:
			if err := listener.Ping(); err != nil {
				l.logger.Warn("pledge listener ping failed", zap.Error(err))
			}
		}
	}
}

// DecodeNotification parses the row_to_json payload of a pledges row.
func DecodeNotification(payload string) (models.Pledge, error) {
	var p models.Pledge

	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return models.Pledge{}, fmt.Errorf("decode pledge notification: %w", err)
	}

	if p.ID == "" {
		return models.Pledge{}, fmt.Errorf("decode pledge notification: missing id")
	}

	return p, nil
}
