// Package nats publishes live lap updates for UI consumers. The publisher
// is optional; when no NATS URL is configured, laps are simply not fanned
// out.
package nats

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/karttrack/karttrack/internal/domain"
)

// Publisher pushes saved laps onto a NATS subject.
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// Connect dials the NATS server and returns a lap publisher.
func Connect(url, subject string, logger *slog.Logger) (*Publisher, error) {
	conn, err := nats.Connect(url, nats.Name("karttrack"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Publisher{conn: conn, subject: subject, logger: logger}, nil
}

// lapMessage is the wire form of a live lap update.
type lapMessage struct {
	SessionID string          `json:"sessionId"`
	Lap       domain.LapEntry `json:"lap"`
}

// PublishLap serializes and publishes a freshly persisted lap. Best effort:
// the caller logs and absorbs failures, a lap save never depends on the
// fan-out.
func (p *Publisher) PublishLap(entry domain.LapEntry) error {
	data, err := json.Marshal(lapMessage{
		SessionID: entry.SessionID(),
		Lap:       entry,
	})
	if err != nil {
		return fmt.Errorf("serialize lap update: %w", err)
	}
	return p.conn.Publish(p.subject, data)
}

// Close drains pending publishes and closes the connection.
func (p *Publisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		return fmt.Errorf("drain nats connection: %w", err)
	}
	return nil
}
