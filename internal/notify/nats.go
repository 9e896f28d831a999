package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

var subjects = map[EventType]string{
	EventNewTask:    "agenda.task.created",
	EventUpdateTask: "agenda.task.updated",
	EventDeleteTask: "agenda.task.deleted",
	EventReminder:   "agenda.task.reminder",
}

// NATSPublisher publishes events to NATS subjects, one subject per event
// type, for consumers outside the HTTP process.
type NATSPublisher struct {
	nc     *nats.Conn
	logger *slog.Logger
}

// NewNATSPublisher connects to the NATS server at natsURL.
func NewNATSPublisher(natsURL string, logger *slog.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("connected to NATS", slog.String("url", natsURL))

	return &NATSPublisher{nc: nc, logger: logger}, nil
}

// Publish marshals the event and publishes it on the subject for its type.
func (p *NATSPublisher) Publish(_ context.Context, ev Event) error {
	subject, ok := subjects[ev.Type]
	if !ok {
		subject = "agenda.events"
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("published event",
		slog.String("subject", subject),
		slog.String("type", string(ev.Type)),
	)
	return nil
}

// Close drains the NATS connection.
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
