// Package client holds outbound integrations.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// EventPublisher publishes proposal workflow events to NATS JetStream for
// downstream consumers (notifications, reporting).
//
// Subject convention: proposals.<event_type>
// Event types: proposal_created, proposal_submitted, step_approved,
//              proposal_approved, proposal_rejected
//
// All publish operations are best-effort: failures are logged but never
// propagated, so notification outages cannot affect workflow transitions.
// A nil EventPublisher is valid and publishes nothing.
type EventPublisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	log  zerolog.Logger
}

// Event is the JSON schema published to NATS.
type Event struct {
	EventType  string         `json:"event_type"`
	ProposalID int64          `json:"proposal_id"`
	ActorID    string         `json:"actor_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// NewEventPublisher connects to NATS and sets up the JetStream context.
func NewEventPublisher(url string, log zerolog.Logger) (*EventPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("be-proposals"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	return &EventPublisher{conn: conn, js: js, log: log}, nil
}

// PublishProposalEvent publishes one workflow event.
// Subject: proposals.<eventType>
func (p *EventPublisher) PublishProposalEvent(ctx context.Context, eventType string, proposalID int64, actor string, payload map[string]any) {
	if p == nil {
		return
	}

	event := &Event{
		EventType:  eventType,
		ProposalID: proposalID,
		ActorID:    actor,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", eventType).Msg("events: failed to marshal event")
		return
	}

	subject := fmt.Sprintf("proposals.%s", eventType)
	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Int64("proposal_id", proposalID).
			Msg("events: failed to publish")
	}
}

// Close drains the connection.
func (p *EventPublisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
}
