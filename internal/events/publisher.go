// Package events records run lifecycle events in the event store and fans
// them out to an optional message bus.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/craigdanielk/web-builder/internal/eventstore"
	"github.com/craigdanielk/web-builder/internal/foundation/errors"
)

// Publisher fans run events out to other processes.
type Publisher interface {
	Publish(ctx context.Context, e eventstore.Event) error
	Close() error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, eventstore.Event) error { return nil }
func (NoopPublisher) Close() error                                    { return nil }

// Envelope is the wire form of a published event.
type Envelope struct {
	RunID     string            `json:"run_id"`
	Project   string            `json:"project"`
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewEnvelope wraps e for publishing.
func NewEnvelope(e eventstore.Event) Envelope {
	payload := e.Payload()
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	return Envelope{
		RunID:     e.RunID(),
		Project:   e.Project(),
		Type:      e.Type(),
		Timestamp: e.Timestamp(),
		Payload:   payload,
		Metadata:  e.Metadata(),
	}
}

// streamName is the JetStream stream holding run events.
const streamName = "WEBBUILDER_RUNS"

// NATSPublisher publishes events to JetStream under <subject>.<project>.<type>.
type NATSPublisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewNATSPublisher connects to url and makes sure a stream captures subject.
func NewNATSPublisher(ctx context.Context, url, subject string) (*NATSPublisher, error) {
	if subject == "" {
		subject = "webbuilder.runs"
	}
	conn, err := nats.Connect(url, nats.Name("webbuilder"))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNetwork, "failed to connect to NATS").
			WithContext("url", url).Build()
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.WrapError(err, errors.CategoryNetwork, "failed to create JetStream context").Build()
	}

	setupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := js.CreateOrUpdateStream(setupCtx, jetstream.StreamConfig{
		Name:        streamName,
		Description: "web-builder run lifecycle events",
		Subjects:    []string{subject + ".>"},
		MaxAge:      7 * 24 * time.Hour,
	}); err != nil {
		conn.Close()
		return nil, errors.WrapError(err, errors.CategoryNetwork, "failed to ensure run event stream").
			WithContext("subject", subject).Build()
	}

	slog.Info("NATS publisher initialized", "url", url, "subject", subject)
	return &NATSPublisher{conn: conn, js: js, subject: subject}, nil
}

// Publish sends e to JetStream.
func (p *NATSPublisher) Publish(ctx context.Context, e eventstore.Event) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	data, err := json.Marshal(NewEnvelope(e))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := p.js.Publish(ctx, Subject(p.subject, e), data); err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "failed to publish event").
			WithContext("type", e.Type()).Build()
	}
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

// Subject returns the subject an event is published on. Tokens that NATS
// treats specially are replaced so project names cannot split the subject.
func Subject(base string, e eventstore.Event) string {
	return base + "." + token(e.Project()) + "." + token(e.Type())
}

var subjectReplacer = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")

func token(s string) string {
	if s == "" {
		return "_"
	}
	return subjectReplacer.Replace(s)
}
