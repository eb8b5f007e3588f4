// Package notify publishes finished-run events so surrounding systems
// (dashboards, chat bridges) can react to matrix outcomes.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/buildcheck/internal/report"
	"git.home.luguber.info/inful/buildcheck/internal/retry"
)

// DefaultSubject is the stream subject run events are published to.
const DefaultSubject = "buildcheck.runs"

// RunEvent is the published record of one finished matrix run.
type RunEvent struct {
	RunID     string    `json:"run_id"`
	Package   string    `json:"package"`
	Version   string    `json:"version"`
	Commit    string    `json:"commit,omitempty"`
	Branch    string    `json:"branch,omitempty"`
	Outcome   string    `json:"outcome"`
	Passed    int       `json:"passed"`
	Total     int       `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}

// FromReport builds the event form of a run report.
func FromReport(r *report.RunReport) RunEvent {
	return RunEvent{
		RunID:   r.RunID,
		Package: r.Package,
		Version: r.Version,
		Commit:  r.Commit,
		Branch:  r.Branch,
		Outcome: r.Outcome,
		Passed:  r.Passed,
		Total:   r.Total,
	}
}

// Publisher publishes run events.
type Publisher interface {
	PublishRun(ctx context.Context, event RunEvent) error
	Close()
}

// NoopPublisher is a Publisher that does nothing (default when notifications
// are not configured).
type NoopPublisher struct{}

func (NoopPublisher) PublishRun(context.Context, RunEvent) error { return nil }
func (NoopPublisher) Close()                                     {}

// NATSPublisher publishes run events to a JetStream subject.
type NATSPublisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewNATSPublisher connects to the NATS server and prepares the JetStream
// context. The subject falls back to DefaultSubject when empty.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}

	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	slog.Info("NATS publisher initialized", "url", url, "subject", subject)
	return &NATSPublisher{conn: conn, js: js, subject: subject}, nil
}

// NewNATSPublisherWithRetry dials with bounded backoff so a daemon that
// starts before its broker still comes up. The context bounds the waiting
// between attempts, not an individual dial.
func NewNATSPublisherWithRetry(ctx context.Context, url, subject string, policy retry.Policy) (*NATSPublisher, error) {
	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		pub, err := NewNATSPublisher(url, subject)
		if err == nil {
			return pub, nil
		}
		lastErr = err
		if attempt == policy.MaxRetries {
			break
		}

		delay := policy.Delay(attempt + 1)
		slog.Warn("NATS connect failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

// PublishRun publishes one run event, stamping the publish time.
func (p *NATSPublisher) PublishRun(ctx context.Context, event RunEvent) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	event.Timestamp = time.Now()
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := p.js.Publish(ctx, p.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	slog.Debug("Published run event", "run_id", event.RunID, "outcome", event.Outcome)
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
