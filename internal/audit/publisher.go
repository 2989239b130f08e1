// Package audit records who did what to which submission. Events flow through
// a Sink so production can fan out to Kafka while tests use memory.
package audit

import (
	"context"
	"log/slog"
	"time"

	"eqboard/pkg/requestcontext"
)

// Sink receives audit events. Implementations must be safe for concurrent use.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher captures structured audit events. It is append-only and delegates
// persistence to the sink so tests can swap sinks easily.
type Publisher struct {
	sink   Sink
	logger *slog.Logger
}

func NewPublisher(sink Sink, logger *slog.Logger) *Publisher {
	return &Publisher{sink: sink, logger: logger}
}

// Emit stamps the event with time and request id from context and appends it.
// Callers treat a sink failure as non-fatal; the event is still logged.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	p.logger.InfoContext(ctx, string(event.Action),
		"log_type", "audit",
		"request_id", event.RequestID,
		"actor", event.Actor,
		"submission_id", event.SubmissionID,
		"equation_id", event.EquationID,
		"decision", event.Decision,
		"reason", event.Reason,
	)

	return p.sink.Append(ctx, event)
}
