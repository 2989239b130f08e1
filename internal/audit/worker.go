package audit

import (
	"context"
	"log/slog"
)

// ChannelSink enqueues events for asynchronous delivery. Append never blocks;
// if the inbox is full the event is dropped (the synchronous log line from the
// publisher still records it).
type ChannelSink struct {
	inbox  chan<- Event
	logger *slog.Logger
}

func NewChannelSink(inbox chan<- Event, logger *slog.Logger) *ChannelSink {
	return &ChannelSink{inbox: inbox, logger: logger}
}

func (s *ChannelSink) Append(ctx context.Context, event Event) error {
	select {
	case s.inbox <- event:
		return nil
	default:
		s.logger.WarnContext(ctx, "audit inbox full, event dropped",
			"action", event.Action, "submission_id", event.SubmissionID)
		return nil
	}
}

// Worker drains the inbox into a sink. It keeps slow sink writes off the
// request path; the channel sink in front of it never blocks callers.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "append audit event",
					"error", err, "action", event.Action)
			}
		}
	}
}
