package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpggio/rolecall/internal/apperr"
)

// ErrInvalidEvent indicates an event without a type or collaboration.
var ErrInvalidEvent = apperr.Validation("event needs a type and a collaboration id")

// Service records lifecycle events and serves the event log.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new event service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Dispatch appends the event to the log, stamping a timestamp if missing.
func (s *Service) Dispatch(ctx context.Context, evt Event) error {
	if evt.Type == "" || evt.CollaborationID == "" {
		return ErrInvalidEvent
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if err := s.repo.Append(ctx, evt); err != nil {
		return fmt.Errorf("recording event: %w", err)
	}
	return nil
}

// List returns logged events, newest first.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Event, error) {
	if opts.CollaborationID == "" {
		return nil, ErrInvalidEvent
	}
	return s.repo.List(ctx, opts)
}

// LogDispatcher writes every event to a structured logger.
type LogDispatcher struct {
	logger *slog.Logger
}

// NewLogDispatcher creates a dispatcher that logs at info level.
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, evt Event) error {
	if d.logger == nil {
		return nil
	}
	d.logger.InfoContext(ctx, "lifecycle event",
		"event_id", evt.ID,
		"type", string(evt.Type),
		"collaboration_id", evt.CollaborationID,
		"role_id", evt.RoleID,
		"application_id", evt.ApplicationID,
		"completion_request_id", evt.CompletionRequestID,
		"actor_id", evt.ActorID,
	)
	return nil
}

// Fanout delivers each event to every dispatcher and joins their failures.
type Fanout []Dispatcher

func (f Fanout) Dispatch(ctx context.Context, evt Event) error {
	var errs []error
	for _, d := range f {
		if d == nil {
			continue
		}
		if err := d.Dispatch(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emit dispatches events in order. Failures are logged and never returned:
// the change that produced the events is already committed.
func Emit(ctx context.Context, d Dispatcher, logger *slog.Logger, events []Event) {
	if d == nil {
		return
	}
	for _, evt := range events {
		if err := d.Dispatch(ctx, evt); err != nil && logger != nil {
			logger.Warn("event dispatch failed", "type", string(evt.Type), "event_id", evt.ID, "error", err)
		}
	}
}
