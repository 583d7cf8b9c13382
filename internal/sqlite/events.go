package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/rolecall/internal/domain/event"
)

// EventRepository implements event.Repository for SQLite
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// Append inserts a lifecycle event. Appending an event id twice is a no-op.
func (r *EventRepository) Append(ctx context.Context, evt event.Event) error {
	createdAt := evt.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var payload sql.NullString
	if len(evt.Payload) > 0 {
		data, err := json.Marshal(evt.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode event payload: %w", err)
		}
		payload = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO lifecycle_events (
			id, type, collaboration_id, role_id, application_id,
			completion_request_id, actor_id, payload, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query,
		evt.ID,
		string(evt.Type),
		evt.CollaborationID,
		nullable(evt.RoleID),
		nullable(evt.ApplicationID),
		nullable(evt.CompletionRequestID),
		evt.ActorID,
		payload,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// List returns events matching the given filters, newest first
func (r *EventRepository) List(ctx context.Context, opts event.ListOptions) ([]event.Event, error) {
	query := `
		SELECT
			id, type, collaboration_id, role_id, application_id,
			completion_request_id, actor_id, payload, created_at
		FROM lifecycle_events
		WHERE collaboration_id = ?
	`

	args := []any{opts.CollaborationID}
	conditions := []string{}

	if opts.RoleID != nil {
		conditions = append(conditions, "role_id = ?")
		args = append(args, *opts.RoleID)
	}
	if opts.Type != nil {
		conditions = append(conditions, "type = ?")
		args = append(args, string(*opts.Type))
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at DESC, seq DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	} else if opts.Offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var evt event.Event
		var typ string
		var roleID, applicationID, requestID, payload sql.NullString
		if err := rows.Scan(
			&evt.ID,
			&typ,
			&evt.CollaborationID,
			&roleID,
			&applicationID,
			&requestID,
			&evt.ActorID,
			&payload,
			&evt.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		evt.Type = event.Type(typ)
		evt.RoleID = roleID.String
		evt.ApplicationID = applicationID.String
		evt.CompletionRequestID = requestID.String
		if payload.Valid {
			if err := json.Unmarshal([]byte(payload.String), &evt.Payload); err != nil {
				return nil, fmt.Errorf("failed to decode event payload: %w", err)
			}
		}
		events = append(events, evt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}

	return events, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
