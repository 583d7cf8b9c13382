package event

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies a lifecycle event.
type Type string

const (
	TypeApplicationReceived     Type = "application_received"
	TypeApplicationAccepted     Type = "application_accepted"
	TypeApplicationRejected     Type = "application_rejected"
	TypeApplicationAutoRejected Type = "application_auto_rejected"
	TypeApplicationWithdrawn    Type = "application_withdrawn"
	TypeRoleFilled              Type = "role_filled"
	TypeRoleAbandoned           Type = "role_abandoned"
	TypeRoleReopened            Type = "role_reopened"
	TypeRoleRetired             Type = "role_retired"
	TypeCompletionRequested     Type = "completion_requested"
	TypeCompletionConfirmed     Type = "completion_confirmed"
	TypeCompletionRejected      Type = "completion_rejected"
	TypeCollaborationCompleted  Type = "collaboration_completed"
)

// Event is a lifecycle notification emitted after a successful commit.
type Event struct {
	ID                  string         `json:"id"`
	Type                Type           `json:"type"`
	CollaborationID     string         `json:"collaboration_id"`
	RoleID              string         `json:"role_id,omitempty"`
	ApplicationID       string         `json:"application_id,omitempty"`
	CompletionRequestID string         `json:"completion_request_id,omitempty"`
	ActorID             string         `json:"actor_id"`
	Timestamp           time.Time      `json:"timestamp"`
	Payload             map[string]any `json:"payload,omitempty"`
}

// New returns an event with a fresh id.
func New(typ Type, collaborationID, roleID, actorID string, at time.Time) Event {
	return Event{
		ID:              uuid.NewString(),
		Type:            typ,
		CollaborationID: collaborationID,
		RoleID:          roleID,
		ActorID:         actorID,
		Timestamp:       at,
	}
}

// WithPayload sets a payload entry and returns the event.
func (e Event) WithPayload(key string, value any) Event {
	payload := make(map[string]any, len(e.Payload)+1)
	for k, v := range e.Payload {
		payload[k] = v
	}
	payload[key] = value
	e.Payload = payload
	return e
}
