package abandonment

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rpggio/rolecall/internal/domain/collab"
	"github.com/rpggio/rolecall/internal/domain/event"
	"github.com/rpggio/rolecall/internal/repository"
)

// Service releases occupied roles and makes them fillable again.
type Service struct {
	collab.Deps
}

// NewService creates a new abandonment service.
func NewService(deps collab.Deps) *Service {
	return &Service{Deps: deps}
}

// Request describes an abandonment.
type Request struct {
	RoleID  string
	ActorID string
	Reason  string
	// Permanent marks the role ABANDONED instead of re-opening it. Creator only.
	Permanent bool
}

// Result is the state after an abandonment.
type Result struct {
	Role          *collab.Role          `json:"role"`
	Collaboration *collab.Collaboration `json:"collaboration"`
	Released      []string              `json:"released"`
}

var abandonable = []collab.RoleStatus{
	collab.RoleAssigned,
	collab.RoleInProgress,
	collab.RoleCompletionRequested,
	collab.RoleFilled,
}

// AbandonRole releases seats of an occupied role. A participant releases their
// own seat; the creator releases every seat. A role left with no occupants
// goes back to OPEN, or to ABANDONED when the creator marks it permanent.
func (s *Service) AbandonRole(ctx context.Context, in Request) (*Result, error) {
	if err := collab.ValidateID("role id", in.RoleID); err != nil {
		return nil, err
	}
	if err := collab.ValidateActor(in.ActorID); err != nil {
		return nil, err
	}
	if err := collab.ValidateText("reason", in.Reason); err != nil {
		return nil, err
	}

	var out *Result
	var collabChanged bool
	var events []event.Event
	err := s.Runner.Run(ctx, "abandon_role", func(ctx context.Context, tx repository.Tx) error {
		events = events[:0]
		now := s.Clock()

		r, err := collab.GetRole(ctx, tx, in.RoleID)
		if err != nil {
			return err
		}
		c, err := collab.GetCollaboration(ctx, tx, r.CollaborationID)
		if err != nil {
			return err
		}
		isCreator := c.IsCreator(in.ActorID)
		if !isCreator && !r.HasParticipant(in.ActorID) {
			return collab.ErrNotParticipant
		}
		if in.Permanent && !isCreator {
			return collab.ErrNotCreator
		}
		if c.Closed() {
			return collab.ErrCollaborationClosed
		}
		if !slices.Contains(abandonable, r.Status) {
			return collab.ErrInvalidRoleTransition
		}

		released := []string{in.ActorID}
		if isCreator {
			released = slices.Clone(r.ParticipantIDs)
		}
		previous := r.ParticipantID
		if !isCreator {
			previous = in.ActorID
		}

		if err := s.rejectPendingCompletion(ctx, tx, r, in.ActorID, now, &events); err != nil {
			return err
		}

		from := r.Status
		for _, id := range released {
			r.RemoveParticipant(id)
		}
		r.PreviousParticipantID = previous
		r.AbandonmentReason = in.Reason
		r.AbandonedAt = &now
		r.CompletionStatus = collab.CompletionNone
		base := from
		if from == collab.RoleCompletionRequested {
			base = r.StatusBeforeCompletion
		}
		r.StatusBeforeCompletion = ""

		switch {
		case r.CurrentParticipants() > 0 && base == collab.RoleInProgress:
			r.Status = collab.RoleInProgress
		case r.CurrentParticipants() > 0:
			r.Status = collab.RoleAssigned
		case in.Permanent:
			r.Status = collab.RoleAbandoned
			r.FilledAt = nil
		default:
			r.Status = collab.RoleOpen
			r.FilledAt = nil
		}

		if r.Status == collab.RoleAbandoned {
			_, rejected, err := collab.RejectPending(ctx, tx, r, "", collab.DecisionRoleAbandoned, in.ActorID, now)
			if err != nil {
				return err
			}
			events = append(events, rejected...)
		}

		before := *c
		if _, err := collab.SaveRoleChange(ctx, tx, c, r, from, now); err != nil {
			return err
		}
		collabChanged = *c != before

		evt := event.New(event.TypeRoleAbandoned, r.CollaborationID, r.ID, in.ActorID, now).
			WithPayload("previous_participant_id", previous).
			WithPayload("released", released).
			WithPayload("permanent", in.Permanent).
			WithPayload("role_status", string(r.Status))
		if in.Reason != "" {
			evt = evt.WithPayload("reason", in.Reason)
		}
		events = append(events, evt)
		out = &Result{Role: r, Collaboration: c, Released: released}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("abandoning role: %w", err)
	}
	out.Role.Version++
	if collabChanged {
		out.Collaboration.Version++
	}
	s.Emit(ctx, events)
	s.Log().Info("role abandoned",
		"role_id", out.Role.ID,
		"actor_id", in.ActorID,
		"role_status", string(out.Role.Status),
		"released", len(out.Released),
	)
	return out, nil
}

// rejectPendingCompletion closes any completion request still awaiting review.
func (s *Service) rejectPendingCompletion(ctx context.Context, tx repository.Tx, r *collab.Role, actorID string, now time.Time, events *[]event.Event) error {
	reqs, err := collab.CompletionRequestsFor(ctx, tx, r.ID)
	if err != nil {
		return fmt.Errorf("listing completion requests: %w", err)
	}
	for _, req := range reqs {
		if req.Status != collab.RequestPending {
			continue
		}
		if err := collab.DecideRequest(req, collab.RequestRejected); err != nil {
			return err
		}
		req.ReviewerID = actorID
		req.ReviewNote = "role abandoned"
		req.ReviewedAt = &now
		req.UpdatedAt = now
		if err := collab.Save(ctx, tx, req); err != nil {
			return err
		}
		evt := event.New(event.TypeCompletionRejected, r.CollaborationID, r.ID, actorID, now).
			WithPayload("requester_id", req.RequesterID).
			WithPayload("reason", collab.DecisionRoleAbandoned)
		evt.CompletionRequestID = req.ID
		*events = append(*events, evt)
	}
	return nil
}
