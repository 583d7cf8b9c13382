package completion

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/rpggio/rolecall/internal/domain/collab"
	"github.com/rpggio/rolecall/internal/domain/event"
	"github.com/rpggio/rolecall/internal/repository"
)

// Service runs the two-party completion handshake.
type Service struct {
	collab.Deps
}

// NewService creates a new completion service.
func NewService(deps collab.Deps) *Service {
	return &Service{Deps: deps}
}

// Request is a participant's completion claim.
type Request struct {
	RoleID       string
	RequesterID  string
	Notes        string
	EvidenceRefs []string
}

// Result is the state after a handshake step.
type Result struct {
	Request       *collab.CompletionRequest `json:"completion_request"`
	Role          *collab.Role              `json:"role"`
	Collaboration *collab.Collaboration     `json:"collaboration,omitempty"`
}

var requestable = []collab.RoleStatus{collab.RoleAssigned, collab.RoleInProgress, collab.RoleFilled}

// RequestCompletion opens a pending completion request for a role the requester occupies.
func (s *Service) RequestCompletion(ctx context.Context, in Request) (*Result, error) {
	if err := collab.ValidateID("role id", in.RoleID); err != nil {
		return nil, err
	}
	if err := collab.ValidateActor(in.RequesterID); err != nil {
		return nil, err
	}
	if err := collab.ValidateText("notes", in.Notes); err != nil {
		return nil, err
	}
	if err := collab.ValidateEvidenceRefs(in.EvidenceRefs); err != nil {
		return nil, err
	}

	reqID := uuid.NewString()
	var out *Result
	var events []event.Event
	err := s.Runner.Run(ctx, "request_completion", func(ctx context.Context, tx repository.Tx) error {
		events = events[:0]
		now := s.Clock()

		r, err := collab.GetRole(ctx, tx, in.RoleID)
		if err != nil {
			return err
		}
		if !r.HasParticipant(in.RequesterID) {
			return collab.ErrNotParticipant
		}
		c, err := collab.GetCollaboration(ctx, tx, r.CollaborationID)
		if err != nil {
			return err
		}
		if c.Closed() {
			return collab.ErrCollaborationClosed
		}
		if r.Status == collab.RoleCompletionRequested {
			return collab.ErrCompletionPending
		}
		if !slices.Contains(requestable, r.Status) {
			return collab.ErrInvalidRoleTransition
		}

		existing, err := collab.CompletionRequestsFor(ctx, tx, r.ID)
		if err != nil {
			return fmt.Errorf("listing completion requests: %w", err)
		}
		for _, prev := range existing {
			if prev.Status == collab.RequestPending {
				return collab.ErrCompletionPending
			}
		}

		req := &collab.CompletionRequest{
			ID:              reqID,
			CollaborationID: r.CollaborationID,
			RoleID:          r.ID,
			RequesterID:     in.RequesterID,
			Notes:           in.Notes,
			EvidenceRefs:    in.EvidenceRefs,
			Status:          collab.RequestPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := collab.Save(ctx, tx, req); err != nil {
			return err
		}

		from := r.Status
		wasAccepting := collab.AcceptsApplications(r, s.KeepOpen())
		r.StatusBeforeCompletion = from
		r.Status = collab.RoleCompletionRequested
		r.CompletionStatus = collab.CompletionPending
		_, stranded, err := collab.RejectStranded(ctx, tx, r, wasAccepting, s.KeepOpen(), in.RequesterID, now)
		if err != nil {
			return err
		}
		if _, err := collab.SaveRoleChange(ctx, tx, c, r, from, now); err != nil {
			return err
		}

		evt := event.New(event.TypeCompletionRequested, r.CollaborationID, r.ID, in.RequesterID, now).
			WithPayload("previous_status", string(from))
		evt.CompletionRequestID = req.ID
		events = append(events, evt)
		events = append(events, stranded...)
		out = &Result{Request: req, Role: r}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("requesting completion: %w", err)
	}
	out.Request.Version = 1
	out.Role.Version++
	s.Emit(ctx, events)
	s.Log().Info("completion requested", "role_id", out.Role.ID, "completion_request_id", out.Request.ID)
	return out, nil
}

// ConfirmCompletion approves or rejects a pending request. Only the collaboration creator may confirm.
// Approval completes the role and, when it was the last open role, the collaboration.
func (s *Service) ConfirmCompletion(ctx context.Context, requestID string, approve bool, reviewerID, note string) (*Result, error) {
	if err := collab.ValidateID("completion request id", requestID); err != nil {
		return nil, err
	}
	if err := collab.ValidateActor(reviewerID); err != nil {
		return nil, err
	}
	if err := collab.ValidateText("note", note); err != nil {
		return nil, err
	}

	var out *Result
	var collabChanged bool
	var events []event.Event
	err := s.Runner.Run(ctx, "confirm_completion", func(ctx context.Context, tx repository.Tx) error {
		events = events[:0]
		now := s.Clock()

		req, err := collab.GetCompletionRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		r, err := collab.GetRole(ctx, tx, req.RoleID)
		if err != nil {
			return err
		}
		c, err := collab.GetCollaboration(ctx, tx, r.CollaborationID)
		if err != nil {
			return err
		}
		if err := collab.RequireCreator(c, reviewerID); err != nil {
			return err
		}
		if c.Status == collab.StatusCancelled {
			return collab.ErrCollaborationClosed
		}

		to := collab.RequestRejected
		if approve {
			to = collab.RequestApproved
		}
		if err := collab.DecideRequest(req, to); err != nil {
			return err
		}
		if r.Status != collab.RoleCompletionRequested {
			return collab.ErrInvalidRoleTransition
		}
		req.ReviewerID = reviewerID
		req.ReviewNote = note
		req.ReviewedAt = &now
		req.UpdatedAt = now
		if err := collab.Save(ctx, tx, req); err != nil {
			return err
		}

		before := *c
		from := r.Status
		var typ event.Type
		if approve {
			r.Status = collab.RoleCompleted
			r.CompletionStatus = collab.CompletionApproved
			r.CompletedAt = &now
			typ = event.TypeCompletionConfirmed
		} else {
			r.Status = restoreStatus(r)
			r.CompletionStatus = collab.CompletionRejected
			typ = event.TypeCompletionRejected
		}
		r.StatusBeforeCompletion = ""

		completedNow, err := collab.SaveRoleChange(ctx, tx, c, r, from, now)
		if err != nil {
			return err
		}
		collabChanged = *c != before

		evt := event.New(typ, r.CollaborationID, r.ID, reviewerID, now).
			WithPayload("requester_id", req.RequesterID).
			WithPayload("role_status", string(r.Status))
		evt.CompletionRequestID = req.ID
		events = append(events, evt)
		if completedNow {
			events = append(events, event.New(event.TypeCollaborationCompleted, c.ID, "", reviewerID, now).
				WithPayload("role_count", c.RoleCount))
		}
		out = &Result{Request: req, Role: r, Collaboration: c}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("confirming completion: %w", err)
	}
	out.Request.Version++
	out.Role.Version++
	if collabChanged {
		out.Collaboration.Version++
	}
	s.Emit(ctx, events)
	s.Log().Info("completion reviewed",
		"completion_request_id", out.Request.ID,
		"approved", approve,
		"role_status", string(out.Role.Status),
		"collaboration_status", string(out.Collaboration.Status),
	)
	return out, nil
}

// restoreStatus is the state a role returns to when its completion is rejected.
func restoreStatus(r *collab.Role) collab.RoleStatus {
	if slices.Contains(requestable, r.StatusBeforeCompletion) {
		return r.StatusBeforeCompletion
	}
	if r.HasFreeSeat() {
		return collab.RoleAssigned
	}
	return collab.RoleFilled
}

// Get returns a completion request by id.
func (s *Service) Get(ctx context.Context, requestID string) (*collab.CompletionRequest, error) {
	if err := collab.ValidateID("completion request id", requestID); err != nil {
		return nil, err
	}
	return collab.GetCompletionRequest(ctx, s.Reader, requestID)
}

// ListByRole returns every completion request of a role, oldest first.
func (s *Service) ListByRole(ctx context.Context, roleID string) ([]*collab.CompletionRequest, error) {
	if err := collab.ValidateID("role id", roleID); err != nil {
		return nil, err
	}
	if _, err := collab.GetRole(ctx, s.Reader, roleID); err != nil {
		return nil, err
	}
	reqs, err := collab.CompletionRequestsFor(ctx, s.Reader, roleID)
	if err != nil {
		return nil, fmt.Errorf("listing completion requests: %w", err)
	}
	slices.SortStableFunc(reqs, func(a, b *collab.CompletionRequest) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return reqs, nil
}
