package application

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/rpggio/rolecall/internal/apperr"
	"github.com/rpggio/rolecall/internal/domain/collab"
	"github.com/rpggio/rolecall/internal/domain/event"
	"github.com/rpggio/rolecall/internal/repository"
)

// Decision is a creator's verdict on an application.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// Service runs the application workflow.
type Service struct {
	collab.Deps
}

// NewService creates a new application service.
func NewService(deps collab.Deps) *Service {
	return &Service{Deps: deps}
}

// SubmitRequest describes an application submission.
type SubmitRequest struct {
	RoleID       string
	ApplicantID  string
	Message      string
	EvidenceRefs []string
}

// ReviewResult is the outcome of a review.
type ReviewResult struct {
	Application  *collab.Application   `json:"application"`
	Role         *collab.Role          `json:"role"`
	AutoRejected []*collab.Application `json:"auto_rejected,omitempty"`
}

// Submit files a pending application against a role that is taking applicants.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*collab.Application, error) {
	if err := collab.ValidateID("role id", req.RoleID); err != nil {
		return nil, err
	}
	if err := collab.ValidateActor(req.ApplicantID); err != nil {
		return nil, err
	}
	if err := collab.ValidateText("message", req.Message); err != nil {
		return nil, err
	}
	if err := collab.ValidateEvidenceRefs(req.EvidenceRefs); err != nil {
		return nil, err
	}

	appID := uuid.NewString()
	var out *collab.Application
	var events []event.Event
	err := s.Runner.Run(ctx, "submit_application", func(ctx context.Context, tx repository.Tx) error {
		events = events[:0]
		now := s.Clock()

		r, err := collab.GetRole(ctx, tx, req.RoleID)
		if err != nil {
			return err
		}
		c, err := collab.GetCollaboration(ctx, tx, r.CollaborationID)
		if err != nil {
			return err
		}
		if c.IsCreator(req.ApplicantID) {
			return collab.ErrCreatorCannotApply
		}
		if c.Closed() {
			return collab.ErrCollaborationClosed
		}
		if r.HasParticipant(req.ApplicantID) {
			return collab.ErrAlreadyParticipant
		}
		if !r.HasFreeSeat() {
			return collab.ErrRoleFull
		}
		if !collab.AcceptsApplications(r, s.KeepOpen()) {
			return collab.ErrRoleNotAccepting
		}

		apps, err := collab.ApplicationsFor(ctx, tx, r.ID)
		if err != nil {
			return fmt.Errorf("listing applications: %w", err)
		}
		for _, app := range apps {
			if app.ApplicantID == req.ApplicantID && app.Live() {
				return collab.ErrDuplicateApplication
			}
		}

		app := &collab.Application{
			ID:              appID,
			CollaborationID: r.CollaborationID,
			RoleID:          r.ID,
			ApplicantID:     req.ApplicantID,
			Message:         req.Message,
			EvidenceRefs:    req.EvidenceRefs,
			Status:          collab.ApplicationPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := collab.Save(ctx, tx, app); err != nil {
			return err
		}

		// The role is always rewritten so a racing accept on the same role conflicts with us.
		from := r.Status
		r.ApplicationCount++
		if r.Status == collab.RoleOpen {
			r.Status = collab.RoleInReview
		}
		if _, err := collab.SaveRoleChange(ctx, tx, c, r, from, now); err != nil {
			return err
		}

		evt := event.New(event.TypeApplicationReceived, r.CollaborationID, r.ID, req.ApplicantID, now).
			WithPayload("application_count", r.ApplicationCount)
		evt.ApplicationID = app.ID
		events = append(events, evt)
		out = app
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("submitting application: %w", err)
	}
	out.Version = 1
	s.Emit(ctx, events)
	s.Log().Info("application submitted", "application_id", out.ID, "role_id", out.RoleID, "applicant_id", out.ApplicantID)
	return out, nil
}

// Review accepts or rejects a pending application. Only the collaboration creator may review.
//
// Accepting re-reads the role inside the transaction: if a racing acceptance
// already took the role, ErrConcurrentAcceptance is returned.
func (s *Service) Review(ctx context.Context, applicationID string, decision Decision, reviewerID string) (*ReviewResult, error) {
	if err := collab.ValidateID("application id", applicationID); err != nil {
		return nil, err
	}
	if err := collab.ValidateActor(reviewerID); err != nil {
		return nil, err
	}
	switch decision {
	case DecisionAccept:
		return s.accept(ctx, applicationID, reviewerID)
	case DecisionReject:
		return s.reject(ctx, applicationID, reviewerID)
	default:
		return nil, apperr.Validation(fmt.Sprintf("unknown decision %q", decision))
	}
}

func (s *Service) accept(ctx context.Context, applicationID, reviewerID string) (*ReviewResult, error) {
	var out *ReviewResult
	var events []event.Event
	err := s.Runner.Run(ctx, "accept_application", func(ctx context.Context, tx repository.Tx) error {
		events = events[:0]
		now := s.Clock()

		app, err := collab.GetApplication(ctx, tx, applicationID)
		if err != nil {
			return err
		}
		r, err := collab.GetRole(ctx, tx, app.RoleID)
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
		if c.Closed() {
			return collab.ErrCollaborationClosed
		}
		// Role state first: a loser of an acceptance race must see the race, not the cascade.
		if !collab.AcceptsApplications(r, s.KeepOpen()) {
			if r.Status == collab.RoleFilled || r.Status == collab.RoleAssigned {
				return apperr.ErrConcurrentAcceptance
			}
			return collab.ErrRoleNotAccepting
		}
		if err := collab.DecideApplication(app, collab.ApplicationAccepted); err != nil {
			return err
		}
		app.DecisionReason = collab.DecisionReviewed
		app.ReviewedAt = &now
		app.UpdatedAt = now
		if err := collab.Save(ctx, tx, app); err != nil {
			return err
		}

		from := r.Status
		r.AddParticipant(app.ApplicantID)
		if r.FilledAt == nil {
			r.FilledAt = &now
		}
		if r.HasFreeSeat() {
			r.Status = collab.RoleAssigned
		} else {
			r.Status = collab.RoleFilled
		}

		accepted := event.New(event.TypeApplicationAccepted, r.CollaborationID, r.ID, reviewerID, now).
			WithPayload("applicant_id", app.ApplicantID)
		accepted.ApplicationID = app.ID
		events = append(events, accepted)

		var losers []*collab.Application
		if !s.KeepOpen() || r.Status == collab.RoleFilled {
			rejected, evts, err := collab.RejectPending(ctx, tx, r, app.ID, collab.DecisionAutoRejected, reviewerID, now)
			if err != nil {
				return err
			}
			losers = rejected
			events = append(events, evts...)
		}

		if _, err := collab.SaveRoleChange(ctx, tx, c, r, from, now); err != nil {
			return err
		}
		if r.Status == collab.RoleFilled {
			events = append(events, event.New(event.TypeRoleFilled, r.CollaborationID, r.ID, reviewerID, now).
				WithPayload("participant_ids", slices.Clone(r.ParticipantIDs)))
		}

		out = &ReviewResult{Application: app, Role: r, AutoRejected: losers}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("accepting application: %w", err)
	}
	bumpVersions(out)
	s.Emit(ctx, events)
	s.Log().Info("application accepted",
		"application_id", out.Application.ID,
		"role_id", out.Role.ID,
		"role_status", string(out.Role.Status),
		"auto_rejected", len(out.AutoRejected),
	)
	return out, nil
}

func (s *Service) reject(ctx context.Context, applicationID, reviewerID string) (*ReviewResult, error) {
	var out *ReviewResult
	var events []event.Event
	err := s.Runner.Run(ctx, "reject_application", func(ctx context.Context, tx repository.Tx) error {
		events = events[:0]
		now := s.Clock()

		app, err := collab.GetApplication(ctx, tx, applicationID)
		if err != nil {
			return err
		}
		r, err := collab.GetRole(ctx, tx, app.RoleID)
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
		if err := collab.DecideApplication(app, collab.ApplicationRejected); err != nil {
			return err
		}
		app.DecisionReason = collab.DecisionReviewed
		app.ReviewedAt = &now
		app.UpdatedAt = now
		if err := collab.Save(ctx, tx, app); err != nil {
			return err
		}

		evt := event.New(event.TypeApplicationRejected, r.CollaborationID, r.ID, reviewerID, now).
			WithPayload("applicant_id", app.ApplicantID)
		evt.ApplicationID = app.ID
		events = append(events, evt)
		out = &ReviewResult{Application: app, Role: r}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rejecting application: %w", err)
	}
	out.Application.Version++
	s.Emit(ctx, events)
	return out, nil
}

// Withdraw lets the applicant retract a pending application.
func (s *Service) Withdraw(ctx context.Context, applicationID, applicantID string) (*collab.Application, error) {
	if err := collab.ValidateID("application id", applicationID); err != nil {
		return nil, err
	}
	if err := collab.ValidateActor(applicantID); err != nil {
		return nil, err
	}

	var out *collab.Application
	var events []event.Event
	err := s.Runner.Run(ctx, "withdraw_application", func(ctx context.Context, tx repository.Tx) error {
		events = events[:0]
		now := s.Clock()

		app, err := collab.GetApplication(ctx, tx, applicationID)
		if err != nil {
			return err
		}
		if app.ApplicantID != applicantID {
			return collab.ErrNotApplicant
		}
		if err := collab.DecideApplication(app, collab.ApplicationWithdrawn); err != nil {
			return err
		}
		app.UpdatedAt = now
		if err := collab.Save(ctx, tx, app); err != nil {
			return err
		}

		evt := event.New(event.TypeApplicationWithdrawn, app.CollaborationID, app.RoleID, applicantID, now)
		evt.ApplicationID = app.ID
		events = append(events, evt)
		out = app
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("withdrawing application: %w", err)
	}
	out.Version++
	s.Emit(ctx, events)
	return out, nil
}

// Get returns an application by id.
func (s *Service) Get(ctx context.Context, applicationID string) (*collab.Application, error) {
	if err := collab.ValidateID("application id", applicationID); err != nil {
		return nil, err
	}
	return collab.GetApplication(ctx, s.Reader, applicationID)
}

// ListByRole returns the applications of a role, oldest first, optionally filtered by status.
func (s *Service) ListByRole(ctx context.Context, roleID string, statuses ...collab.ApplicationStatus) ([]*collab.Application, error) {
	if err := collab.ValidateID("role id", roleID); err != nil {
		return nil, err
	}
	if _, err := collab.GetRole(ctx, s.Reader, roleID); err != nil {
		return nil, err
	}
	apps, err := collab.ApplicationsFor(ctx, s.Reader, roleID)
	if err != nil {
		return nil, fmt.Errorf("listing applications: %w", err)
	}
	out := make([]*collab.Application, 0, len(apps))
	for _, app := range apps {
		if len(statuses) > 0 && !slices.Contains(statuses, app.Status) {
			continue
		}
		out = append(out, app)
	}
	slices.SortStableFunc(out, func(a, b *collab.Application) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func bumpVersions(res *ReviewResult) {
	res.Application.Version++
	res.Role.Version++
	for _, app := range res.AutoRejected {
		app.Version++
	}
}
