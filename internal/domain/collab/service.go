package collab

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rpggio/rolecall/internal/repository"
)

// Service handles the collaboration aggregate root.
type Service struct {
	Deps
}

// NewService creates a new collaboration service.
func NewService(deps Deps) *Service {
	return &Service{Deps: deps}
}

// CreateRequest describes a collaboration creation request.
type CreateRequest struct {
	CreatorID string
	Title     string
}

// Audit compares stored counters with the counts derived from role states.
type Audit struct {
	CollaborationID    string   `json:"collaboration_id"`
	RoleCount          int      `json:"role_count"`
	FilledRoleCount    int      `json:"filled_role_count"`
	CompletedRoleCount int      `json:"completed_role_count"`
	ExpectedRoles      int      `json:"expected_roles"`
	ExpectedFilled     int      `json:"expected_filled"`
	ExpectedCompleted  int      `json:"expected_completed"`
	Stored             Counters `json:"stored"`
	Expected           Counters `json:"expected"`
	Consistent         bool     `json:"consistent"`
}

// Create creates an open collaboration owned by the creator.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Collaboration, error) {
	if err := ValidateActor(req.CreatorID); err != nil {
		return nil, err
	}
	if err := ValidateTitle(req.Title); err != nil {
		return nil, err
	}

	now := s.Clock()
	c := &Collaboration{
		ID:        uuid.NewString(),
		CreatorID: req.CreatorID,
		Title:     strings.TrimSpace(req.Title),
		Status:    StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.Runner.Run(ctx, "create_collaboration", func(ctx context.Context, tx repository.Tx) error {
		c.Version = 0
		return Save(ctx, tx, c)
	})
	if err != nil {
		return nil, fmt.Errorf("creating collaboration: %w", err)
	}
	c.Version = 1
	s.Log().Info("collaboration created", "collaboration_id", c.ID, "creator_id", c.CreatorID)
	return c, nil
}

// Get returns a collaboration by id.
func (s *Service) Get(ctx context.Context, id string) (*Collaboration, error) {
	if err := ValidateID("collaboration id", id); err != nil {
		return nil, err
	}
	return GetCollaboration(ctx, s.Reader, id)
}

// Cancel marks a collaboration cancelled. Completed collaborations cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, id, actorID string) (*Collaboration, error) {
	if err := ValidateID("collaboration id", id); err != nil {
		return nil, err
	}
	if err := ValidateActor(actorID); err != nil {
		return nil, err
	}

	var out *Collaboration
	var changed bool
	err := s.Runner.Run(ctx, "cancel_collaboration", func(ctx context.Context, tx repository.Tx) error {
		changed = false
		c, err := GetCollaboration(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := RequireCreator(c, actorID); err != nil {
			return err
		}
		if c.Status == StatusCancelled {
			out = c
			return nil
		}
		if c.Status == StatusCompleted {
			return ErrCollaborationClosed
		}
		c.Status = StatusCancelled
		c.UpdatedAt = s.Clock()
		out, changed = c, true
		return Save(ctx, tx, c)
	})
	if err != nil {
		return nil, fmt.Errorf("cancelling collaboration: %w", err)
	}
	if changed {
		out.Version++
		s.Log().Info("collaboration cancelled", "collaboration_id", out.ID)
	}
	return out, nil
}

// Audit recomputes the counters of a collaboration from its roles.
func (s *Service) Audit(ctx context.Context, id string) (*Audit, error) {
	var out *Audit
	err := s.Runner.Run(ctx, "audit_collaboration", func(ctx context.Context, tx repository.Tx) error {
		c, err := GetCollaboration(ctx, tx, id)
		if err != nil {
			return err
		}
		roles, err := RolesOf(ctx, tx, id)
		if err != nil {
			return err
		}
		statuses := make([]RoleStatus, 0, len(roles))
		for _, r := range roles {
			statuses = append(statuses, r.Status)
		}
		want := CountersFor(statuses)
		out = &Audit{
			CollaborationID:    id,
			RoleCount:          c.RoleCount,
			FilledRoleCount:    c.FilledRoleCount,
			CompletedRoleCount: c.CompletedRoleCount,
			ExpectedRoles:      want.Roles,
			ExpectedFilled:     want.Filled,
			ExpectedCompleted:  want.Completed,
			Stored:             CountersOf(c),
			Expected:           want,
		}
		out.Consistent = out.Stored == want
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
