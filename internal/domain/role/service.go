package role

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/rolecall/internal/domain/collab"
	"github.com/rpggio/rolecall/internal/domain/event"
	"github.com/rpggio/rolecall/internal/repository"
)

// Registry creates, edits and retires roles.
type Registry struct {
	collab.Deps
}

// NewRegistry creates a new role registry.
func NewRegistry(deps collab.Deps) *Registry {
	return &Registry{Deps: deps}
}

// Definition describes a new role.
type Definition struct {
	Title           string
	Description     string
	RequiredSkills  []collab.Skill
	PreferredSkills []collab.Skill
	MaxParticipants int
	// Publish creates the role OPEN instead of DRAFT.
	Publish bool
}

// Patch describes a role update. Nil fields are left unchanged.
type Patch struct {
	Title           *string
	Description     *string
	RequiredSkills  *[]collab.Skill
	PreferredSkills *[]collab.Skill
	MaxParticipants *int
}

func (p Patch) empty() bool {
	return p.Title == nil && p.Description == nil && p.RequiredSkills == nil &&
		p.PreferredSkills == nil && p.MaxParticipants == nil
}

// ListOptions filters ListRoles.
type ListOptions struct {
	Statuses     []collab.RoleStatus
	ParentRoleID *string
}

// CreateRole adds a role to a collaboration and counts it.
func (s *Registry) CreateRole(ctx context.Context, collaborationID, actorID string, def Definition) (*collab.Role, error) {
	if err := collab.ValidateID("collaboration id", collaborationID); err != nil {
		return nil, err
	}
	return s.create(ctx, "create_role", collaborationID, "", actorID, def)
}

// CreateChildRole adds a role under parentRoleID in the parent's collaboration.
func (s *Registry) CreateChildRole(ctx context.Context, parentRoleID, actorID string, def Definition) (*collab.Role, error) {
	if err := collab.ValidateID("parent role id", parentRoleID); err != nil {
		return nil, err
	}
	return s.create(ctx, "create_child_role", "", parentRoleID, actorID, def)
}

func (s *Registry) create(ctx context.Context, op, collaborationID, parentRoleID, actorID string, def Definition) (*collab.Role, error) {
	if err := collab.ValidateActor(actorID); err != nil {
		return nil, err
	}
	if err := ValidateDefinition(def); err != nil {
		return nil, err
	}

	roleID := uuid.NewString()
	var out *collab.Role
	err := s.Runner.Run(ctx, op, func(ctx context.Context, tx repository.Tx) error {
		now := s.Clock()

		var parent *collab.Role
		if parentRoleID != "" {
			p, err := collab.GetRole(ctx, tx, parentRoleID)
			if err != nil {
				return err
			}
			parent = p
			collaborationID = p.CollaborationID
		}

		c, err := collab.GetCollaboration(ctx, tx, collaborationID)
		if err != nil {
			return err
		}
		if err := collab.RequireCreator(c, actorID); err != nil {
			return err
		}
		if c.Closed() {
			return collab.ErrCollaborationClosed
		}

		status := collab.RoleDraft
		if def.Publish {
			status = collab.RoleOpen
		}
		maxParticipants := def.MaxParticipants
		if maxParticipants == 0 {
			maxParticipants = 1
		}
		r := &collab.Role{
			ID:               roleID,
			CollaborationID:  c.ID,
			Title:            strings.TrimSpace(def.Title),
			Description:      def.Description,
			RequiredSkills:   def.RequiredSkills,
			PreferredSkills:  def.PreferredSkills,
			MaxParticipants:  maxParticipants,
			ParentRoleID:     parentRoleID,
			Status:           status,
			CompletionStatus: collab.CompletionNone,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := collab.Save(ctx, tx, r); err != nil {
			return err
		}

		if parent != nil {
			parent.ChildRoleIDs = append(parent.ChildRoleIDs, r.ID)
			parent.UpdatedAt = now
			if err := collab.Save(ctx, tx, parent); err != nil {
				return err
			}
		}

		before := *c
		if err := collab.AddRole(c, r.Status); err != nil {
			return err
		}
		if _, err := collab.SyncCollaboration(ctx, tx, c, before, now); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating role: %w", err)
	}
	out.Version = 1
	s.Log().Info("role created", "role_id", out.ID, "collaboration_id", out.CollaborationID, "status", string(out.Status))
	return out, nil
}

// UpdateRole edits a role definition while it is DRAFT or OPEN.
func (s *Registry) UpdateRole(ctx context.Context, roleID, actorID string, patch Patch) (*collab.Role, error) {
	if err := collab.ValidateID("role id", roleID); err != nil {
		return nil, err
	}
	if err := collab.ValidateActor(actorID); err != nil {
		return nil, err
	}
	if err := ValidatePatch(patch); err != nil {
		return nil, err
	}

	var out *collab.Role
	err := s.Runner.Run(ctx, "update_role", func(ctx context.Context, tx repository.Tx) error {
		r, _, err := s.loadForCreator(ctx, tx, roleID, actorID)
		if err != nil {
			return err
		}
		if !collab.Editable(r.Status) {
			return collab.ErrRoleImmutable
		}

		if patch.Title != nil {
			r.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			r.Description = *patch.Description
		}
		if patch.RequiredSkills != nil {
			r.RequiredSkills = *patch.RequiredSkills
		}
		if patch.PreferredSkills != nil {
			r.PreferredSkills = *patch.PreferredSkills
		}
		if patch.MaxParticipants != nil {
			r.MaxParticipants = *patch.MaxParticipants
		}
		r.UpdatedAt = s.Clock()
		out = r
		return collab.Save(ctx, tx, r)
	})
	if err != nil {
		return nil, fmt.Errorf("updating role: %w", err)
	}
	out.Version++
	return out, nil
}

// DeleteRole removes a DRAFT role that has no children.
func (s *Registry) DeleteRole(ctx context.Context, roleID, actorID string) error {
	if err := collab.ValidateID("role id", roleID); err != nil {
		return err
	}
	if err := collab.ValidateActor(actorID); err != nil {
		return err
	}

	var events []event.Event
	err := s.Runner.Run(ctx, "delete_role", func(ctx context.Context, tx repository.Tx) error {
		events = events[:0]
		now := s.Clock()

		r, c, err := s.loadForCreator(ctx, tx, roleID, actorID)
		if err != nil {
			return err
		}
		if r.Status != collab.RoleDraft {
			return collab.ErrRoleImmutable
		}
		if len(r.ChildRoleIDs) > 0 {
			return collab.ErrRoleHasChildren
		}

		if r.ParentRoleID != "" {
			parent, err := collab.GetRole(ctx, tx, r.ParentRoleID)
			if err != nil {
				return fmt.Errorf("loading parent role: %w", err)
			}
			parent.ChildRoleIDs = slices.DeleteFunc(parent.ChildRoleIDs, func(id string) bool { return id == r.ID })
			parent.UpdatedAt = now
			if err := collab.Save(ctx, tx, parent); err != nil {
				return err
			}
		}

		if err := tx.Delete(ctx, collab.CollectionRoles, r.ID); err != nil {
			return err
		}
		before := *c
		if err := collab.RemoveRole(c, r.Status); err != nil {
			return err
		}
		completed, err := collab.SyncCollaboration(ctx, tx, c, before, now)
		if err != nil {
			return err
		}
		if completed {
			events = append(events, event.New(event.TypeCollaborationCompleted, c.ID, "", actorID, now))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting role: %w", err)
	}
	s.Emit(ctx, events)
	s.Log().Info("role deleted", "role_id", roleID)
	return nil
}

// PublishRole opens a DRAFT role for applications.
func (s *Registry) PublishRole(ctx context.Context, roleID, actorID string) (*collab.Role, error) {
	return s.move(ctx, "publish_role", "publishing role", roleID, actorID, func(r *collab.Role, c *collab.Collaboration) error {
		if c.Closed() {
			return collab.ErrCollaborationClosed
		}
		if r.Status != collab.RoleDraft {
			return collab.ErrInvalidRoleTransition
		}
		r.Status = collab.RoleOpen
		return nil
	}, nil)
}

// ReopenRole makes an ABANDONED role OPEN again.
func (s *Registry) ReopenRole(ctx context.Context, roleID, actorID string) (*collab.Role, error) {
	return s.move(ctx, "reopen_role", "reopening role", roleID, actorID, func(r *collab.Role, c *collab.Collaboration) error {
		if c.Closed() {
			return collab.ErrCollaborationClosed
		}
		if r.Status != collab.RoleAbandoned {
			return collab.ErrInvalidRoleTransition
		}
		r.Status = collab.RoleOpen
		return nil
	}, func(r *collab.Role, now time.Time) event.Event {
		return event.New(event.TypeRoleReopened, r.CollaborationID, r.ID, actorID, now)
	})
}

// RetireRole marks a role that is not in flight as UNNEEDED and rejects its
// pending applications.
func (s *Registry) RetireRole(ctx context.Context, roleID, reason, actorID string) (*collab.Role, error) {
	if err := collab.ValidateText("reason", reason); err != nil {
		return nil, err
	}
	if err := collab.ValidateID("role id", roleID); err != nil {
		return nil, err
	}
	if err := collab.ValidateActor(actorID); err != nil {
		return nil, err
	}

	var out *collab.Role
	var events []event.Event
	err := s.Runner.Run(ctx, "retire_role", func(ctx context.Context, tx repository.Tx) error {
		events = events[:0]
		now := s.Clock()

		r, c, err := s.loadForCreator(ctx, tx, roleID, actorID)
		if err != nil {
			return err
		}
		switch r.Status {
		case collab.RoleDraft, collab.RoleOpen, collab.RoleInReview, collab.RoleAbandoned:
		default:
			return collab.ErrInvalidRoleTransition
		}

		_, rejected, err := collab.RejectPending(ctx, tx, r, "", collab.DecisionRoleRetired, actorID, now)
		if err != nil {
			return err
		}
		events = append(events, rejected...)

		from := r.Status
		r.Status = collab.RoleUnneeded
		completed, err := collab.SaveRoleChange(ctx, tx, c, r, from, now)
		if err != nil {
			return err
		}
		retired := event.New(event.TypeRoleRetired, r.CollaborationID, r.ID, actorID, now)
		if reason != "" {
			retired = retired.WithPayload("reason", reason)
		}
		events = append(events, retired)
		if completed {
			events = append(events, event.New(event.TypeCollaborationCompleted, c.ID, "", actorID, now))
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("retiring role: %w", err)
	}
	out.Version++
	s.Emit(ctx, events)
	return out, nil
}

// StartWork moves an assigned role to IN_PROGRESS. Only an occupant may start work.
func (s *Registry) StartWork(ctx context.Context, roleID, actorID string) (*collab.Role, error) {
	if err := collab.ValidateID("role id", roleID); err != nil {
		return nil, err
	}
	if err := collab.ValidateActor(actorID); err != nil {
		return nil, err
	}

	var out *collab.Role
	var events []event.Event
	err := s.Runner.Run(ctx, "start_work", func(ctx context.Context, tx repository.Tx) error {
		events = nil
		r, err := collab.GetRole(ctx, tx, roleID)
		if err != nil {
			return err
		}
		if !r.HasParticipant(actorID) {
			return collab.ErrNotParticipant
		}
		if r.Status != collab.RoleAssigned && r.Status != collab.RoleFilled {
			return collab.ErrInvalidRoleTransition
		}
		c, err := collab.GetCollaboration(ctx, tx, r.CollaborationID)
		if err != nil {
			return err
		}
		now := s.Clock()
		from := r.Status
		wasAccepting := collab.AcceptsApplications(r, s.KeepOpen())
		r.Status = collab.RoleInProgress
		_, evts, err := collab.RejectStranded(ctx, tx, r, wasAccepting, s.KeepOpen(), actorID, now)
		if err != nil {
			return err
		}
		events = evts
		if _, err := collab.SaveRoleChange(ctx, tx, c, r, from, now); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("starting work: %w", err)
	}
	out.Version++
	s.Emit(ctx, events)
	return out, nil
}

// GetRole returns a role by id.
func (s *Registry) GetRole(ctx context.Context, roleID string) (*collab.Role, error) {
	if err := collab.ValidateID("role id", roleID); err != nil {
		return nil, err
	}
	return collab.GetRole(ctx, s.Reader, roleID)
}

// ListRoles returns the roles of a collaboration ordered by creation time.
func (s *Registry) ListRoles(ctx context.Context, collaborationID string, opts ListOptions) ([]*collab.Role, error) {
	if err := collab.ValidateID("collaboration id", collaborationID); err != nil {
		return nil, err
	}
	if _, err := collab.GetCollaboration(ctx, s.Reader, collaborationID); err != nil {
		return nil, err
	}
	roles, err := collab.RolesOf(ctx, s.Reader, collaborationID)
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}

	out := make([]*collab.Role, 0, len(roles))
	for _, r := range roles {
		if len(opts.Statuses) > 0 && !slices.Contains(opts.Statuses, r.Status) {
			continue
		}
		if opts.ParentRoleID != nil && r.ParentRoleID != *opts.ParentRoleID {
			continue
		}
		out = append(out, r)
	}
	slices.SortStableFunc(out, func(a, b *collab.Role) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (s *Registry) loadForCreator(ctx context.Context, tx repository.Tx, roleID, actorID string) (*collab.Role, *collab.Collaboration, error) {
	r, err := collab.GetRole(ctx, tx, roleID)
	if err != nil {
		return nil, nil, err
	}
	c, err := collab.GetCollaboration(ctx, tx, r.CollaborationID)
	if err != nil {
		return nil, nil, err
	}
	if err := collab.RequireCreator(c, actorID); err != nil {
		return nil, nil, err
	}
	return r, c, nil
}

// move runs a creator-only single-role transition.
func (s *Registry) move(
	ctx context.Context,
	op, action, roleID, actorID string,
	apply func(r *collab.Role, c *collab.Collaboration) error,
	emit func(r *collab.Role, now time.Time) event.Event,
) (*collab.Role, error) {
	if err := collab.ValidateID("role id", roleID); err != nil {
		return nil, err
	}
	if err := collab.ValidateActor(actorID); err != nil {
		return nil, err
	}

	var out *collab.Role
	var now time.Time
	err := s.Runner.Run(ctx, op, func(ctx context.Context, tx repository.Tx) error {
		now = s.Clock()
		r, c, err := s.loadForCreator(ctx, tx, roleID, actorID)
		if err != nil {
			return err
		}
		from := r.Status
		if err := apply(r, c); err != nil {
			return err
		}
		if _, err := collab.SaveRoleChange(ctx, tx, c, r, from, now); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	out.Version++
	if emit != nil {
		s.Emit(ctx, []event.Event{emit(out, now)})
	}
	return out, nil
}
