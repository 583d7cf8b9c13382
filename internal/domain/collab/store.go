package collab

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/rolecall/internal/domain/event"
	"github.com/rpggio/rolecall/internal/repository"
)

func notFound(err, domainErr error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domainErr
	}
	return err
}

// GetCollaboration loads a collaboration.
func GetCollaboration(ctx context.Context, r repository.Reader, id string) (*Collaboration, error) {
	c, err := repository.Load[Collaboration](ctx, r, CollectionCollaborations, id)
	if err != nil {
		return nil, notFound(err, ErrCollaborationNotFound)
	}
	return c, nil
}

// GetRole loads a role.
func GetRole(ctx context.Context, r repository.Reader, id string) (*Role, error) {
	role, err := repository.Load[Role](ctx, r, CollectionRoles, id)
	if err != nil {
		return nil, notFound(err, ErrRoleNotFound)
	}
	return role, nil
}

// GetApplication loads an application.
func GetApplication(ctx context.Context, r repository.Reader, id string) (*Application, error) {
	app, err := repository.Load[Application](ctx, r, CollectionApplications, id)
	if err != nil {
		return nil, notFound(err, ErrApplicationNotFound)
	}
	return app, nil
}

// GetCompletionRequest loads a completion request.
func GetCompletionRequest(ctx context.Context, r repository.Reader, id string) (*CompletionRequest, error) {
	req, err := repository.Load[CompletionRequest](ctx, r, CollectionCompletionRequests, id)
	if err != nil {
		return nil, notFound(err, ErrCompletionRequestNotFound)
	}
	return req, nil
}

// RolesOf lists every role of a collaboration.
func RolesOf(ctx context.Context, r repository.Reader, collaborationID string) ([]*Role, error) {
	return repository.LoadAll[Role](ctx, r, CollectionRoles, IndexCollaborationID, collaborationID)
}

// ChildrenOf lists the roles whose parent is parentID.
func ChildrenOf(ctx context.Context, r repository.Reader, parentID string) ([]*Role, error) {
	return repository.LoadAll[Role](ctx, r, CollectionRoles, IndexParentRoleID, parentID)
}

// ApplicationsFor lists every application submitted against a role.
func ApplicationsFor(ctx context.Context, r repository.Reader, roleID string) ([]*Application, error) {
	return repository.LoadAll[Application](ctx, r, CollectionApplications, IndexRoleID, roleID)
}

// CompletionRequestsFor lists every completion request made for a role.
func CompletionRequestsFor(ctx context.Context, r repository.Reader, roleID string) ([]*CompletionRequest, error) {
	return repository.LoadAll[CompletionRequest](ctx, r, CollectionCompletionRequests, IndexRoleID, roleID)
}

// Save buffers any domain entity in tx.
func Save(ctx context.Context, tx repository.Tx, entity repository.Entity) error {
	var collection string
	switch entity.(type) {
	case *Collaboration:
		collection = CollectionCollaborations
	case *Role:
		collection = CollectionRoles
	case *Application:
		collection = CollectionApplications
	case *CompletionRequest:
		collection = CollectionCompletionRequests
	default:
		return fmt.Errorf("saving %T: unknown entity", entity)
	}
	return repository.Save(ctx, tx, collection, entity)
}

// SaveRoleChange writes a role that moved from state from, folds the move into
// the collaboration counters and re-derives the collaboration status. The
// collaboration is written only when it changed. completedNow reports that
// this change completed the collaboration.
func SaveRoleChange(ctx context.Context, tx repository.Tx, c *Collaboration, role *Role, from RoleStatus, now time.Time) (completedNow bool, err error) {
	if err := ValidateRoleTransition(from, role.Status); err != nil {
		return false, err
	}
	before := *c
	if err := ApplyTransition(c, from, role.Status); err != nil {
		return false, err
	}

	role.UpdatedAt = now
	if err := Save(ctx, tx, role); err != nil {
		return false, err
	}
	return SyncCollaboration(ctx, tx, c, before, now)
}

// SyncCollaboration re-derives the collaboration status from its counters and
// writes c if it differs from before. Sibling roles are never read, so writes
// to different roles only contend when they change the collaboration itself.
func SyncCollaboration(ctx context.Context, tx repository.Tx, c *Collaboration, before Collaboration, now time.Time) (completedNow bool, err error) {
	completedNow = Reconcile(c, now)
	if *c != before {
		c.UpdatedAt = now
		if err := Save(ctx, tx, c); err != nil {
			return false, err
		}
	}
	return completedNow, nil
}

// RejectPending rejects every pending application of role except the one with
// id except, recording reason. It returns the rejected applications and one
// application_auto_rejected event per application.
func RejectPending(ctx context.Context, tx repository.Tx, role *Role, except, reason, actorID string, now time.Time) ([]*Application, []event.Event, error) {
	apps, err := ApplicationsFor(ctx, tx, role.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing applications: %w", err)
	}
	var rejected []*Application
	var events []event.Event
	for _, app := range apps {
		if app.ID == except || app.Status != ApplicationPending {
			continue
		}
		if err := DecideApplication(app, ApplicationRejected); err != nil {
			return nil, nil, err
		}
		app.DecisionReason = reason
		app.ReviewedAt = &now
		app.UpdatedAt = now
		if err := Save(ctx, tx, app); err != nil {
			return nil, nil, err
		}
		rejected = append(rejected, app)

		evt := event.New(event.TypeApplicationAutoRejected, role.CollaborationID, role.ID, actorID, now).
			WithPayload("applicant_id", app.ApplicantID).
			WithPayload("reason", reason)
		evt.ApplicationID = app.ID
		events = append(events, evt)
	}
	return rejected, events, nil
}

// RejectStranded rejects the pending applications of a role that took
// applicants before this change (wasAccepting) and no longer does.
func RejectStranded(ctx context.Context, tx repository.Tx, role *Role, wasAccepting, keepOpen bool, actorID string, now time.Time) ([]*Application, []event.Event, error) {
	if !wasAccepting || AcceptsApplications(role, keepOpen) {
		return nil, nil, nil
	}
	return RejectPending(ctx, tx, role, "", DecisionRoleClosed, actorID, now)
}
