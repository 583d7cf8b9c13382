package role_test

import (
	"context"
	"testing"

	"github.com/rpggio/rolecall/internal/apperr"
	"github.com/rpggio/rolecall/internal/domain/collab"
	"github.com/rpggio/rolecall/internal/domain/completion"
	"github.com/rpggio/rolecall/internal/domain/domaintest"
	"github.com/rpggio/rolecall/internal/domain/event"
	"github.com/rpggio/rolecall/internal/domain/role"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func completionFor(roleID, requester string) completion.Request {
	return completion.Request{RoleID: roleID, RequesterID: requester}
}

func TestRegistry_CreateRole(t *testing.T) {
	h := domaintest.New(t)
	ctx := context.Background()
	c := h.Collaboration(t)

	draft, err := h.Roles.CreateRole(ctx, c.ID, domaintest.Creator, role.Definition{
		Title:          "Designer",
		RequiredSkills: []collab.Skill{{Name: "figma", Level: collab.LevelAdvanced}},
	})
	require.NoError(t, err)
	require.Equal(t, collab.RoleDraft, draft.Status)
	require.Equal(t, 1, draft.MaxParticipants)
	require.Equal(t, collab.CompletionNone, draft.CompletionStatus)
	require.Equal(t, int64(1), draft.Version)

	open, err := h.Roles.CreateRole(ctx, c.ID, domaintest.Creator, role.Definition{Title: "Builder", MaxParticipants: 3, Publish: true})
	require.NoError(t, err)
	require.Equal(t, collab.RoleOpen, open.Status)

	got := h.Get(t, c.ID)
	require.Equal(t, 2, got.RoleCount)
	require.Equal(t, collab.StatusOpen, got.Status)
	h.RequireConsistent(t, c.ID)
}

func TestRegistry_CreateRole_Rejections(t *testing.T) {
	h := domaintest.New(t)
	ctx := context.Background()
	c := h.Collaboration(t)

	_, err := h.Roles.CreateRole(ctx, c.ID, "stranger", role.Definition{Title: "Designer"})
	require.ErrorIs(t, err, collab.ErrNotCreator)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = h.Roles.CreateRole(ctx, c.ID, domaintest.Creator, role.Definition{})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = h.Roles.CreateRole(ctx, c.ID, domaintest.Creator, role.Definition{
		Title:          "Designer",
		RequiredSkills: []collab.Skill{{Name: "figma", Level: "guru"}},
	})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = h.Roles.CreateRole(ctx, "missing", domaintest.Creator, role.Definition{Title: "Designer"})
	require.ErrorIs(t, err, collab.ErrCollaborationNotFound)

	require.Zero(t, h.Get(t, c.ID).RoleCount)
}

func TestRegistry_ChildRoles(t *testing.T) {
	h := domaintest.New(t)
	ctx := context.Background()
	c := h.Collaboration(t)
	parent := h.OpenRole(t, c.ID, "Kitchen", 1)

	child, err := h.Roles.CreateChildRole(ctx, parent.ID, domaintest.Creator, role.Definition{Title: "Dishwasher"})
	require.NoError(t, err)
	require.Equal(t, parent.ID, child.ParentRoleID)
	require.Equal(t, c.ID, child.CollaborationID)

	stored := h.Role(t, parent.ID)
	require.Equal(t, []string{child.ID}, stored.ChildRoleIDs)

	children, err := h.Roles.ListRoles(ctx, c.ID, role.ListOptions{ParentRoleID: ptr(parent.ID)})
	require.NoError(t, err)
	require.Len(t, children, 1)
	require.Equal(t, child.ID, children[0].ID)

	_, err = h.Roles.CreateChildRole(ctx, "missing", domaintest.Creator, role.Definition{Title: "Orphan"})
	require.ErrorIs(t, err, collab.ErrRoleNotFound)
	require.Equal(t, 2, h.Get(t, c.ID).RoleCount)
}

func TestRegistry_UpdateRole(t *testing.T) {
	h := domaintest.New(t)
	ctx := context.Background()
	c := h.Collaboration(t)
	r := h.OpenRole(t, c.ID, "Builder", 1)

	updated, err := h.Roles.UpdateRole(ctx, r.ID, domaintest.Creator, role.Patch{
		Title:           ptr("Lead builder"),
		MaxParticipants: ptr(2),
	})
	require.NoError(t, err)
	require.Equal(t, "Lead builder", updated.Title)
	require.Equal(t, 2, updated.MaxParticipants)
	require.Equal(t, int64(2), updated.Version)

	_, err = h.Roles.UpdateRole(ctx, r.ID, domaintest.Creator, role.Patch{})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = h.Roles.UpdateRole(ctx, r.ID, "stranger", role.Patch{Title: ptr("x")})
	require.ErrorIs(t, err, collab.ErrNotCreator)
}

func TestRegistry_UpdateRole_ImmutableOnceAssigned(t *testing.T) {
	h := domaintest.New(t)
	ctx := context.Background()
	c := h.Collaboration(t)
	r := h.Fill(t, c.ID, "Builder", "bob")
	require.Equal(t, collab.RoleFilled, r.Status)

	_, err := h.Roles.UpdateRole(ctx, r.ID, domaintest.Creator, role.Patch{Title: ptr("Changed")})
	require.ErrorIs(t, err, apperr.ErrRoleImmutable)
	require.ErrorIs(t, err, apperr.ErrStateConflict)
	require.False(t, apperr.Retryable(err))
	require.Equal(t, "Builder", h.Role(t, r.ID).Title)
}

func TestRegistry_DeleteRole(t *testing.T) {
	h := domaintest.New(t)
	ctx := context.Background()
	c := h.Collaboration(t)

	draft, err := h.Roles.CreateRole(ctx, c.ID, domaintest.Creator, role.Definition{Title: "Scratch"})
	require.NoError(t, err)
	open := h.OpenRole(t, c.ID, "Builder", 1)
	require.Equal(t, 2, h.Get(t, c.ID).RoleCount)

	require.ErrorIs(t, h.Roles.DeleteRole(ctx, open.ID, domaintest.Creator), apperr.ErrRoleImmutable)
	require.ErrorIs(t, h.Roles.DeleteRole(ctx, draft.ID, "stranger"), collab.ErrNotCreator)

	require.NoError(t, h.Roles.DeleteRole(ctx, draft.ID, domaintest.Creator))
	_, err = h.Roles.GetRole(ctx, draft.ID)
	require.ErrorIs(t, err, collab.ErrRoleNotFound)
	require.Equal(t, 1, h.Get(t, c.ID).RoleCount)
	h.RequireConsistent(t, c.ID)
}

func TestRegistry_DeleteRole_WithChildren(t *testing.T) {
	h := domaintest.New(t)
	ctx := context.Background()
	c := h.Collaboration(t)

	parent, err := h.Roles.CreateRole(ctx, c.ID, domaintest.Creator, role.Definition{Title: "Kitchen"})
	require.NoError(t, err)
	child, err := h.Roles.CreateChildRole(ctx, parent.ID, domaintest.Creator, role.Definition{Title: "Dishwasher"})
	require.NoError(t, err)

	err = h.Roles.DeleteRole(ctx, parent.ID, domaintest.Creator)
	require.ErrorIs(t, err, apperr.ErrRoleHasChildren)

	require.NoError(t, h.Roles.DeleteRole(ctx, child.ID, domaintest.Creator))
	require.Empty(t, h.Role(t, parent.ID).ChildRoleIDs)
	require.NoError(t, h.Roles.DeleteRole(ctx, parent.ID, domaintest.Creator))
	require.Zero(t, h.Get(t, c.ID).RoleCount)
}

func TestRegistry_PublishRetireReopen(t *testing.T) {
	h := domaintest.New(t)
	ctx := context.Background()
	c := h.Collaboration(t)

	draft, err := h.Roles.CreateRole(ctx, c.ID, domaintest.Creator, role.Definition{Title: "Greeter"})
	require.NoError(t, err)

	published, err := h.Roles.PublishRole(ctx, draft.ID, domaintest.Creator)
	require.NoError(t, err)
	require.Equal(t, collab.RoleOpen, published.Status)

	_, err = h.Roles.PublishRole(ctx, draft.ID, domaintest.Creator)
	require.ErrorIs(t, err, collab.ErrInvalidRoleTransition)

	pending := h.Apply(t, draft.ID, "gus")
	h.Events.Reset()

	retired, err := h.Roles.RetireRole(ctx, draft.ID, "no longer needed", domaintest.Creator)
	require.NoError(t, err)
	require.Equal(t, collab.RoleUnneeded, retired.Status)

	app, err := h.Applications.Get(ctx, pending.ID)
	require.NoError(t, err)
	require.Equal(t, collab.ApplicationRejected, app.Status)
	require.Equal(t, collab.DecisionRoleRetired, app.DecisionReason)
	require.Equal(t, []event.Type{event.TypeApplicationAutoRejected, event.TypeRoleRetired}, h.Events.Types())

	_, err = h.Roles.ReopenRole(ctx, draft.ID, domaintest.Creator)
	require.ErrorIs(t, err, collab.ErrInvalidRoleTransition)
	h.RequireConsistent(t, c.ID)
}

func TestRegistry_RetireLastOpenRoleCompletesCollaboration(t *testing.T) {
	h := domaintest.New(t)
	ctx := context.Background()
	c := h.Collaboration(t)
	done := h.Fill(t, c.ID, "Painter", "pat")
	spare := h.OpenRole(t, c.ID, "Spare painter", 1)

	req, err := h.Completions.RequestCompletion(ctx, completionFor(done.ID, "pat"))
	require.NoError(t, err)
	_, err = h.Completions.ConfirmCompletion(ctx, req.Request.ID, true, domaintest.Creator, "")
	require.NoError(t, err)
	require.Equal(t, collab.StatusInProgress, h.Get(t, c.ID).Status)

	h.Events.Reset()
	_, err = h.Roles.RetireRole(ctx, spare.ID, "", domaintest.Creator)
	require.NoError(t, err)

	got := h.Get(t, c.ID)
	require.Equal(t, collab.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	require.Equal(t, 1, h.Events.Count(event.TypeCollaborationCompleted))
}

func TestRegistry_StartWork(t *testing.T) {
	h := domaintest.New(t)
	ctx := context.Background()
	c := h.Collaboration(t)
	r := h.Fill(t, c.ID, "Builder", "bob")

	_, err := h.Roles.StartWork(ctx, r.ID, "someone")
	require.ErrorIs(t, err, collab.ErrNotParticipant)

	started, err := h.Roles.StartWork(ctx, r.ID, "bob")
	require.NoError(t, err)
	require.Equal(t, collab.RoleInProgress, started.Status)
	require.Equal(t, 1, h.Get(t, c.ID).FilledRoleCount)
	h.RequireConsistent(t, c.ID)
}

func TestRegistry_ListRoles(t *testing.T) {
	h := domaintest.New(t)
	ctx := context.Background()
	c := h.Collaboration(t)
	first := h.OpenRole(t, c.ID, "First", 1)
	h.Fill(t, c.ID, "Second", "sam")
	_, err := h.Roles.CreateRole(ctx, c.ID, domaintest.Creator, role.Definition{Title: "Third"})
	require.NoError(t, err)

	all, err := h.Roles.ListRoles(ctx, c.ID, role.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, first.ID, all[0].ID)

	open, err := h.Roles.ListRoles(ctx, c.ID, role.ListOptions{Statuses: []collab.RoleStatus{collab.RoleOpen}})
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, "First", open[0].Title)

	_, err = h.Roles.ListRoles(ctx, "missing", role.ListOptions{})
	require.ErrorIs(t, err, collab.ErrCollaborationNotFound)
}
