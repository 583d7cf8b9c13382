package collab_test

import (
	"context"
	"strings"
	"testing"

	"github.com/rpggio/rolecall/internal/apperr"
	"github.com/rpggio/rolecall/internal/domain/collab"
	"github.com/rpggio/rolecall/internal/domain/completion"
	"github.com/rpggio/rolecall/internal/domain/domaintest"
	"github.com/rpggio/rolecall/internal/domain/role"
	"github.com/stretchr/testify/require"
)

func TestCollaborationService_Create(t *testing.T) {
	h := domaintest.New(t)
	ctx := context.Background()

	c, err := h.Collabs.Create(ctx, collab.CreateRequest{CreatorID: "alice", Title: "  Mural project  "})
	require.NoError(t, err)
	require.Equal(t, "Mural project", c.Title)
	require.Equal(t, collab.StatusOpen, c.Status)
	require.Equal(t, int64(1), c.Version)

	got, err := h.Collabs.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, c.ID, got.ID)
	require.Equal(t, int64(1), got.Version)
	require.Zero(t, got.RoleCount)
}

func TestCollaborationService_Create_Validation(t *testing.T) {
	h := domaintest.New(t)
	ctx := context.Background()

	_, err := h.Collabs.Create(ctx, collab.CreateRequest{CreatorID: "alice"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = h.Collabs.Create(ctx, collab.CreateRequest{Title: "x"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = h.Collabs.Create(ctx, collab.CreateRequest{CreatorID: "alice", Title: strings.Repeat("x", 201)})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCollaborationService_Get_NotFound(t *testing.T) {
	h := domaintest.New(t)
	_, err := h.Collabs.Get(context.Background(), "missing")
	require.ErrorIs(t, err, collab.ErrCollaborationNotFound)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCollaborationService_Cancel(t *testing.T) {
	h := domaintest.New(t)
	ctx := context.Background()
	c := h.Collaboration(t)

	_, err := h.Collabs.Cancel(ctx, c.ID, "mallory")
	require.ErrorIs(t, err, collab.ErrNotCreator)

	cancelled, err := h.Collabs.Cancel(ctx, c.ID, domaintest.Creator)
	require.NoError(t, err)
	require.Equal(t, collab.StatusCancelled, cancelled.Status)
	require.Equal(t, int64(2), cancelled.Version)

	again, err := h.Collabs.Cancel(ctx, c.ID, domaintest.Creator)
	require.NoError(t, err)
	require.Equal(t, int64(2), again.Version)

	_, err = h.Roles.CreateRole(ctx, c.ID, domaintest.Creator, roleDef("Late role"))
	require.ErrorIs(t, err, collab.ErrCollaborationClosed)
}

func TestCollaborationService_Cancel_CompletedFails(t *testing.T) {
	h := domaintest.New(t)
	ctx := context.Background()
	c := h.Collaboration(t)
	r := h.Fill(t, c.ID, "Painter", "pat")

	res, err := h.Completions.RequestCompletion(ctx, completionRequest(r.ID, "pat"))
	require.NoError(t, err)
	_, err = h.Completions.ConfirmCompletion(ctx, res.Request.ID, true, domaintest.Creator, "")
	require.NoError(t, err)
	require.Equal(t, collab.StatusCompleted, h.Get(t, c.ID).Status)

	_, err = h.Collabs.Cancel(ctx, c.ID, domaintest.Creator)
	require.ErrorIs(t, err, collab.ErrCollaborationClosed)
}

func TestCollaborationService_Audit(t *testing.T) {
	h := domaintest.New(t)
	c := h.Collaboration(t)
	h.Fill(t, c.ID, "Painter", "pat")
	h.OpenRole(t, c.ID, "Sweeper", 1)

	audit, err := h.Collabs.Audit(context.Background(), c.ID)
	require.NoError(t, err)
	require.True(t, audit.Consistent)
	require.Equal(t, 2, audit.RoleCount)
	require.Equal(t, 1, audit.FilledRoleCount)
	require.Equal(t, 0, audit.CompletedRoleCount)
}

func roleDef(title string) role.Definition {
	return role.Definition{Title: title, Publish: true}
}

func completionRequest(roleID, requester string) completion.Request {
	return completion.Request{RoleID: roleID, RequesterID: requester, Notes: "done"}
}
