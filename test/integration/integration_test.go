package integration_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rpggio/rolecall/internal/apperr"
	"github.com/rpggio/rolecall/internal/domain/abandonment"
	"github.com/rpggio/rolecall/internal/domain/application"
	"github.com/rpggio/rolecall/internal/domain/collab"
	"github.com/rpggio/rolecall/internal/domain/completion"
	"github.com/rpggio/rolecall/internal/domain/domaintest"
	"github.com/rpggio/rolecall/internal/domain/event"
	"github.com/rpggio/rolecall/internal/sqlite"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	*domaintest.Harness
	db     *sqlite.DB
	events *event.Service
}

// newTestEnv runs the lifecycle services on a SQLite file with the event log
// persisted next to the documents.
func newTestEnv(t *testing.T, opts ...domaintest.Option) *testEnv {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "rolecall.db"))
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { _ = db.Close() })

	events := event.NewService(sqlite.NewEventRepository(db), nil)
	opts = append(opts, domaintest.WithDispatcher(events))
	return &testEnv{
		Harness: domaintest.NewWithStore(t, sqlite.NewDocumentStore(db), opts...),
		db:      db,
		events:  events,
	}
}

func (env *testEnv) loggedTypes(t *testing.T, collaborationID string) []event.Type {
	t.Helper()
	evts, err := env.events.List(context.Background(), event.ListOptions{CollaborationID: collaborationID, Limit: 100})
	require.NoError(t, err)
	var out []event.Type
	for i := len(evts) - 1; i >= 0; i-- {
		out = append(out, evts[i].Type)
	}
	return out
}

func TestIntegration_AcceptThenPermanentAbandon(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	c := env.Collaboration(t)
	a := env.OpenRole(t, c.ID, "Role A", 1)
	env.OpenRole(t, c.ID, "Role B", 1)
	require.Equal(t, 2, env.Get(t, c.ID).RoleCount)

	x := env.Apply(t, a.ID, "X")
	require.Equal(t, 1, env.Role(t, a.ID).ApplicationCount)
	y := env.Apply(t, a.ID, "Y")

	res := env.Accept(t, x.ID)
	require.Equal(t, collab.RoleFilled, res.Role.Status)
	require.Equal(t, "X", res.Role.ParticipantID)
	yApp, err := env.Applications.Get(ctx, y.ID)
	require.NoError(t, err)
	require.Equal(t, collab.ApplicationRejected, yApp.Status)
	require.Equal(t, 1, env.Get(t, c.ID).FilledRoleCount)

	ab, err := env.Abandonment.AbandonRole(ctx, abandonment.Request{RoleID: a.ID, ActorID: domaintest.Creator, Permanent: true})
	require.NoError(t, err)
	require.Equal(t, collab.RoleAbandoned, ab.Role.Status)
	require.Equal(t, "X", ab.Role.PreviousParticipantID)
	require.Equal(t, 0, env.Get(t, c.ID).FilledRoleCount)
	env.RequireConsistent(t, c.ID)

	require.Equal(t, []event.Type{
		event.TypeApplicationReceived,
		event.TypeApplicationReceived,
		event.TypeApplicationAccepted,
		event.TypeApplicationAutoRejected,
		event.TypeRoleFilled,
		event.TypeRoleAbandoned,
	}, env.loggedTypes(t, c.ID))
}

func TestIntegration_SecondAcceptOnFilledRole(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, domaintest.WithPolicy(collab.KeepOpenUntilFull))

	c := env.Collaboration(t)
	r := env.OpenRole(t, c.ID, "Solo", 1)
	first := env.Apply(t, r.ID, "first")
	second := env.Apply(t, r.ID, "second")
	env.Accept(t, first.ID)

	_, err := env.Applications.Review(ctx, second.ID, application.DecisionAccept, domaintest.Creator)
	require.ErrorIs(t, err, apperr.ErrConcurrentAcceptance)
	require.True(t, apperr.Retryable(err))
	env.RequireConsistent(t, c.ID)
}

func TestIntegration_AtMostOneAcceptance(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	c := env.Collaboration(t)
	r := env.OpenRole(t, c.ID, "Keeper", 1)
	const n = 8
	apps := make([]*collab.Application, n)
	for i := range apps {
		apps[i] = env.Apply(t, r.ID, fmt.Sprintf("applicant-%d", i))
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i, app := range apps {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = env.Applications.Review(ctx, id, application.DecisionAccept, domaintest.Creator)
		}(i, app.ID)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		require.ErrorIs(t, err, apperr.ErrConcurrentAcceptance)
	}
	require.Equal(t, 1, wins)

	stored, err := env.Applications.ListByRole(ctx, r.ID)
	require.NoError(t, err)
	counts := map[collab.ApplicationStatus]int{}
	for _, app := range stored {
		counts[app.Status]++
	}
	require.Equal(t, map[collab.ApplicationStatus]int{
		collab.ApplicationAccepted: 1,
		collab.ApplicationRejected: n - 1,
	}, counts)
	require.Equal(t, 1, env.Get(t, c.ID).FilledRoleCount)
	env.RequireConsistent(t, c.ID)
}

func TestIntegration_DistinctRolesDoNotLoseCounts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	c := env.Collaboration(t)
	const n = 4
	apps := make([]*collab.Application, n)
	for i := range apps {
		r := env.OpenRole(t, c.ID, fmt.Sprintf("Role %d", i), 1)
		apps[i] = env.Apply(t, r.ID, fmt.Sprintf("p%d", i))
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i, app := range apps {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = env.Applications.Review(ctx, id, application.DecisionAccept, domaintest.Creator)
		}(i, app.ID)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	stored := env.Get(t, c.ID)
	require.Equal(t, n, stored.FilledRoleCount)
	require.Equal(t, collab.StatusInProgress, stored.Status)
	env.RequireConsistent(t, c.ID)
}

func TestIntegration_ReopenRestoresCount(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	c := env.Collaboration(t)
	env.Fill(t, c.ID, "Bass", "bea")
	r := env.Fill(t, c.ID, "Drums", "dom")
	require.Equal(t, 2, env.Get(t, c.ID).FilledRoleCount)

	_, err := env.Abandonment.AbandonRole(ctx, abandonment.Request{RoleID: r.ID, ActorID: "dom", Reason: "tour"})
	require.NoError(t, err)
	require.Equal(t, collab.RoleOpen, env.Role(t, r.ID).Status)
	require.Equal(t, 1, env.Get(t, c.ID).FilledRoleCount)

	env.Accept(t, env.Apply(t, r.ID, "dee").ID)
	require.Equal(t, 2, env.Get(t, c.ID).FilledRoleCount)
	env.RequireConsistent(t, c.ID)
}

func TestIntegration_CompletionHandshake(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	c := env.Collaboration(t)
	r := env.OpenRole(t, c.ID, "Crew", 2)
	env.Accept(t, env.Apply(t, r.ID, "cy").ID)
	_, err := env.Roles.StartWork(ctx, r.ID, "cy")
	require.NoError(t, err)

	req, err := env.Completions.RequestCompletion(ctx, completion.Request{RoleID: r.ID, RequesterID: "cy"})
	require.NoError(t, err)
	res, err := env.Completions.ConfirmCompletion(ctx, req.Request.ID, false, domaintest.Creator, "not yet")
	require.NoError(t, err)
	require.Equal(t, collab.RoleInProgress, res.Role.Status)

	again, err := env.Completions.RequestCompletion(ctx, completion.Request{RoleID: r.ID, RequesterID: "cy"})
	require.NoError(t, err)
	done, err := env.Completions.ConfirmCompletion(ctx, again.Request.ID, true, domaintest.Creator, "")
	require.NoError(t, err)
	require.Equal(t, collab.RoleCompleted, done.Role.Status)
	require.Equal(t, collab.StatusCompleted, env.Get(t, c.ID).Status)
	env.RequireConsistent(t, c.ID)

	completed := event.TypeCollaborationCompleted
	logged, err := env.events.List(ctx, event.ListOptions{CollaborationID: c.ID, Type: &completed})
	require.NoError(t, err)
	require.Len(t, logged, 1)
}

func TestIntegration_FailedCallWritesNothing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	c := env.Collaboration(t)
	r := env.OpenRole(t, c.ID, "Lead", 1)
	app := env.Apply(t, r.ID, "lou")
	roleBefore := env.Role(t, r.ID)
	collabBefore := env.Get(t, c.ID)

	_, err := env.Applications.Review(ctx, app.ID, application.DecisionAccept, "lou")
	require.ErrorIs(t, err, collab.ErrNotCreator)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	require.Equal(t, roleBefore, env.Role(t, r.ID))
	require.Equal(t, collabBefore, env.Get(t, c.ID))
	stored, err := env.Applications.Get(ctx, app.ID)
	require.NoError(t, err)
	require.Equal(t, collab.ApplicationPending, stored.Status)
	require.Equal(t, app.Version, stored.Version)
}
