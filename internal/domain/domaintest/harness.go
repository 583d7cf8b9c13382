// Package domaintest wires the lifecycle services over the in-memory store for tests.
package domaintest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/rolecall/internal/domain/abandonment"
	"github.com/rpggio/rolecall/internal/domain/application"
	"github.com/rpggio/rolecall/internal/domain/collab"
	"github.com/rpggio/rolecall/internal/domain/completion"
	"github.com/rpggio/rolecall/internal/domain/event"
	"github.com/rpggio/rolecall/internal/domain/role"
	"github.com/rpggio/rolecall/internal/repository"
	"github.com/rpggio/rolecall/internal/repository/memory"
	"github.com/rpggio/rolecall/internal/txn"
	"github.com/stretchr/testify/require"
)

// Creator is the actor that owns collaborations created by the harness.
const Creator = "creator"

// Recorder is a Dispatcher that keeps every event.
type Recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *Recorder) Dispatch(_ context.Context, evt event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Event(nil), r.events...)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []event.Type {
	var out []event.Type
	for _, evt := range r.Events() {
		out = append(out, evt.Type)
	}
	return out
}

// Count returns how many events of typ were recorded.
func (r *Recorder) Count(typ event.Type) int {
	n := 0
	for _, evt := range r.Events() {
		if evt.Type == typ {
			n++
		}
	}
	return n
}

// Reset drops recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Harness bundles every lifecycle service over one store.
type Harness struct {
	Store        repository.Store
	Coordinator  *txn.Coordinator
	Events       *Recorder
	Collabs      *collab.Service
	Roles        *role.Registry
	Applications *application.Service
	Completions  *completion.Service
	Abandonment  *abandonment.Service
}

// Option customizes a harness.
type Option func(*collab.Deps)

// WithPolicy sets the acceptance policy.
func WithPolicy(p collab.AcceptancePolicy) Option {
	return func(d *collab.Deps) { d.Policy = p }
}

// WithDispatcher delivers events to d as well as the recorder.
func WithDispatcher(d event.Dispatcher) Option {
	return func(deps *collab.Deps) { deps.Events = event.Fanout{deps.Events, d} }
}

// New builds a harness over a fresh in-memory store with instant retries.
func New(t testing.TB, opts ...Option) *Harness {
	t.Helper()
	return NewWithStore(t, memory.New(), opts...)
}

// NewWithStore builds a harness over store.
func NewWithStore(t testing.TB, store repository.Store, opts ...Option) *Harness {
	t.Helper()
	coord := txn.New(store, txn.Policy{MaxAttempts: 10}, nil,
		txn.WithSleep(func(context.Context, time.Duration) error { return nil }))

	var tick int64
	var mu sync.Mutex
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	rec := &Recorder{}
	deps := collab.Deps{
		Runner: coord,
		Reader: store,
		Events: rec,
		Policy: collab.RejectOthers,
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			tick++
			return base.Add(time.Duration(tick) * time.Second)
		},
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return &Harness{
		Store:        store,
		Coordinator:  coord,
		Events:       rec,
		Collabs:      collab.NewService(deps),
		Roles:        role.NewRegistry(deps),
		Applications: application.NewService(deps),
		Completions:  completion.NewService(deps),
		Abandonment:  abandonment.NewService(deps),
	}
}

// Collaboration creates a collaboration owned by Creator.
func (h *Harness) Collaboration(t testing.TB) *collab.Collaboration {
	t.Helper()
	c, err := h.Collabs.Create(context.Background(), collab.CreateRequest{CreatorID: Creator, Title: "Community garden"})
	require.NoError(t, err)
	return c
}

// OpenRole creates a published role with the given seat count.
func (h *Harness) OpenRole(t testing.TB, collaborationID, title string, seats int) *collab.Role {
	t.Helper()
	r, err := h.Roles.CreateRole(context.Background(), collaborationID, Creator, role.Definition{
		Title:           title,
		MaxParticipants: seats,
		Publish:         true,
	})
	require.NoError(t, err)
	return r
}

// Apply submits an application from applicant.
func (h *Harness) Apply(t testing.TB, roleID, applicant string) *collab.Application {
	t.Helper()
	app, err := h.Applications.Submit(context.Background(), application.SubmitRequest{
		RoleID:      roleID,
		ApplicantID: applicant,
		Message:     "I'd like to help",
	})
	require.NoError(t, err)
	return app
}

// Accept accepts an application as Creator.
func (h *Harness) Accept(t testing.TB, applicationID string) *application.ReviewResult {
	t.Helper()
	res, err := h.Applications.Review(context.Background(), applicationID, application.DecisionAccept, Creator)
	require.NoError(t, err)
	return res
}

// Fill opens a single-seat role and fills it with participant.
func (h *Harness) Fill(t testing.TB, collaborationID, title, participant string) *collab.Role {
	t.Helper()
	r := h.OpenRole(t, collaborationID, title, 1)
	app := h.Apply(t, r.ID, participant)
	return h.Accept(t, app.ID).Role
}

// Role reads a role from the store.
func (h *Harness) Role(t testing.TB, id string) *collab.Role {
	t.Helper()
	r, err := h.Roles.GetRole(context.Background(), id)
	require.NoError(t, err)
	return r
}

// Get reads a collaboration from the store.
func (h *Harness) Get(t testing.TB, id string) *collab.Collaboration {
	t.Helper()
	c, err := h.Collabs.Get(context.Background(), id)
	require.NoError(t, err)
	return c
}

// RequireConsistent fails unless the stored counters match the role states.
func (h *Harness) RequireConsistent(t testing.TB, collaborationID string) {
	t.Helper()
	audit, err := h.Collabs.Audit(context.Background(), collaborationID)
	require.NoError(t, err)
	require.Truef(t, audit.Consistent, "counters drifted: %+v", audit)
}
