package collab

import (
	"context"
	"log/slog"
	"time"

	"github.com/rpggio/rolecall/internal/domain/event"
	"github.com/rpggio/rolecall/internal/repository"
)

// Runner executes a unit of work atomically, re-running it on version conflicts.
type Runner interface {
	Run(ctx context.Context, op string, fn repository.TxFunc) error
}

// AcceptancePolicy decides what happens to other pending applications when
// a multi-seat role accepts one.
type AcceptancePolicy string

const (
	// RejectOthers rejects every other pending application on any acceptance.
	RejectOthers AcceptancePolicy = "reject_others"
	// KeepOpenUntilFull leaves other applications pending until the last seat is taken.
	KeepOpenUntilFull AcceptancePolicy = "keep_open_until_full"
)

// Valid reports whether p is a known policy.
func (p AcceptancePolicy) Valid() bool {
	return p == RejectOthers || p == KeepOpenUntilFull
}

// Deps bundles what every workflow service needs.
type Deps struct {
	Runner Runner
	Reader repository.Reader
	Events event.Dispatcher
	Logger *slog.Logger
	Now    func() time.Time
	Policy AcceptancePolicy
}

// Clock returns the current UTC time.
func (d Deps) Clock() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

// KeepOpen reports whether multi-seat roles keep taking applications after the first acceptance.
func (d Deps) KeepOpen() bool {
	return d.Policy == KeepOpenUntilFull
}

// Log returns the configured logger or a discarding one.
func (d Deps) Log() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}

// Emit dispatches events produced by a committed unit of work.
func (d Deps) Emit(ctx context.Context, events []event.Event) {
	event.Emit(ctx, d.Events, d.Log(), events)
}
