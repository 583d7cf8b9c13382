// Package txn runs read-validate-write units against a repository.Store,
// retrying the whole unit when the store reports a version conflict.
package txn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/rpggio/rolecall/internal/apperr"
	"github.com/rpggio/rolecall/internal/repository"
)

// Outcomes reported to an Observer.
const (
	OutcomeCommitted = "committed"
	OutcomeConflict  = "conflict"
	OutcomeAborted   = "aborted"
	OutcomeExhausted = "exhausted"
)

// Policy bounds the retry loop.
type Policy struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// DefaultPolicy returns five attempts with 10ms..250ms jittered backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    250 * time.Millisecond,
	}
}

// Observer receives one call per attempt.
type Observer interface {
	ObserveAttempt(op, outcome string)
}

// Coordinator executes transactional units of work.
type Coordinator struct {
	store    repository.Store
	policy   Policy
	logger   *slog.Logger
	observer Observer
	sleep    func(ctx context.Context, d time.Duration) error
	jitter   func(n int64) int64
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithObserver reports attempts to o.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) { c.observer = o }
}

// WithSleep replaces the backoff sleep.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Coordinator) { c.sleep = sleep }
}

// WithJitter replaces the random source used for backoff. jitter(n) must return a value in [0, n).
func WithJitter(jitter func(n int64) int64) Option {
	return func(c *Coordinator) { c.jitter = jitter }
}

// New creates a coordinator. Zero policy fields fall back to DefaultPolicy.
func New(store repository.Store, policy Policy, logger *slog.Logger, opts ...Option) *Coordinator {
	def := DefaultPolicy()
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = def.MaxAttempts
	}
	if policy.BaseDelay < 0 {
		policy.BaseDelay = 0
	}
	if policy.MaxDelay < policy.BaseDelay {
		policy.MaxDelay = policy.BaseDelay
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Coordinator{
		store:  store,
		policy: policy,
		logger: logger,
		sleep:  sleepContext,
		jitter: rand.Int64N,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the effective retry policy.
func (c *Coordinator) Policy() Policy {
	return c.policy
}

// Run executes fn in a transaction. fn must derive every decision from what it
// reads through tx, since it runs again from scratch after a conflict. Errors
// returned by fn are not retried.
func (c *Coordinator) Run(ctx context.Context, op string, fn repository.TxFunc) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := c.store.RunTransaction(ctx, fn)
		switch {
		case err == nil:
			c.observe(op, OutcomeCommitted)
			if attempt > 1 {
				c.logger.Debug("transaction committed after retry", "op", op, "attempt", attempt)
			}
			return nil
		case !errors.Is(err, repository.ErrConflict):
			c.observe(op, OutcomeAborted)
			return err
		}

		if attempt >= c.policy.MaxAttempts {
			c.observe(op, OutcomeExhausted)
			c.logger.Warn("transaction retries exhausted", "op", op, "attempts", attempt)
			return fmt.Errorf("%s: %w", op, apperr.ErrTransactionExhausted)
		}
		c.observe(op, OutcomeConflict)

		delay := c.backoff(attempt)
		c.logger.Debug("transaction conflict, retrying", "op", op, "attempt", attempt, "delay", delay)
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// backoff returns a full-jitter delay for the given attempt (1-based).
func (c *Coordinator) backoff(attempt int) time.Duration {
	ceiling := c.policy.BaseDelay
	for i := 1; i < attempt && ceiling < c.policy.MaxDelay; i++ {
		ceiling *= 2
	}
	if ceiling > c.policy.MaxDelay {
		ceiling = c.policy.MaxDelay
	}
	if ceiling <= 0 {
		return 0
	}
	return time.Duration(c.jitter(int64(ceiling) + 1))
}

func (c *Coordinator) observe(op, outcome string) {
	if c.observer != nil {
		c.observer.ObserveAttempt(op, outcome)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
