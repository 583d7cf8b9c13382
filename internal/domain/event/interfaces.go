package event

import "context"

// Dispatcher delivers lifecycle events. Implementations own delivery; a failed
// dispatch never undoes the committed change that produced the event.
type Dispatcher interface {
	Dispatch(ctx context.Context, evt Event) error
}

// Repository persists the event log.
type Repository interface {
	Append(ctx context.Context, evt Event) error
	List(ctx context.Context, opts ListOptions) ([]Event, error)
}
