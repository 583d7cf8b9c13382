// Package apperr defines the error taxonomy shared by every workflow.
//
// Each error carries a Kind. Category sentinels (ErrValidation, ErrStateConflict, ...)
// match any error of the same kind through errors.Is, so callers can branch on the
// category without knowing the specific error.
package apperr

import "errors"

// Kind classifies an error for callers and the tool surface.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthorization
	KindNotFound
	KindStateConflict
	KindInfrastructure
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindStateConflict:
		return "state_conflict"
	case KindInfrastructure:
		return "infrastructure"
	default:
		return "unknown"
	}
}

// Error is a classified error.
type Error struct {
	kind      Kind
	msg       string
	retryable bool
	category  bool
}

// New returns a specific error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// NewRetryable returns a specific error the caller may retry after re-reading state.
func NewRetryable(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg, retryable: true}
}

func (e *Error) Error() string { return e.msg }

// Kind reports the error category.
func (e *Error) Kind() Kind { return e.kind }

// Is matches the identical error, or a category sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t == e {
		return true
	}
	return t.category && t.kind == e.kind
}

func category(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg, category: true}
}

var (
	// ErrValidation matches every input-shape error.
	ErrValidation = category(KindValidation, "validation failed")
	// ErrUnauthorized matches every authorization error.
	ErrUnauthorized = category(KindAuthorization, "actor is not permitted")
	// ErrNotFound matches every missing-entity error.
	ErrNotFound = category(KindNotFound, "not found")
	// ErrStateConflict matches every state-machine violation.
	ErrStateConflict = category(KindStateConflict, "state conflict")
	// ErrInfrastructure matches storage and retry failures.
	ErrInfrastructure = category(KindInfrastructure, "infrastructure failure")
)

var (
	// ErrRoleImmutable is returned when editing or deleting a role past the editable states.
	ErrRoleImmutable = New(KindStateConflict, "role can no longer be modified")
	// ErrRoleHasChildren is returned when deleting a role that still has child roles.
	ErrRoleHasChildren = New(KindStateConflict, "role has child roles")
	// ErrConcurrentAcceptance is returned when the role was filled before this acceptance.
	ErrConcurrentAcceptance = NewRetryable(KindStateConflict, "role is no longer accepting applicants")
	// ErrTransactionExhausted is returned when conflicting writes outlast the retry bound.
	ErrTransactionExhausted = NewRetryable(KindInfrastructure, "transaction retries exhausted")
)

// Validation returns a validation error with a field-specific message.
func Validation(msg string) *Error {
	return New(KindValidation, msg)
}

// KindOf reports the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}

// Retryable reports whether a caller may resubmit the logical operation.
func Retryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.retryable
	}
	return false
}
