package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/rolecall/internal/apperr"
)

var (
	// ErrUnknownMethod indicates a tool name the handler does not serve.
	ErrUnknownMethod = errors.New("unknown method")
	// ErrInvalidParams indicates arguments that could not be decoded.
	ErrInvalidParams = errors.New("invalid params")
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
	Retryable    bool   `json:"retryable,omitempty"`
	err          error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.err
}

func (e *APIError) CodeValue() string {
	return e.Code
}

func (e *APIError) MessageValue() string {
	return e.Message
}

func (e *APIError) DetailsValue() any {
	return e.Details
}

func (e *APIError) RecoveryHintValue() string {
	return e.RecoveryHint
}

func (e *APIError) RetryableValue() bool {
	return e.Retryable
}

// MapError maps domain errors to MCP error codes. Specific errors win over
// their category.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	out := &APIError{Message: err.Error(), Retryable: apperr.Retryable(err), err: err}
	switch {
	case errors.Is(err, ErrUnknownMethod):
		out.Code, out.RecoveryHint = "METHOD_NOT_FOUND", "List tools for the supported names"
	case errors.Is(err, ErrInvalidParams):
		out.Code, out.RecoveryHint = "INVALID_PARAMS", "Check argument names and types against the tool schema"
	case errors.Is(err, apperr.ErrConcurrentAcceptance):
		out.Code, out.RecoveryHint = "CONCURRENT_ACCEPTANCE", "Re-read the role; another acceptance took the seat"
	case errors.Is(err, apperr.ErrTransactionExhausted):
		out.Code, out.RecoveryHint = "TRANSACTION_EXHAUSTED", "Retry the call"
	case errors.Is(err, apperr.ErrRoleImmutable):
		out.Code, out.RecoveryHint = "ROLE_IMMUTABLE", "Only DRAFT or OPEN roles can be edited"
	case errors.Is(err, apperr.ErrRoleHasChildren):
		out.Code, out.RecoveryHint = "ROLE_HAS_CHILDREN", "Delete child roles first"
	case errors.Is(err, apperr.ErrValidation):
		out.Code, out.RecoveryHint = "VALIDATION_ERROR", "Fix the input and retry"
	case errors.Is(err, apperr.ErrUnauthorized):
		out.Code, out.RecoveryHint = "UNAUTHORIZED", "Call as the collaboration creator or role participant"
	case errors.Is(err, apperr.ErrNotFound):
		out.Code, out.RecoveryHint = "NOT_FOUND", "Check ID spelling"
	case errors.Is(err, apperr.ErrStateConflict):
		out.Code, out.RecoveryHint = "STATE_CONFLICT", "Re-read the entity and check valid transitions"
	case errors.Is(err, apperr.ErrInfrastructure):
		out.Code = "INTERNAL"
	default:
		return nil
	}
	return out
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
