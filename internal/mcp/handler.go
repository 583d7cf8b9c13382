package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rpggio/rolecall/internal/domain/abandonment"
	"github.com/rpggio/rolecall/internal/domain/application"
	"github.com/rpggio/rolecall/internal/domain/collab"
	"github.com/rpggio/rolecall/internal/domain/completion"
	"github.com/rpggio/rolecall/internal/domain/event"
	"github.com/rpggio/rolecall/internal/domain/role"
)

// CollaborationService defines collaboration operations needed by MCP.
type CollaborationService interface {
	Create(ctx context.Context, req collab.CreateRequest) (*collab.Collaboration, error)
	Get(ctx context.Context, id string) (*collab.Collaboration, error)
	Cancel(ctx context.Context, id, actorID string) (*collab.Collaboration, error)
	Audit(ctx context.Context, id string) (*collab.Audit, error)
}

// RoleService defines role registry operations needed by MCP.
type RoleService interface {
	CreateRole(ctx context.Context, collaborationID, actorID string, def role.Definition) (*collab.Role, error)
	CreateChildRole(ctx context.Context, parentRoleID, actorID string, def role.Definition) (*collab.Role, error)
	UpdateRole(ctx context.Context, roleID, actorID string, patch role.Patch) (*collab.Role, error)
	DeleteRole(ctx context.Context, roleID, actorID string) error
	PublishRole(ctx context.Context, roleID, actorID string) (*collab.Role, error)
	ReopenRole(ctx context.Context, roleID, actorID string) (*collab.Role, error)
	RetireRole(ctx context.Context, roleID, reason, actorID string) (*collab.Role, error)
	StartWork(ctx context.Context, roleID, actorID string) (*collab.Role, error)
	GetRole(ctx context.Context, roleID string) (*collab.Role, error)
	ListRoles(ctx context.Context, collaborationID string, opts role.ListOptions) ([]*collab.Role, error)
}

// ApplicationService defines application workflow operations needed by MCP.
type ApplicationService interface {
	Submit(ctx context.Context, req application.SubmitRequest) (*collab.Application, error)
	Review(ctx context.Context, applicationID string, decision application.Decision, reviewerID string) (*application.ReviewResult, error)
	Withdraw(ctx context.Context, applicationID, applicantID string) (*collab.Application, error)
	Get(ctx context.Context, applicationID string) (*collab.Application, error)
	ListByRole(ctx context.Context, roleID string, statuses ...collab.ApplicationStatus) ([]*collab.Application, error)
}

// CompletionService defines completion workflow operations needed by MCP.
type CompletionService interface {
	RequestCompletion(ctx context.Context, in completion.Request) (*completion.Result, error)
	ConfirmCompletion(ctx context.Context, requestID string, approve bool, reviewerID, note string) (*completion.Result, error)
	Get(ctx context.Context, requestID string) (*collab.CompletionRequest, error)
	ListByRole(ctx context.Context, roleID string) ([]*collab.CompletionRequest, error)
}

// AbandonmentService defines role abandonment needed by MCP.
type AbandonmentService interface {
	AbandonRole(ctx context.Context, in abandonment.Request) (*abandonment.Result, error)
}

// EventService defines event log queries needed by MCP.
type EventService interface {
	List(ctx context.Context, opts event.ListOptions) ([]event.Event, error)
}

// CallObserver counts tool calls.
type CallObserver interface {
	ObserveToolCall(method, result string)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Collaborations CollaborationService
	Roles          RoleService
	Applications   ApplicationService
	Completions    CompletionService
	Abandonment    AbandonmentService
	Events         EventService
}

// Handler dispatches tool calls to domain services.
type Handler struct {
	services Services
	observer CallObserver
}

// NewHandler creates a new MCP handler. observer may be nil.
func NewHandler(services Services, observer CallObserver) *Handler {
	return &Handler{services: services, observer: observer}
}

// Handle runs method for actorID. Domain errors come back as *APIError.
func (h *Handler) Handle(ctx context.Context, actorID, method string, params json.RawMessage) (any, error) {
	result, err := h.dispatch(ctx, actorID, method, params)
	err = mapError(err)
	if h.observer != nil {
		outcome := "ok"
		if apiErr := MapError(err); apiErr != nil {
			outcome = apiErr.Code
		} else if err != nil {
			outcome = "error"
		}
		h.observer.ObserveToolCall(method, outcome)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (h *Handler) dispatch(ctx context.Context, actorID, method string, params json.RawMessage) (any, error) {
	s := h.services
	switch method {
	case "create_collaboration":
		var req CreateCollaborationParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return s.Collaborations.Create(ctx, collab.CreateRequest{CreatorID: actorID, Title: req.Title})
	case "get_collaboration":
		var req IDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return s.Collaborations.Get(ctx, req.ID)
	case "cancel_collaboration":
		var req IDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return s.Collaborations.Cancel(ctx, req.ID, actorID)
	case "audit_collaboration":
		var req IDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return s.Collaborations.Audit(ctx, req.ID)

	case "create_role":
		var req CreateRoleParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		def := role.Definition{
			Title:           req.Title,
			Description:     req.Description,
			RequiredSkills:  req.RequiredSkills,
			PreferredSkills: req.PreferredSkills,
			MaxParticipants: req.MaxParticipants,
			Publish:         req.Publish,
		}
		if req.ParentRoleID != "" {
			return s.Roles.CreateChildRole(ctx, req.ParentRoleID, actorID, def)
		}
		return s.Roles.CreateRole(ctx, req.CollaborationID, actorID, def)
	case "update_role":
		var req UpdateRoleParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return s.Roles.UpdateRole(ctx, req.ID, actorID, role.Patch{
			Title:           req.Title,
			Description:     req.Description,
			RequiredSkills:  req.RequiredSkills,
			PreferredSkills: req.PreferredSkills,
			MaxParticipants: req.MaxParticipants,
		})
	case "delete_role":
		var req IDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := s.Roles.DeleteRole(ctx, req.ID, actorID); err != nil {
			return nil, err
		}
		return DeleteRoleResponse{ID: req.ID, Deleted: true}, nil
	case "publish_role":
		var req IDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return s.Roles.PublishRole(ctx, req.ID, actorID)
	case "reopen_role":
		var req IDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return s.Roles.ReopenRole(ctx, req.ID, actorID)
	case "retire_role":
		var req RetireRoleParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return s.Roles.RetireRole(ctx, req.ID, req.Reason, actorID)
	case "start_work":
		var req IDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return s.Roles.StartWork(ctx, req.ID, actorID)
	case "get_role":
		var req IDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return s.Roles.GetRole(ctx, req.ID)
	case "list_roles":
		var req ListRolesParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return s.Roles.ListRoles(ctx, req.CollaborationID, role.ListOptions{
			Statuses:     req.Statuses,
			ParentRoleID: req.ParentRoleID,
		})

	case "submit_application":
		var req SubmitApplicationParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return s.Applications.Submit(ctx, application.SubmitRequest{
			RoleID:       req.RoleID,
			ApplicantID:  actorID,
			Message:      req.Message,
			EvidenceRefs: req.EvidenceRefs,
		})
	case "review_application":
		var req ReviewApplicationParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return s.Applications.Review(ctx, req.ID, req.Decision, actorID)
	case "withdraw_application":
		var req IDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return s.Applications.Withdraw(ctx, req.ID, actorID)
	case "get_application":
		var req IDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return s.Applications.Get(ctx, req.ID)
	case "list_applications":
		var req ListApplicationsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return s.Applications.ListByRole(ctx, req.RoleID, req.Statuses...)

	case "request_completion":
		var req RequestCompletionParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return s.Completions.RequestCompletion(ctx, completion.Request{
			RoleID:       req.RoleID,
			RequesterID:  actorID,
			Notes:        req.Notes,
			EvidenceRefs: req.EvidenceRefs,
		})
	case "confirm_completion":
		var req ConfirmCompletionParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return s.Completions.ConfirmCompletion(ctx, req.ID, req.Approve, actorID, req.Note)
	case "get_completion_request":
		var req IDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return s.Completions.Get(ctx, req.ID)
	case "list_completion_requests":
		var req ListCompletionRequestsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return s.Completions.ListByRole(ctx, req.RoleID)

	case "abandon_role":
		var req AbandonRoleParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return s.Abandonment.AbandonRole(ctx, abandonment.Request{
			RoleID:    req.RoleID,
			ActorID:   actorID,
			Reason:    req.Reason,
			Permanent: req.Permanent,
		})

	case "list_events":
		var req ListEventsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if s.Events == nil {
			return []event.Event{}, nil
		}
		events, err := s.Events.List(ctx, event.ListOptions{
			CollaborationID: req.CollaborationID,
			RoleID:          req.RoleID,
			Type:            req.Type,
			Limit:           req.Limit,
			Offset:          req.Offset,
		})
		if err != nil {
			return nil, err
		}
		if events == nil {
			events = []event.Event{}
		}
		return events, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}
