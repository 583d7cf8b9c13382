package mcp

import (
	"github.com/rpggio/rolecall/internal/domain/application"
	"github.com/rpggio/rolecall/internal/domain/collab"
	"github.com/rpggio/rolecall/internal/domain/event"
)

type IDParams struct {
	ID string `json:"id"`
}

type CreateCollaborationParams struct {
	Title string `json:"title"`
}

type CreateRoleParams struct {
	CollaborationID string         `json:"collaboration_id,omitempty"`
	ParentRoleID    string         `json:"parent_role_id,omitempty"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	RequiredSkills  []collab.Skill `json:"required_skills,omitempty"`
	PreferredSkills []collab.Skill `json:"preferred_skills,omitempty"`
	MaxParticipants int            `json:"max_participants,omitempty"`
	Publish         bool           `json:"publish,omitempty"`
}

type UpdateRoleParams struct {
	ID              string          `json:"id"`
	Title           *string         `json:"title,omitempty"`
	Description     *string         `json:"description,omitempty"`
	RequiredSkills  *[]collab.Skill `json:"required_skills,omitempty"`
	PreferredSkills *[]collab.Skill `json:"preferred_skills,omitempty"`
	MaxParticipants *int            `json:"max_participants,omitempty"`
}

type RetireRoleParams struct {
	ID     string `json:"id"`
	Reason string `json:"reason,omitempty"`
}

type ListRolesParams struct {
	CollaborationID string              `json:"collaboration_id"`
	Statuses        []collab.RoleStatus `json:"statuses,omitempty"`
	ParentRoleID    *string             `json:"parent_role_id,omitempty"`
}

type SubmitApplicationParams struct {
	RoleID       string   `json:"role_id"`
	Message      string   `json:"message,omitempty"`
	EvidenceRefs []string `json:"evidence_refs,omitempty"`
}

type ReviewApplicationParams struct {
	ID       string               `json:"id"`
	Decision application.Decision `json:"decision"`
}

type ListApplicationsParams struct {
	RoleID   string                     `json:"role_id"`
	Statuses []collab.ApplicationStatus `json:"statuses,omitempty"`
}

type RequestCompletionParams struct {
	RoleID       string   `json:"role_id"`
	Notes        string   `json:"notes,omitempty"`
	EvidenceRefs []string `json:"evidence_refs,omitempty"`
}

type ConfirmCompletionParams struct {
	ID      string `json:"id"`
	Approve bool   `json:"approve"`
	Note    string `json:"note,omitempty"`
}

type ListCompletionRequestsParams struct {
	RoleID string `json:"role_id"`
}

type AbandonRoleParams struct {
	RoleID    string `json:"role_id"`
	Reason    string `json:"reason,omitempty"`
	Permanent bool   `json:"permanent,omitempty"`
}

type ListEventsParams struct {
	CollaborationID string      `json:"collaboration_id"`
	RoleID          *string     `json:"role_id,omitempty"`
	Type            *event.Type `json:"type,omitempty"`
	Limit           int         `json:"limit,omitempty"`
	Offset          int         `json:"offset,omitempty"`
}

// DeleteRoleResponse confirms a deleted role.
type DeleteRoleResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}
