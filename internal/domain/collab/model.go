package collab

import "time"

// Collection names in the document store.
const (
	CollectionCollaborations     = "collaborations"
	CollectionRoles              = "roles"
	CollectionApplications       = "applications"
	CollectionCompletionRequests = "completion_requests"
)

// Index fields used for List lookups.
const (
	IndexCollaborationID = "collaboration_id"
	IndexRoleID          = "role_id"
	IndexParentRoleID    = "parent_role_id"
)

// Status is the lifecycle state of a collaboration.
type Status string

const (
	StatusOpen              Status = "open"
	StatusInProgress        Status = "in-progress"
	StatusPendingCompletion Status = "pending-completion"
	StatusCompleted         Status = "completed"
	StatusCancelled         Status = "cancelled"
)

// Collaboration is the aggregate root that owns roles and their counters.
type Collaboration struct {
	ID                 string     `json:"id"`
	CreatorID          string     `json:"creator_id"`
	Title              string     `json:"title"`
	Status             Status     `json:"status"`
	RoleCount          int        `json:"role_count"`
	FilledRoleCount    int        `json:"filled_role_count"`
	CompletedRoleCount int        `json:"completed_role_count"`
	RequestedRoleCount int        `json:"requested_role_count"`
	UnneededRoleCount  int        `json:"unneeded_role_count"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	Version            int64      `json:"version"`
}

func (c *Collaboration) DocumentID() string                 { return c.ID }
func (c *Collaboration) DocumentVersion() int64             { return c.Version }
func (c *Collaboration) SetDocumentVersion(v int64)         { c.Version = v }
func (c *Collaboration) DocumentIndexes() map[string]string { return nil }

// IsCreator reports whether actorID created the collaboration.
func (c *Collaboration) IsCreator(actorID string) bool {
	return actorID != "" && c.CreatorID == actorID
}

// Closed reports whether the collaboration accepts no further structural changes.
func (c *Collaboration) Closed() bool {
	return c.Status == StatusCompleted || c.Status == StatusCancelled
}

// RoleStatus is the lifecycle state of a role.
type RoleStatus string

const (
	RoleDraft               RoleStatus = "DRAFT"
	RoleOpen                RoleStatus = "OPEN"
	RoleInReview            RoleStatus = "IN_REVIEW"
	RoleAssigned            RoleStatus = "ASSIGNED"
	RoleInProgress          RoleStatus = "IN_PROGRESS"
	RoleCompletionRequested RoleStatus = "COMPLETION_REQUESTED"
	RoleFilled              RoleStatus = "FILLED"
	RoleCompleted           RoleStatus = "COMPLETED"
	RoleAbandoned           RoleStatus = "ABANDONED"
	RoleUnneeded            RoleStatus = "UNNEEDED"
)

// SkillLevel is a proficiency level.
type SkillLevel string

const (
	LevelBeginner     SkillLevel = "beginner"
	LevelIntermediate SkillLevel = "intermediate"
	LevelAdvanced     SkillLevel = "advanced"
	LevelExpert       SkillLevel = "expert"
)

// Skill pairs a skill name with a proficiency level.
type Skill struct {
	Name  string     `json:"name"`
	Level SkillLevel `json:"level"`
}

// CompletionStatus tracks the completion handshake of a role.
type CompletionStatus string

const (
	CompletionNone     CompletionStatus = "none"
	CompletionPending  CompletionStatus = "pending"
	CompletionApproved CompletionStatus = "approved"
	CompletionRejected CompletionStatus = "rejected"
)

// Role is a fillable unit of work within a collaboration.
type Role struct {
	ID                     string           `json:"id"`
	CollaborationID        string           `json:"collaboration_id"`
	Title                  string           `json:"title"`
	Description            string           `json:"description,omitempty"`
	RequiredSkills         []Skill          `json:"required_skills,omitempty"`
	PreferredSkills        []Skill          `json:"preferred_skills,omitempty"`
	MaxParticipants        int              `json:"max_participants"`
	ParentRoleID           string           `json:"parent_role_id,omitempty"`
	ChildRoleIDs           []string         `json:"child_role_ids,omitempty"`
	Status                 RoleStatus       `json:"status"`
	ParticipantID          string           `json:"participant_id,omitempty"`
	ParticipantIDs         []string         `json:"participant_ids,omitempty"`
	PreviousParticipantID  string           `json:"previous_participant_id,omitempty"`
	ApplicationCount       int              `json:"application_count"`
	CompletionStatus       CompletionStatus `json:"completion_status"`
	StatusBeforeCompletion RoleStatus       `json:"status_before_completion,omitempty"`
	AbandonmentReason      string           `json:"abandonment_reason,omitempty"`
	CreatedAt              time.Time        `json:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at"`
	FilledAt               *time.Time       `json:"filled_at,omitempty"`
	CompletedAt            *time.Time       `json:"completed_at,omitempty"`
	AbandonedAt            *time.Time       `json:"abandoned_at,omitempty"`
	Version                int64            `json:"version"`
}

func (r *Role) DocumentID() string         { return r.ID }
func (r *Role) DocumentVersion() int64     { return r.Version }
func (r *Role) SetDocumentVersion(v int64) { r.Version = v }
func (r *Role) DocumentIndexes() map[string]string {
	return map[string]string{
		IndexCollaborationID: r.CollaborationID,
		IndexParentRoleID:    r.ParentRoleID,
	}
}

// CurrentParticipants is the number of occupied seats.
func (r *Role) CurrentParticipants() int {
	return len(r.ParticipantIDs)
}

// HasFreeSeat reports whether another participant can be accepted.
func (r *Role) HasFreeSeat() bool {
	return r.CurrentParticipants() < r.MaxParticipants
}

// HasParticipant reports whether actorID occupies a seat.
func (r *Role) HasParticipant(actorID string) bool {
	if actorID == "" {
		return false
	}
	for _, id := range r.ParticipantIDs {
		if id == actorID {
			return true
		}
	}
	return false
}

// AddParticipant occupies a seat and makes the first occupant primary.
func (r *Role) AddParticipant(actorID string) {
	r.ParticipantIDs = append(r.ParticipantIDs, actorID)
	if r.ParticipantID == "" {
		r.ParticipantID = actorID
	}
}

// RemoveParticipant releases actorID's seat, promoting the next occupant to primary.
func (r *Role) RemoveParticipant(actorID string) {
	kept := r.ParticipantIDs[:0]
	for _, id := range r.ParticipantIDs {
		if id != actorID {
			kept = append(kept, id)
		}
	}
	r.ParticipantIDs = kept
	if r.ParticipantID == actorID {
		r.ParticipantID = ""
		if len(kept) > 0 {
			r.ParticipantID = kept[0]
		}
	}
	if len(r.ParticipantIDs) == 0 {
		r.ParticipantIDs = nil
	}
}

// ApplicationStatus is the lifecycle state of an application.
type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "pending"
	ApplicationAccepted  ApplicationStatus = "accepted"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationWithdrawn ApplicationStatus = "withdrawn"
)

// Reasons recorded on decided applications.
const (
	DecisionReviewed      = "reviewed"
	DecisionAutoRejected  = "auto_rejected"
	DecisionRoleRetired   = "role_retired"
	DecisionRoleAbandoned = "role_abandoned"
	DecisionRoleClosed    = "role_closed"
)

// Application is a request by an applicant to fill a role.
type Application struct {
	ID              string            `json:"id"`
	CollaborationID string            `json:"collaboration_id"`
	RoleID          string            `json:"role_id"`
	ApplicantID     string            `json:"applicant_id"`
	Message         string            `json:"message,omitempty"`
	EvidenceRefs    []string          `json:"evidence_refs,omitempty"`
	Status          ApplicationStatus `json:"status"`
	DecisionReason  string            `json:"decision_reason,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	ReviewedAt      *time.Time        `json:"reviewed_at,omitempty"`
	Version         int64             `json:"version"`
}

func (a *Application) DocumentID() string         { return a.ID }
func (a *Application) DocumentVersion() int64     { return a.Version }
func (a *Application) SetDocumentVersion(v int64) { a.Version = v }
func (a *Application) DocumentIndexes() map[string]string {
	return map[string]string{IndexRoleID: a.RoleID}
}

// Live reports whether the application still holds the applicant's slot.
func (a *Application) Live() bool {
	return a.Status == ApplicationPending || a.Status == ApplicationAccepted
}

// RequestStatus is the state of a completion request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// CompletionRequest is a participant's claim that their role is done.
type CompletionRequest struct {
	ID              string        `json:"id"`
	CollaborationID string        `json:"collaboration_id"`
	RoleID          string        `json:"role_id"`
	RequesterID     string        `json:"requester_id"`
	Notes           string        `json:"notes,omitempty"`
	EvidenceRefs    []string      `json:"evidence_refs,omitempty"`
	Status          RequestStatus `json:"status"`
	ReviewerID      string        `json:"reviewer_id,omitempty"`
	ReviewNote      string        `json:"review_note,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	ReviewedAt      *time.Time    `json:"reviewed_at,omitempty"`
	Version         int64         `json:"version"`
}

func (r *CompletionRequest) DocumentID() string         { return r.ID }
func (r *CompletionRequest) DocumentVersion() int64     { return r.Version }
func (r *CompletionRequest) SetDocumentVersion(v int64) { r.Version = v }
func (r *CompletionRequest) DocumentIndexes() map[string]string {
	return map[string]string{IndexRoleID: r.RoleID}
}
