package collab

import "github.com/rpggio/rolecall/internal/apperr"

var (
	// ErrCollaborationNotFound indicates the collaboration doesn't exist.
	ErrCollaborationNotFound = apperr.New(apperr.KindNotFound, "collaboration not found")
	// ErrRoleNotFound indicates the role doesn't exist.
	ErrRoleNotFound = apperr.New(apperr.KindNotFound, "role not found")
	// ErrApplicationNotFound indicates the application doesn't exist.
	ErrApplicationNotFound = apperr.New(apperr.KindNotFound, "application not found")
	// ErrCompletionRequestNotFound indicates the completion request doesn't exist.
	ErrCompletionRequestNotFound = apperr.New(apperr.KindNotFound, "completion request not found")

	// ErrNotCreator indicates the actor is not the collaboration creator.
	ErrNotCreator = apperr.New(apperr.KindAuthorization, "only the collaboration creator may do this")
	// ErrNotParticipant indicates the actor does not occupy the role.
	ErrNotParticipant = apperr.New(apperr.KindAuthorization, "actor is not a participant of this role")
	// ErrNotApplicant indicates the actor did not submit the application.
	ErrNotApplicant = apperr.New(apperr.KindAuthorization, "only the applicant may do this")
	// ErrCreatorCannotApply indicates the creator tried to apply to their own collaboration.
	ErrCreatorCannotApply = apperr.New(apperr.KindAuthorization, "the collaboration creator cannot apply to its roles")

	// ErrCollaborationClosed indicates the collaboration is completed or cancelled.
	ErrCollaborationClosed = apperr.New(apperr.KindStateConflict, "collaboration is closed")
	// ErrInvalidRoleTransition indicates the role cannot move to the requested state.
	ErrInvalidRoleTransition = apperr.New(apperr.KindStateConflict, "invalid role state transition")
	// ErrRoleImmutable indicates the role is past its editable states.
	ErrRoleImmutable = apperr.ErrRoleImmutable
	// ErrRoleHasChildren indicates the role still has child roles.
	ErrRoleHasChildren = apperr.ErrRoleHasChildren
	// ErrRoleNotAccepting indicates the role does not take applications in its current state.
	ErrRoleNotAccepting = apperr.New(apperr.KindStateConflict, "role is not accepting applications")
	// ErrRoleFull indicates every seat of the role is taken.
	ErrRoleFull = apperr.New(apperr.KindStateConflict, "role has no free seats")
	// ErrDuplicateApplication indicates the applicant already holds a live application for the role.
	ErrDuplicateApplication = apperr.New(apperr.KindStateConflict, "applicant already has a pending or accepted application for this role")
	// ErrAlreadyParticipant indicates the applicant already occupies the role.
	ErrAlreadyParticipant = apperr.New(apperr.KindStateConflict, "applicant already occupies this role")
	// ErrApplicationNotPending indicates the application was already decided.
	ErrApplicationNotPending = apperr.New(apperr.KindStateConflict, "application is not pending")
	// ErrRequestNotPending indicates the completion request was already decided.
	ErrRequestNotPending = apperr.New(apperr.KindStateConflict, "completion request is not pending")
	// ErrCompletionPending indicates a completion request is already awaiting review.
	ErrCompletionPending = apperr.New(apperr.KindStateConflict, "a completion request is already pending")

	// ErrCounterInvariant indicates a counter update would leave its bounds.
	ErrCounterInvariant = apperr.New(apperr.KindInfrastructure, "collaboration counters out of bounds")
)
