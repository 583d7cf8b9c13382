package collab

// roleTransitions lists the target states reachable from each role state.
// Staying in the same state is always allowed (e.g. ASSIGNED gaining a seat).
var roleTransitions = map[RoleStatus][]RoleStatus{
	RoleDraft:               {RoleOpen, RoleUnneeded},
	RoleOpen:                {RoleInReview, RoleAssigned, RoleFilled, RoleUnneeded},
	RoleInReview:            {RoleAssigned, RoleFilled, RoleUnneeded},
	RoleAssigned:            {RoleFilled, RoleInProgress, RoleCompletionRequested, RoleOpen, RoleAbandoned},
	RoleInProgress:          {RoleCompletionRequested, RoleOpen, RoleAbandoned},
	RoleFilled:              {RoleAssigned, RoleInProgress, RoleCompletionRequested, RoleOpen, RoleAbandoned},
	RoleCompletionRequested: {RoleCompleted, RoleAssigned, RoleInProgress, RoleFilled, RoleOpen, RoleAbandoned},
	RoleCompleted:           {},
	RoleAbandoned:           {RoleOpen, RoleUnneeded},
	RoleUnneeded:            {},
}

// ValidRoleStatus reports whether s is a known role state.
func ValidRoleStatus(s RoleStatus) bool {
	_, ok := roleTransitions[s]
	return ok
}

// CanTransition reports whether a role may move from one state to another.
func CanTransition(from, to RoleStatus) bool {
	targets, ok := roleTransitions[from]
	if !ok || !ValidRoleStatus(to) {
		return false
	}
	if from == to {
		return true
	}
	for _, t := range targets {
		if t == to {
			return true
		}
	}
	return false
}

// ValidateRoleTransition returns ErrInvalidRoleTransition when the move is not in the table.
func ValidateRoleTransition(from, to RoleStatus) error {
	if !CanTransition(from, to) {
		return ErrInvalidRoleTransition
	}
	return nil
}

// Counted reports whether a role in state s occupies a filled slot.
func Counted(s RoleStatus) bool {
	switch s {
	case RoleAssigned, RoleInProgress, RoleCompletionRequested, RoleFilled, RoleCompleted:
		return true
	default:
		return false
	}
}

// Editable reports whether a role's definition may still change.
func Editable(s RoleStatus) bool {
	return s == RoleDraft || s == RoleOpen
}

// AcceptsApplications reports whether new applications may be submitted or
// accepted for a role in state s. keepOpen extends this to ASSIGNED roles that
// still have a free seat.
func AcceptsApplications(r *Role, keepOpen bool) bool {
	switch r.Status {
	case RoleOpen, RoleInReview:
		return r.HasFreeSeat()
	case RoleAssigned:
		return keepOpen && r.HasFreeSeat()
	default:
		return false
	}
}

// canApplicationTransition is the application state machine: only pending moves.
func canApplicationTransition(from, to ApplicationStatus) bool {
	if from != ApplicationPending {
		return false
	}
	switch to {
	case ApplicationAccepted, ApplicationRejected, ApplicationWithdrawn:
		return true
	default:
		return false
	}
}

// DecideApplication moves a pending application to a terminal state.
func DecideApplication(app *Application, to ApplicationStatus) error {
	if !canApplicationTransition(app.Status, to) {
		return ErrApplicationNotPending
	}
	app.Status = to
	return nil
}

// DecideRequest moves a pending completion request to a terminal state.
func DecideRequest(req *CompletionRequest, to RequestStatus) error {
	if req.Status != RequestPending || (to != RequestApproved && to != RequestRejected) {
		return ErrRequestNotPending
	}
	req.Status = to
	return nil
}
