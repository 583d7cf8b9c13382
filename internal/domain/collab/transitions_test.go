package collab

import (
	"testing"

	"github.com/rpggio/rolecall/internal/apperr"
	"github.com/stretchr/testify/require"
)

var allRoleStatuses = []RoleStatus{
	RoleDraft, RoleOpen, RoleInReview, RoleAssigned, RoleInProgress,
	RoleCompletionRequested, RoleFilled, RoleCompleted, RoleAbandoned, RoleUnneeded,
}

func TestCanTransition_Matrix(t *testing.T) {
	allowed := map[RoleStatus]map[RoleStatus]bool{}
	for from, targets := range roleTransitions {
		allowed[from] = map[RoleStatus]bool{from: true}
		for _, to := range targets {
			allowed[from][to] = true
		}
	}

	for _, from := range allRoleStatuses {
		for _, to := range allRoleStatuses {
			require.Equalf(t, allowed[from][to], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCanTransition_KeyMoves(t *testing.T) {
	cases := []struct {
		from, to RoleStatus
		ok       bool
	}{
		{RoleOpen, RoleFilled, true},
		{RoleInReview, RoleAssigned, true},
		{RoleFilled, RoleOpen, true},
		{RoleCompletionRequested, RoleCompleted, true},
		{RoleCompletionRequested, RoleInProgress, true},
		{RoleAbandoned, RoleOpen, true},
		{RoleCompleted, RoleOpen, false},
		{RoleUnneeded, RoleOpen, false},
		{RoleDraft, RoleAssigned, false},
		{RoleInProgress, RoleAssigned, false},
		{RoleOpen, RoleCompleted, false},
		{RoleStatus("BOGUS"), RoleOpen, false},
		{RoleOpen, RoleStatus("BOGUS"), false},
	}
	for _, tc := range cases {
		require.Equalf(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestValidateRoleTransition_IsStateConflict(t *testing.T) {
	err := ValidateRoleTransition(RoleCompleted, RoleOpen)
	require.ErrorIs(t, err, ErrInvalidRoleTransition)
	require.ErrorIs(t, err, apperr.ErrStateConflict)
	require.NoError(t, ValidateRoleTransition(RoleAssigned, RoleAssigned))
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, to := range allRoleStatuses {
		if to != RoleCompleted {
			require.False(t, CanTransition(RoleCompleted, to))
		}
		if to != RoleUnneeded {
			require.False(t, CanTransition(RoleUnneeded, to))
		}
	}
}

func TestCounted(t *testing.T) {
	counted := map[RoleStatus]bool{
		RoleAssigned: true, RoleInProgress: true, RoleCompletionRequested: true,
		RoleFilled: true, RoleCompleted: true,
	}
	for _, s := range allRoleStatuses {
		require.Equalf(t, counted[s], Counted(s), "%s", s)
	}
}

func TestAcceptsApplications(t *testing.T) {
	single := func(s RoleStatus, occupants ...string) *Role {
		return &Role{Status: s, MaxParticipants: 1, ParticipantIDs: occupants}
	}
	multi := func(s RoleStatus, occupants ...string) *Role {
		return &Role{Status: s, MaxParticipants: 3, ParticipantIDs: occupants}
	}

	require.True(t, AcceptsApplications(single(RoleOpen), false))
	require.True(t, AcceptsApplications(single(RoleInReview), false))
	require.False(t, AcceptsApplications(single(RoleFilled, "x"), true))
	require.False(t, AcceptsApplications(single(RoleDraft), true))
	require.False(t, AcceptsApplications(multi(RoleAssigned, "x"), false))
	require.True(t, AcceptsApplications(multi(RoleAssigned, "x"), true))
	require.False(t, AcceptsApplications(multi(RoleAssigned, "x", "y", "z"), true))
	require.False(t, AcceptsApplications(multi(RoleInProgress, "x"), true))
}

func TestDecideApplication(t *testing.T) {
	app := &Application{Status: ApplicationPending}
	require.NoError(t, DecideApplication(app, ApplicationAccepted))
	require.Equal(t, ApplicationAccepted, app.Status)

	for _, to := range []ApplicationStatus{ApplicationPending, ApplicationRejected, ApplicationWithdrawn} {
		require.ErrorIs(t, DecideApplication(app, to), ErrApplicationNotPending)
	}
	require.ErrorIs(t, DecideApplication(&Application{Status: ApplicationPending}, ApplicationPending), ErrApplicationNotPending)
}

func TestDecideRequest(t *testing.T) {
	req := &CompletionRequest{Status: RequestPending}
	require.ErrorIs(t, DecideRequest(req, RequestPending), ErrRequestNotPending)
	require.NoError(t, DecideRequest(req, RequestRejected))
	require.ErrorIs(t, DecideRequest(req, RequestApproved), ErrRequestNotPending)
}

func TestRole_Participants(t *testing.T) {
	r := &Role{MaxParticipants: 2}
	r.AddParticipant("a")
	r.AddParticipant("b")
	require.Equal(t, "a", r.ParticipantID)
	require.False(t, r.HasFreeSeat())
	require.True(t, r.HasParticipant("b"))
	require.False(t, r.HasParticipant(""))

	r.RemoveParticipant("a")
	require.Equal(t, "b", r.ParticipantID)
	require.Equal(t, []string{"b"}, r.ParticipantIDs)

	r.RemoveParticipant("b")
	require.Empty(t, r.ParticipantID)
	require.Nil(t, r.ParticipantIDs)
}
