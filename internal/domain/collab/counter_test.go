package collab

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestApplyTransition_Deltas(t *testing.T) {
	cases := []struct {
		name              string
		from, to          RoleStatus
		filled, completed int
	}{
		{"open to filled", RoleOpen, RoleFilled, 2, 1},
		{"in review to assigned", RoleInReview, RoleAssigned, 2, 1},
		{"assigned gains seat", RoleAssigned, RoleFilled, 1, 1},
		{"filled abandoned", RoleFilled, RoleOpen, 0, 1},
		{"request approved", RoleCompletionRequested, RoleCompleted, 1, 2},
		{"open retired", RoleOpen, RoleUnneeded, 1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &Collaboration{RoleCount: 3, FilledRoleCount: 1, CompletedRoleCount: 1, RequestedRoleCount: 1}
			require.NoError(t, ApplyTransition(c, tc.from, tc.to))
			require.Equal(t, tc.filled, c.FilledRoleCount)
			require.Equal(t, tc.completed, c.CompletedRoleCount)
			require.Equal(t, 3, c.RoleCount)
		})
	}
}

func TestApplyTransition_OutOfBoundsLeavesCountersUntouched(t *testing.T) {
	c := &Collaboration{RoleCount: 1}
	err := ApplyTransition(c, RoleFilled, RoleOpen)
	require.ErrorIs(t, err, ErrCounterInvariant)
	require.Equal(t, 0, c.FilledRoleCount)

	c = &Collaboration{RoleCount: 1, FilledRoleCount: 1}
	require.NoError(t, ApplyTransition(c, RoleDraft, RoleOpen))
	require.Equal(t, 1, c.FilledRoleCount)
}

func TestApplyTransition_TracksRequestedAndUnneeded(t *testing.T) {
	c := &Collaboration{RoleCount: 2, FilledRoleCount: 1}
	require.NoError(t, ApplyTransition(c, RoleInProgress, RoleCompletionRequested))
	require.Equal(t, 1, c.RequestedRoleCount)
	require.Equal(t, 1, c.FilledRoleCount)

	require.NoError(t, ApplyTransition(c, RoleCompletionRequested, RoleCompleted))
	require.Equal(t, 0, c.RequestedRoleCount)
	require.Equal(t, 1, c.CompletedRoleCount)

	require.NoError(t, ApplyTransition(c, RoleOpen, RoleUnneeded))
	require.Equal(t, 1, c.UnneededRoleCount)
	require.Equal(t, CountersFor([]RoleStatus{RoleCompleted, RoleUnneeded}), CountersOf(c))
}

func TestAddRemoveRole(t *testing.T) {
	c := &Collaboration{}
	require.NoError(t, AddRole(c, RoleDraft))
	require.NoError(t, AddRole(c, RoleOpen))
	require.Equal(t, 2, c.RoleCount)

	require.NoError(t, RemoveRole(c, RoleDraft))
	require.Equal(t, 1, c.RoleCount)

	require.ErrorIs(t, RemoveRole(c, RoleCompleted), ErrCounterInvariant)
	require.Equal(t, 1, c.RoleCount)
}

func TestReconcile(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		start    Status
		filled   int
		statuses []RoleStatus
		want     Status
		done     bool
	}{
		{"no roles", StatusOpen, 0, nil, StatusOpen, false},
		{"open roles", StatusOpen, 0, []RoleStatus{RoleOpen, RoleDraft}, StatusOpen, false},
		{"one assigned", StatusOpen, 1, []RoleStatus{RoleAssigned, RoleOpen}, StatusInProgress, false},
		{"all requested or done", StatusInProgress, 2, []RoleStatus{RoleCompletionRequested, RoleCompleted}, StatusPendingCompletion, false},
		{"all done", StatusPendingCompletion, 2, []RoleStatus{RoleCompleted, RoleCompleted}, StatusCompleted, true},
		{"unneeded ignored", StatusInProgress, 1, []RoleStatus{RoleCompleted, RoleUnneeded}, StatusCompleted, true},
		{"only unneeded", StatusOpen, 0, []RoleStatus{RoleUnneeded}, StatusOpen, false},
		{"cancelled is sticky", StatusCancelled, 2, []RoleStatus{RoleCompleted, RoleCompleted}, StatusCancelled, false},
		{"reopened after completion", StatusCompleted, 1, []RoleStatus{RoleCompleted, RoleOpen}, StatusInProgress, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &Collaboration{Status: tc.start}
			CountersFor(tc.statuses).apply(c)
			require.Equal(t, tc.filled, c.FilledRoleCount)
			if tc.start == StatusCompleted {
				c.CompletedAt = &now
			}
			done := Reconcile(c, now)
			require.Equal(t, tc.want, c.Status)
			require.Equal(t, tc.done, done)
			if tc.want == StatusCompleted {
				require.NotNil(t, c.CompletedAt)
			} else if tc.start != StatusCancelled {
				require.Nil(t, c.CompletedAt)
			}
		})
	}
}

func TestCountersFor(t *testing.T) {
	got := CountersFor([]RoleStatus{
		RoleDraft, RoleAssigned, RoleFilled, RoleCompleted, RoleAbandoned, RoleUnneeded, RoleCompletionRequested,
	})
	require.Equal(t, Counters{Roles: 7, Filled: 4, Completed: 1, Requested: 1, Unneeded: 1}, got)
}
