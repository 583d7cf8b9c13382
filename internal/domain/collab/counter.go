package collab

import "time"

// Counters are the per-state role tallies a collaboration carries.
type Counters struct {
	Roles     int `json:"roles"`
	Filled    int `json:"filled"`
	Completed int `json:"completed"`
	Requested int `json:"requested"`
	Unneeded  int `json:"unneeded"`
}

// CountersOf returns the tallies stored on c.
func CountersOf(c *Collaboration) Counters {
	return Counters{
		Roles:     c.RoleCount,
		Filled:    c.FilledRoleCount,
		Completed: c.CompletedRoleCount,
		Requested: c.RequestedRoleCount,
		Unneeded:  c.UnneededRoleCount,
	}
}

func (n Counters) apply(c *Collaboration) {
	c.RoleCount = n.Roles
	c.FilledRoleCount = n.Filled
	c.CompletedRoleCount = n.Completed
	c.RequestedRoleCount = n.Requested
	c.UnneededRoleCount = n.Unneeded
}

// add folds one role in state s into the tallies, delta being +1 or -1.
func (n *Counters) add(s RoleStatus, delta int) {
	if Counted(s) {
		n.Filled += delta
	}
	switch s {
	case RoleCompleted:
		n.Completed += delta
	case RoleCompletionRequested:
		n.Requested += delta
	case RoleUnneeded:
		n.Unneeded += delta
	}
}

func (n Counters) valid() bool {
	for _, v := range []int{n.Filled, n.Completed, n.Requested, n.Unneeded} {
		if v < 0 || v > n.Roles {
			return false
		}
	}
	return n.Roles >= 0 && n.Completed+n.Requested+n.Unneeded <= n.Roles
}

// ApplyTransition folds one role state change into the collaboration counters.
// It must run in the same transaction as the role write.
func ApplyTransition(c *Collaboration, from, to RoleStatus) error {
	if from == to {
		return nil
	}
	next := CountersOf(c)
	next.add(from, -1)
	next.add(to, 1)
	return commitCounters(c, next)
}

// AddRole counts a newly created role in state s.
func AddRole(c *Collaboration, s RoleStatus) error {
	next := CountersOf(c)
	next.Roles++
	next.add(s, 1)
	return commitCounters(c, next)
}

// RemoveRole uncounts a deleted role in state s.
func RemoveRole(c *Collaboration, s RoleStatus) error {
	next := CountersOf(c)
	next.Roles--
	next.add(s, -1)
	return commitCounters(c, next)
}

func commitCounters(c *Collaboration, next Counters) error {
	if !next.valid() {
		return ErrCounterInvariant
	}
	next.apply(c)
	return nil
}

// Reconcile derives the collaboration status from its counters.
// It reports whether the collaboration just became completed.
func Reconcile(c *Collaboration, now time.Time) bool {
	if c.Status == StatusCancelled {
		return false
	}
	prev := c.Status
	active := c.RoleCount - c.UnneededRoleCount

	switch {
	case c.CompletedRoleCount > 0 && c.CompletedRoleCount == active:
		c.Status = StatusCompleted
	case c.RequestedRoleCount > 0 && c.CompletedRoleCount+c.RequestedRoleCount == active:
		c.Status = StatusPendingCompletion
	case c.FilledRoleCount > 0:
		c.Status = StatusInProgress
	default:
		c.Status = StatusOpen
	}

	if c.Status == StatusCompleted && prev != StatusCompleted {
		at := now
		c.CompletedAt = &at
		return true
	}
	if c.Status != StatusCompleted {
		c.CompletedAt = nil
	}
	return false
}

// CountersFor recomputes the counters a collaboration should carry for the given role states.
func CountersFor(statuses []RoleStatus) Counters {
	var n Counters
	for _, s := range statuses {
		n.Roles++
		n.add(s, 1)
	}
	return n
}
