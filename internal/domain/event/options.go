package event

// ListOptions provides filtering options for listing events.
type ListOptions struct {
	CollaborationID string
	RoleID          *string
	Type            *Type
	Limit           int
	Offset          int
}
