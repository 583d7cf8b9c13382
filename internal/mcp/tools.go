package mcp

// ToolDefinition describes a callable tool.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

func object(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func str(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func enum(description string, values ...string) map[string]any {
	return map[string]any{"type": "string", "description": description, "enum": values}
}

func strList(description string) map[string]any {
	return map[string]any{
		"type":        "array",
		"description": description,
		"items":       map[string]any{"type": "string"},
	}
}

func enumList(description string, values ...string) map[string]any {
	return map[string]any{
		"type":        "array",
		"description": description,
		"items":       map[string]any{"type": "string", "enum": values},
	}
}

func integer(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

func boolean(description string) map[string]any {
	return map[string]any{"type": "boolean", "description": description}
}

func skills(description string) map[string]any {
	return map[string]any{
		"type":        "array",
		"description": description,
		"items": object(map[string]any{
			"name":  str("Skill name"),
			"level": enum("Proficiency", "beginner", "intermediate", "advanced", "expert"),
		}, "name", "level"),
	}
}

var roleStatuses = []string{
	"DRAFT", "OPEN", "IN_REVIEW", "ASSIGNED", "IN_PROGRESS",
	"COMPLETION_REQUESTED", "FILLED", "COMPLETED", "ABANDONED", "UNNEEDED",
}

func idOnly(description string) map[string]any {
	return object(map[string]any{"id": str(description)}, "id")
}

// buildToolCatalog returns all available MCP tools
func buildToolCatalog() []ToolDefinition {
	return []ToolDefinition{
		// Collaborations
		{
			Name:        "create_collaboration",
			Description: "Create a collaboration owned by the caller",
			InputSchema: object(map[string]any{
				"title": str("Collaboration title"),
			}, "title"),
		},
		{
			Name:        "get_collaboration",
			Description: "Get a collaboration with its role counters",
			InputSchema: idOnly("Collaboration ID"),
		},
		{
			Name:        "cancel_collaboration",
			Description: "Cancel a collaboration (creator only)",
			InputSchema: idOnly("Collaboration ID"),
		},
		{
			Name:        "audit_collaboration",
			Description: "Compare stored role counters with counts derived from role states",
			InputSchema: idOnly("Collaboration ID"),
		},

		// Roles
		{
			Name:        "create_role",
			Description: "Create a role in a collaboration, or under a parent role (creator only)",
			InputSchema: object(map[string]any{
				"collaboration_id": str("Collaboration ID (omit when parent_role_id is set)"),
				"parent_role_id":   str("Parent role ID for a child role"),
				"title":            str("Role title"),
				"description":      str("What the role involves"),
				"required_skills":  skills("Skills an applicant must have"),
				"preferred_skills": skills("Skills that help"),
				"max_participants": integer("Seats on the role (default 1)"),
				"publish":          boolean("Create the role OPEN instead of DRAFT"),
			}, "title"),
		},
		{
			Name:        "update_role",
			Description: "Edit a DRAFT or OPEN role (creator only)",
			InputSchema: object(map[string]any{
				"id":               str("Role ID"),
				"title":            str("New title"),
				"description":      str("New description"),
				"required_skills":  skills("Replacement required skills"),
				"preferred_skills": skills("Replacement preferred skills"),
				"max_participants": integer("New seat count"),
			}, "id"),
		},
		{
			Name:        "delete_role",
			Description: "Delete a DRAFT role without children (creator only)",
			InputSchema: idOnly("Role ID"),
		},
		{
			Name:        "publish_role",
			Description: "Open a DRAFT role for applications (creator only)",
			InputSchema: idOnly("Role ID"),
		},
		{
			Name:        "reopen_role",
			Description: "Reopen an ABANDONED role for applications (creator only)",
			InputSchema: idOnly("Role ID"),
		},
		{
			Name:        "retire_role",
			Description: "Mark a role as no longer needed, rejecting its pending applications (creator only)",
			InputSchema: object(map[string]any{
				"id":     str("Role ID"),
				"reason": str("Why the role is not needed"),
			}, "id"),
		},
		{
			Name:        "start_work",
			Description: "Mark an assigned or filled role as in progress (participant only)",
			InputSchema: idOnly("Role ID"),
		},
		{
			Name:        "get_role",
			Description: "Get a role by ID",
			InputSchema: idOnly("Role ID"),
		},
		{
			Name:        "list_roles",
			Description: "List the roles of a collaboration, optionally filtered by status or parent",
			InputSchema: object(map[string]any{
				"collaboration_id": str("Collaboration ID"),
				"statuses":         enumList("Filter by role statuses", roleStatuses...),
				"parent_role_id":   str("Parent role ID (empty string for root roles)"),
			}, "collaboration_id"),
		},

		// Applications
		{
			Name:        "submit_application",
			Description: "Apply to an OPEN or IN_REVIEW role as the caller",
			InputSchema: object(map[string]any{
				"role_id":       str("Role ID"),
				"message":       str("Message to the creator"),
				"evidence_refs": strList("Opaque references to supporting evidence"),
			}, "role_id"),
		},
		{
			Name:        "review_application",
			Description: "Accept or reject a pending application (creator only)",
			InputSchema: object(map[string]any{
				"id":       str("Application ID"),
				"decision": enum("Decision", "accept", "reject"),
			}, "id", "decision"),
		},
		{
			Name:        "withdraw_application",
			Description: "Withdraw the caller's pending application",
			InputSchema: idOnly("Application ID"),
		},
		{
			Name:        "get_application",
			Description: "Get an application by ID",
			InputSchema: idOnly("Application ID"),
		},
		{
			Name:        "list_applications",
			Description: "List applications for a role, oldest first",
			InputSchema: object(map[string]any{
				"role_id":  str("Role ID"),
				"statuses": enumList("Filter by application statuses", "pending", "accepted", "rejected", "withdrawn"),
			}, "role_id"),
		},

		// Completion
		{
			Name:        "request_completion",
			Description: "Ask the creator to confirm the caller's role is done",
			InputSchema: object(map[string]any{
				"role_id":       str("Role ID"),
				"notes":         str("What was delivered"),
				"evidence_refs": strList("Opaque references to supporting evidence"),
			}, "role_id"),
		},
		{
			Name:        "confirm_completion",
			Description: "Approve or reject a pending completion request (creator only)",
			InputSchema: object(map[string]any{
				"id":      str("Completion request ID"),
				"approve": boolean("true to mark the role completed, false to send it back"),
				"note":    str("Review note"),
			}, "id", "approve"),
		},
		{
			Name:        "get_completion_request",
			Description: "Get a completion request by ID",
			InputSchema: idOnly("Completion request ID"),
		},
		{
			Name:        "list_completion_requests",
			Description: "List completion requests for a role, oldest first",
			InputSchema: object(map[string]any{
				"role_id": str("Role ID"),
			}, "role_id"),
		},

		// Abandonment
		{
			Name:        "abandon_role",
			Description: "Release a role: a participant leaves their seat, the creator vacates every seat",
			InputSchema: object(map[string]any{
				"role_id":   str("Role ID"),
				"reason":    str("Why the role is abandoned"),
				"permanent": boolean("Creator only: mark the role ABANDONED instead of reopening it"),
			}, "role_id"),
		},

		// History
		{
			Name:        "list_events",
			Description: "List lifecycle events of a collaboration, newest first",
			InputSchema: object(map[string]any{
				"collaboration_id": str("Collaboration ID"),
				"role_id":          str("Role ID to filter by"),
				"type":             str("Event type to filter by"),
				"limit":            integer("Maximum number of events"),
				"offset":           integer("Offset for pagination"),
			}, "collaboration_id"),
		},
	}
}
