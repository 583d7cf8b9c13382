package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `rolecall coordinates collaborations made of roles that people apply for, fill and complete.

Core concepts:
- Collaboration: owned by its creator; carries role_count, filled_role_count and completed_role_count.
- Role: a seat (or several, max_participants) with a status machine:
  DRAFT -> OPEN -> IN_REVIEW -> ASSIGNED/FILLED -> IN_PROGRESS -> COMPLETION_REQUESTED -> COMPLETED.
  ABANDONED and UNNEEDED are side exits.
- Application: pending until the creator accepts or rejects it, or the applicant withdraws it.
- Completion request: a participant asks, the creator confirms or sends it back.

Workflow:
1) Creator: create_collaboration, then create_role (publish=true to open it immediately).
2) Applicant: submit_application on an OPEN or IN_REVIEW role.
3) Creator: review_application with decision=accept or reject. Accepting fills a seat;
   competing pending applications are rejected automatically.
4) Participant: start_work, then request_completion.
5) Creator: confirm_completion. When every needed role is completed, the collaboration completes.
6) abandon_role releases seats; the role reopens unless the creator marks it permanent.

Errors:
- CONCURRENT_ACCEPTANCE: another acceptance took the seat first. Re-read the role before retrying.
- TRANSACTION_EXHAUSTED: contention outlasted the retry budget. Retrying the same call is safe.
- STATE_CONFLICT / ROLE_IMMUTABLE: the entity is not in a state that allows the call.

Identity:
- HTTP with auth: the bearer token decides the actor.
- Otherwise pass the actor via the X-Actor-Id header (HTTP) or _meta.actor_id (stdio).
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "rolecall://docs/role-lifecycle",
		Name:        "role-lifecycle",
		Title:       "Role lifecycle",
		Description: "Role statuses, which ones count as filled, and who may move a role between them.",
		Content: `# Role lifecycle

| From | To | Caller |
|------|----|--------|
| DRAFT | OPEN | creator (publish_role) |
| OPEN | IN_REVIEW | first submit_application |
| OPEN, IN_REVIEW | ASSIGNED, FILLED | creator (review_application accept) |
| ASSIGNED | FILLED | creator, when the last seat is taken |
| ASSIGNED, FILLED | IN_PROGRESS | participant (start_work) |
| ASSIGNED, IN_PROGRESS, FILLED | COMPLETION_REQUESTED | participant (request_completion) |
| COMPLETION_REQUESTED | COMPLETED | creator (confirm_completion approve) |
| COMPLETION_REQUESTED | previous status | creator (confirm_completion reject) |
| ASSIGNED, IN_PROGRESS, COMPLETION_REQUESTED, FILLED | OPEN, ABANDONED | abandon_role |
| ABANDONED | OPEN | creator (reopen_role) |
| DRAFT, OPEN, IN_REVIEW, ABANDONED | UNNEEDED | creator (retire_role) |

## Counters

A role counts toward filled_role_count while it is ASSIGNED, IN_PROGRESS,
COMPLETION_REQUESTED, FILLED or COMPLETED. completed_role_count counts COMPLETED roles.
Use audit_collaboration to compare stored counters with role states.

## Multi-seat roles

With the reject_others policy any acceptance rejects other pending applications.
With keep_open_until_full they stay pending until the last seat is taken or work starts.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
