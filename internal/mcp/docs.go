package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `tranche is a vesting ledger. An owner awards grants to accounts; each grant has a
principal that unlocks all at once at the end and a bonus that unlocks linearly from start to end.

Core concepts:
- Grant: (principal, bonus, start, duration) for one beneficiary. Grants are never edited or removed.
- Totals: per account, the sum over grants of total, unlocked ("available") and claimed amounts.
- Claim: pays available minus claimed for both tranches at once. There are no partial claims.
- Roles: owner (grants, claims, pause), rescuer (rescue_all only). Check get_ledger_state.

Amounts are base-10 integer strings in base units. create_grant accepts token units when units=true.

Default workflow:
1) Orient with get_ledger_state.
2) Inspect an account with get_totals and list_grants; claimable is what claim_all would pay now.
3) Mutate with create_grant or claim_all. Errors carry a stable code and a recovery hint.
4) Audit with list_events.

Docs:
- tranche://docs/concepts
- tranche://docs/errors
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
		URI:         "tranche://docs/concepts",
		Name:        "docs_concepts",
		Title:       "Vesting concepts",
		Description: "Unlock schedule, totals and claim rules.",
		Content: `# Vesting concepts

## Unlock schedule

For a grant with start S and duration D evaluated at time t:

- before S: nothing is unlocked
- between S and S+D: bonus unlocks as floor(bonus * elapsed / D); principal stays locked
- at or after S+D: principal and bonus are fully unlocked

Elapsed time counts whole seconds.

## Totals

Totals add up every grant of the account. ` + "`claimable`" + ` is unlocked minus claimed,
summed over principal and bonus.

## Claims

` + "`claim_all`" + ` pays the whole claimable amount from custody and records it as claimed.
Claimed never exceeds unlocked, and unlocked never exceeds total, so the same amount is never
paid twice.

## Creating grants

- the beneficiary must not be the null account
- principal must be positive and at most the per-grant maximum
- start + duration must be at least the minimum horizon (30 days by default) after now
- start may be in the past
`,
	},
	{
		URI:         "tranche://docs/errors",
		Name:        "docs_errors",
		Title:       "Error codes",
		Description: "Stable error codes returned by tools.",
		Content: `# Error codes

| Code | Meaning |
|---|---|
| UNAUTHORIZED | caller lacks the owner or rescuer role, or the bearer token is invalid |
| PAUSED | create_grant and claim_all are disabled until unpause |
| NOT_PAUSED | unpause called while running |
| INVALID_BENEFICIARY | null beneficiary |
| ZERO_PRINCIPAL | principal is 0 |
| PRINCIPAL_TOO_LARGE | principal above the per-grant maximum |
| HORIZON_TOO_SOON | grant would end before the minimum horizon |
| INVALID_DURATION | duration below one second |
| AMOUNT_OVERFLOW | account totals would not fit in 256 bits |
| INVALID_AMOUNT | amount is not a base-10 integer (or decimal with units=true) |
| NOTHING_TO_CLAIM | nothing unlocked since the last claim |
| ALREADY_CLAIMED_EVERYTHING | every grant is mature and fully claimed |
| INVALID_ARGUMENT | malformed timestamp or limit |
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
