package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "liveshop://docs/workflow",
		Name:        "workflow",
		Title:       "Running a live session",
		Description: "Item columns, totals and how a session ends",
		Content: `# Running a live session

Every cart item sits in one column: SAMPLE_REQUEST, INTERESTED or TO_PURCHASE.
Either party can move an item to any column at any time. Totals per column are
recomputed from the live cart on every read.

## Ending

- end_session with convert_to_order=false closes the session (outcome CLOSED).
- end_session with convert_to_order=true creates an order from the TO_PURCHASE
  items at their current unit price (outcome CONVERTED). If nothing is marked
  TO_PURCHASE the call fails and the session stays open.
- Sessions with no activity for the configured idle timeout are expired.

Ended sessions reject every mutation but stay readable.
`,
	},
	{
		URI:         "liveshop://docs/negotiation",
		Name:        "negotiation",
		Title:       "Price negotiation",
		Description: "Who may answer what, and when the price changes",
		Content: `# Price negotiation

The customer proposes a price on one item; an item has at most one active
negotiation.

| Status | Staff may | Customer may |
|---|---|---|
| PENDING | ACCEPT, REJECT, COUNTER | wait |
| COUNTER_OFFERED | wait | ACCEPT, REJECT |

ACCEPT sets the item's unit price to the accepted amount. REJECT leaves it.
A proposal may name a quantity; staff accepting it sets the item quantity too.
A price override or removing the item cancels the active negotiation.

Answering a negotiation that was resolved a moment ago fails with CONFLICT;
refresh and check get_active_negotiations.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

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
