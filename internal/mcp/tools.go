package mcp

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/liveshop/internal/domain/activity"
	"github.com/rpggio/liveshop/internal/domain/negotiation"
	"github.com/rpggio/liveshop/internal/domain/session"
	"github.com/shopspring/decimal"
)

type sessionRef struct {
	SessionID string `json:"session_id" jsonschema:"Session ID"`
}

type itemRef struct {
	SessionID  string `json:"session_id" jsonschema:"Session ID"`
	CartItemID string `json:"cart_item_id" jsonschema:"Cart item ID"`
}

type createSessionInput struct {
	ClientID string `json:"client_id" jsonschema:"Client (customer account) the session is for"`
	Title    string `json:"title,omitempty" jsonschema:"Optional session title"`
}

type listSessionsInput struct {
	Status   string `json:"status,omitempty" jsonschema:"Filter by ACTIVE or ENDED"`
	ClientID string `json:"client_id,omitempty" jsonschema:"Filter by client"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum number of sessions"`
	Offset   int    `json:"offset,omitempty" jsonschema:"Offset for pagination"`
}

type snapshotInput struct {
	SessionID     string `json:"session_id" jsonschema:"Session ID"`
	SinceRevision int64  `json:"since_revision,omitempty" jsonschema:"Revision already seen; unchanged sessions return not_modified"`
}

type addItemInput struct {
	SessionID string `json:"session_id" jsonschema:"Session ID"`
	BatchID   string `json:"batch_id" jsonschema:"Catalog batch to add"`
	Quantity  string `json:"quantity" jsonschema:"Quantity as a decimal string"`
	Status    string `json:"status,omitempty" jsonschema:"SAMPLE_REQUEST, INTERESTED (default) or TO_PURCHASE"`
}

type updateQuantityInput struct {
	SessionID  string `json:"session_id" jsonschema:"Session ID"`
	CartItemID string `json:"cart_item_id" jsonschema:"Cart item ID"`
	Quantity   string `json:"quantity" jsonschema:"New quantity as a decimal string"`
}

type setItemStatusInput struct {
	SessionID  string `json:"session_id" jsonschema:"Session ID"`
	CartItemID string `json:"cart_item_id" jsonschema:"Cart item ID"`
	Status     string `json:"status" jsonschema:"SAMPLE_REQUEST, INTERESTED or TO_PURCHASE"`
}

type proposePriceInput struct {
	SessionID  string `json:"session_id" jsonschema:"Session ID"`
	CartItemID string `json:"cart_item_id" jsonschema:"Cart item ID"`
	Price      string `json:"price" jsonschema:"Proposed unit price as a decimal string"`
	Reason     string `json:"reason,omitempty" jsonschema:"Why the customer asks for this price"`
	Quantity   string `json:"quantity,omitempty" jsonschema:"Quantity the price is asked for, applied on acceptance"`
}

type respondInput struct {
	SessionID    string `json:"session_id" jsonschema:"Session ID"`
	CartItemID   string `json:"cart_item_id" jsonschema:"Cart item ID"`
	Response     string `json:"response" jsonschema:"ACCEPT, REJECT or COUNTER"`
	CounterPrice string `json:"counter_price,omitempty" jsonschema:"Counter price, required for COUNTER"`
}

type overrideInput struct {
	SessionID string `json:"session_id" jsonschema:"Session ID"`
	ProductID string `json:"product_id" jsonschema:"Product whose session price is set"`
	Price     string `json:"price" jsonschema:"Unit price as a decimal string"`
}

type highlightInput struct {
	SessionID   string `json:"session_id" jsonschema:"Session ID"`
	BatchID     string `json:"batch_id" jsonschema:"Batch to put in the spotlight"`
	Highlighted *bool  `json:"highlighted,omitempty" jsonschema:"False clears the highlight; defaults to true"`
}

type endSessionInput struct {
	SessionID      string `json:"session_id" jsonschema:"Session ID"`
	ConvertToOrder bool   `json:"convert_to_order,omitempty" jsonschema:"Create an order from TO_PURCHASE items"`
}

type searchCatalogInput struct {
	Query string `json:"query" jsonschema:"Words from the product name or batch code"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of batches"`
}

type activityInput struct {
	SessionID    string `json:"session_id" jsonschema:"Session ID"`
	CartItemID   string `json:"cart_item_id,omitempty" jsonschema:"Only entries for this cart item"`
	ActivityType string `json:"activity_type,omitempty" jsonschema:"Only entries of this type"`
	Limit        int    `json:"limit,omitempty" jsonschema:"Maximum number of entries"`
	Offset       int    `json:"offset,omitempty" jsonschema:"Offset for pagination"`
}

// addTool registers a tool whose handler runs as the calling principal.
func addTool[In any](server *sdkmcp.Server, name, description string, fn func(ctx context.Context, p session.Principal, in In) (any, error)) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: name, Description: description},
		func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, any, error) {
			p, ok := getPrincipal(ctx)
			if !ok {
				return nil, nil, fmt.Errorf("unauthorized: missing principal")
			}
			out, err := fn(ctx, p, in)
			if err != nil {
				return nil, nil, toolError(err)
			}
			return nil, out, nil
		})
}

func parseAmount(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s must be a decimal number", session.ErrInvalidInput, field)
	}
	return d, nil
}

func registerTools(server *sdkmcp.Server, svc Services) {
	sessions := svc.Sessions

	addTool(server, "create_session", "Start a live shopping session for a client",
		func(ctx context.Context, p session.Principal, in createSessionInput) (any, error) {
			return sessions.CreateSession(ctx, p, session.CreateSessionRequest{ClientID: in.ClientID, Title: in.Title})
		})

	addTool(server, "list_sessions", "List sessions, newest first",
		func(ctx context.Context, p session.Principal, in listSessionsInput) (any, error) {
			list, err := sessions.ListSessions(ctx, p, session.ListOptions{
				Status:   session.Status(in.Status),
				ClientID: in.ClientID,
				Limit:    in.Limit,
				Offset:   in.Offset,
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"sessions": list}, nil
		})

	addTool(server, "get_snapshot", "Get the session, its items by status with totals, and active negotiations",
		func(ctx context.Context, p session.Principal, in snapshotInput) (any, error) {
			return sessions.GetSnapshot(ctx, p, in.SessionID, in.SinceRevision)
		})

	addTool(server, "get_items_by_status", "Get the cart grouped into SAMPLE_REQUEST, INTERESTED and TO_PURCHASE with totals",
		func(ctx context.Context, p session.Principal, in sessionRef) (any, error) {
			return sessions.GetItemsByStatus(ctx, p, in.SessionID)
		})

	addTool(server, "add_item", "Add a catalog batch to the cart; adding the same batch again increases its quantity",
		func(ctx context.Context, p session.Principal, in addItemInput) (any, error) {
			qty, err := parseAmount("quantity", in.Quantity)
			if err != nil {
				return nil, err
			}
			return sessions.AddItem(ctx, p, in.SessionID, session.AddItemRequest{
				BatchID:  in.BatchID,
				Quantity: qty,
				Status:   session.ItemStatus(in.Status),
			})
		})

	addTool(server, "update_quantity", "Change the quantity of a cart item",
		func(ctx context.Context, p session.Principal, in updateQuantityInput) (any, error) {
			qty, err := parseAmount("quantity", in.Quantity)
			if err != nil {
				return nil, err
			}
			return sessions.UpdateQuantity(ctx, p, in.SessionID, in.CartItemID, qty)
		})

	addTool(server, "set_item_status", "Move a cart item to another status column",
		func(ctx context.Context, p session.Principal, in setItemStatusInput) (any, error) {
			return sessions.SetItemStatus(ctx, p, in.SessionID, in.CartItemID, session.ItemStatus(in.Status))
		})

	addTool(server, "remove_from_cart", "Remove an item from the cart, cancelling any active negotiation on it",
		func(ctx context.Context, p session.Principal, in itemRef) (any, error) {
			if err := sessions.RemoveFromCart(ctx, p, in.SessionID, in.CartItemID); err != nil {
				return nil, err
			}
			return map[string]any{"removed": in.CartItemID}, nil
		})

	addTool(server, "get_active_negotiations", "List PENDING and COUNTER_OFFERED negotiations in a session",
		func(ctx context.Context, p session.Principal, in sessionRef) (any, error) {
			negs, err := sessions.GetActiveNegotiations(ctx, p, in.SessionID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"negotiations": negs}, nil
		})

	addTool(server, "get_negotiation_history", "List every negotiation on a cart item with its event history",
		func(ctx context.Context, p session.Principal, in itemRef) (any, error) {
			negs, err := sessions.GetNegotiationHistory(ctx, p, in.SessionID, in.CartItemID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"negotiations": negs}, nil
		})

	addTool(server, "propose_price", "Customer only: propose a price for a cart item",
		func(ctx context.Context, p session.Principal, in proposePriceInput) (any, error) {
			price, err := parseAmount("price", in.Price)
			if err != nil {
				return nil, err
			}
			req := session.ProposePriceRequest{CartItemID: in.CartItemID, Price: price, Reason: in.Reason}
			if in.Quantity != "" {
				quantity, err := parseAmount("quantity", in.Quantity)
				if err != nil {
					return nil, err
				}
				req.Quantity = &quantity
			}
			return sessions.ProposePrice(ctx, p, in.SessionID, req)
		})

	addTool(server, "respond_to_negotiation", "Accept, reject or counter the outstanding offer on a cart item",
		func(ctx context.Context, p session.Principal, in respondInput) (any, error) {
			req := session.RespondRequest{CartItemID: in.CartItemID, Response: negotiation.Response(in.Response)}
			if in.CounterPrice != "" {
				counter, err := parseAmount("counter_price", in.CounterPrice)
				if err != nil {
					return nil, err
				}
				req.CounterPrice = &counter
			}
			return sessions.RespondToNegotiation(ctx, p, in.SessionID, req)
		})

	addTool(server, "set_override_price", "Set the session price of a product, repricing its cart items",
		func(ctx context.Context, p session.Principal, in overrideInput) (any, error) {
			price, err := parseAmount("price", in.Price)
			if err != nil {
				return nil, err
			}
			return sessions.SetOverridePrice(ctx, p, in.SessionID, in.ProductID, price)
		})

	addTool(server, "highlight_product", "Put one batch in the spotlight for the customer",
		func(ctx context.Context, p session.Principal, in highlightInput) (any, error) {
			highlighted := true
			if in.Highlighted != nil {
				highlighted = *in.Highlighted
			}
			matched, err := sessions.HighlightProduct(ctx, p, in.SessionID, in.BatchID, highlighted)
			if err != nil {
				return nil, err
			}
			return map[string]any{"batch_id": in.BatchID, "highlighted": highlighted, "items": matched}, nil
		})

	addTool(server, "request_checkout", "Customer only: tell staff the customer is ready to buy",
		func(ctx context.Context, p session.Principal, in sessionRef) (any, error) {
			return sessions.RequestCheckout(ctx, p, in.SessionID)
		})

	addTool(server, "end_session", "End the session, optionally converting TO_PURCHASE items into an order",
		func(ctx context.Context, p session.Principal, in endSessionInput) (any, error) {
			return sessions.EndSession(ctx, p, in.SessionID, in.ConvertToOrder)
		})

	addTool(server, "get_order", "Get the order created when the session was converted",
		func(ctx context.Context, p session.Principal, in sessionRef) (any, error) {
			return sessions.GetOrder(ctx, p, in.SessionID)
		})

	addTool(server, "search_catalog", "Search in-stock catalog batches by product name or batch code",
		func(ctx context.Context, _ session.Principal, in searchCatalogInput) (any, error) {
			batches, err := sessions.SearchCatalog(ctx, in.Query, in.Limit)
			if err != nil {
				return nil, err
			}
			return map[string]any{"batches": batches}, nil
		})

	addTool(server, "get_recent_activity", "Get the audit trail of a session, newest first",
		func(ctx context.Context, p session.Principal, in activityInput) (any, error) {
			if _, err := sessions.GetSession(ctx, p, in.SessionID); err != nil {
				return nil, err
			}
			opts := activity.ListActivityOptions{SessionID: in.SessionID, Limit: in.Limit, Offset: in.Offset}
			if in.CartItemID != "" {
				opts.CartItemID = &in.CartItemID
			}
			if in.ActivityType != "" {
				t := activity.ActivityType(in.ActivityType)
				opts.ActivityType = &t
			}
			entries, err := svc.Activity.GetRecentActivity(ctx, opts)
			if err != nil {
				return nil, err
			}
			return map[string]any{"activity": entries}, nil
		})
}
