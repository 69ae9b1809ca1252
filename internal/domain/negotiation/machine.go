package negotiation

import (
	"time"

	"github.com/shopspring/decimal"
)

// ValidatePrice rejects zero and negative prices.
func ValidatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// Open starts a PENDING negotiation on behalf of the customer. The current
// unit price of the item is captured as the original price.
func Open(id, sessionID, cartItemID string, currentPrice, proposed decimal.Decimal, reason string, now time.Time) (*Negotiation, error) {
	if err := ValidatePrice(proposed); err != nil {
		return nil, err
	}
	return &Negotiation{
		ID:            id,
		SessionID:     sessionID,
		CartItemID:    cartItemID,
		OriginalPrice: currentPrice,
		ProposedPrice: proposed,
		Reason:        reason,
		Status:        StatusPending,
		History: []Event{{
			Action: ActionRequest,
			Price:  decimalPtr(proposed),
			By:     PartyCustomer,
			At:     now,
			Reason: reason,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ForQuantity ties a PENDING proposal to a quantity. Accepting the proposal
// applies the quantity along with the price.
func (n *Negotiation) ForQuantity(quantity decimal.Decimal) error {
	if n.Status != StatusPending || len(n.History) != 1 {
		return ErrInvalidTransition
	}
	if !quantity.IsPositive() {
		return ErrInvalidAmount
	}
	n.ProposedQuantity = decimalPtr(quantity)
	n.History[0].Quantity = decimalPtr(quantity)
	return nil
}

// Respond applies a response from one party. Staff answers a PENDING
// proposal; the customer answers a COUNTER_OFFERED counter.
func (n *Negotiation) Respond(by Party, resp Response, counter *decimal.Decimal, now time.Time) (Outcome, error) {
	if !n.Status.Active() {
		return Outcome{}, ErrInactive
	}

	switch resp {
	case ResponseCounter:
		if n.Status != StatusPending || by != PartyStaff {
			return Outcome{}, ErrInvalidTransition
		}
		if counter == nil {
			return Outcome{}, ErrInvalidAmount
		}
		if err := ValidatePrice(*counter); err != nil {
			return Outcome{}, err
		}
		n.CounterPrice = decimalPtr(*counter)
		n.Status = StatusCounterOffered
		n.record(ActionCounter, n.CounterPrice, by, now, "")
		return Outcome{Status: n.Status}, nil

	case ResponseAccept:
		price, action, err := n.outstanding(by, ActionAccept, ActionAcceptCounter)
		if err != nil {
			return Outcome{}, err
		}
		n.Status = StatusAccepted
		n.FinalPrice = decimalPtr(price)
		n.resolve(now)
		n.record(action, decimalPtr(price), by, now, "")
		outcome := Outcome{Status: n.Status, Applied: true, Price: price}
		if action == ActionAccept && n.ProposedQuantity != nil {
			outcome.Quantity = decimalPtr(*n.ProposedQuantity)
		}
		return outcome, nil

	case ResponseReject:
		_, action, err := n.outstanding(by, ActionReject, ActionRejectCounter)
		if err != nil {
			return Outcome{}, err
		}
		n.Status = StatusRejected
		n.resolve(now)
		n.record(action, nil, by, now, "")
		return Outcome{Status: n.Status}, nil

	default:
		return Outcome{}, ErrInvalidTransition
	}
}

// Cancel closes an active negotiation without touching the item price.
func (n *Negotiation) Cancel(by Party, reason string, now time.Time) error {
	if !n.Status.Active() {
		return ErrInactive
	}
	n.Status = StatusCancelled
	n.resolve(now)
	n.record(ActionCancel, nil, by, now, reason)
	return nil
}

// outstanding returns the offer the given party may answer.
func (n *Negotiation) outstanding(by Party, onProposal, onCounter Action) (decimal.Decimal, Action, error) {
	switch {
	case n.Status == StatusPending && by == PartyStaff:
		return n.ProposedPrice, onProposal, nil
	case n.Status == StatusCounterOffered && by == PartyCustomer && n.CounterPrice != nil:
		return *n.CounterPrice, onCounter, nil
	default:
		return decimal.Decimal{}, "", ErrInvalidTransition
	}
}

func (n *Negotiation) resolve(now time.Time) {
	resolved := now
	n.ResolvedAt = &resolved
}

func (n *Negotiation) record(action Action, price *decimal.Decimal, by Party, now time.Time, reason string) {
	n.History = append(n.History, Event{Action: action, Price: price, By: by, At: now, Reason: reason})
	n.UpdatedAt = now
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
