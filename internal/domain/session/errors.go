package session

import (
	"errors"

	"github.com/rpggio/liveshop/internal/domain/negotiation"
)

var (
	// ErrSessionNotFound indicates the session doesn't exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrItemNotFound indicates the cart item doesn't exist in the session.
	ErrItemNotFound = errors.New("cart item not found")
	// ErrNegotiationNotFound indicates the item has no active negotiation.
	ErrNegotiationNotFound = errors.New("negotiation not found")
	// ErrBatchNotFound indicates the catalog has no such batch.
	ErrBatchNotFound = errors.New("catalog batch not found")
	// ErrOrderNotFound indicates the order doesn't exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidState indicates the session is not in a state that allows the operation.
	ErrInvalidState = errors.New("session is not active")
	// ErrNothingToPurchase indicates a conversion with no TO_PURCHASE items.
	ErrNothingToPurchase = errors.New("no items marked to purchase")

	// ErrInvalidStatus indicates an unknown item status.
	ErrInvalidStatus = errors.New("invalid item status")
	// ErrInvalidTransition indicates a negotiation response not legal from the current status.
	ErrInvalidTransition = negotiation.ErrInvalidTransition
	// ErrInvalidAmount indicates a non-positive price or quantity.
	ErrInvalidAmount = negotiation.ErrInvalidAmount

	// ErrConflict indicates a concurrent change raced out the precondition.
	ErrConflict = errors.New("conflict")
	// ErrForbidden indicates the actor may not perform the operation.
	ErrForbidden = errors.New("actor not permitted")
	// ErrInvalidInput indicates invalid session input.
	ErrInvalidInput = errors.New("invalid session input")
)

// ErrorKind classifies failures for callers.
type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindInvalidState      ErrorKind = "INVALID_STATE"
	KindInvalidTransition ErrorKind = "INVALID_TRANSITION"
	KindInvalidAmount     ErrorKind = "INVALID_AMOUNT"
	KindConflict          ErrorKind = "CONFLICT"
	KindForbidden         ErrorKind = "FORBIDDEN"
	KindInvalidInput      ErrorKind = "INVALID_INPUT"
	KindInternal          ErrorKind = "INTERNAL"
)

// Kind maps an error returned by the service onto the failure taxonomy.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrNegotiationNotFound),
		errors.Is(err, ErrBatchNotFound),
		errors.Is(err, ErrOrderNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrNothingToPurchase):
		return KindInvalidState
	case errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, negotiation.ErrInvalidResponse):
		return KindInvalidTransition
	case errors.Is(err, ErrInvalidAmount):
		return KindInvalidAmount
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindInternal
	}
}
