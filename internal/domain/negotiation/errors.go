package negotiation

import "errors"

var (
	// ErrInvalidAmount indicates a non-positive or missing price or quantity.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInvalidTransition indicates a response that is not legal from the current status.
	ErrInvalidTransition = errors.New("invalid negotiation transition")
	// ErrInactive indicates the negotiation already reached a terminal status.
	ErrInactive = errors.New("negotiation is no longer active")
	// ErrInvalidResponse indicates an unknown response verb.
	ErrInvalidResponse = errors.New("unknown negotiation response")
)
