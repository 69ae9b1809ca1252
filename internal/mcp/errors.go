package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/liveshop/internal/domain/activity"
	"github.com/rpggio/liveshop/internal/domain/negotiation"
	"github.com/rpggio/liveshop/internal/domain/session"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) CodeValue() string {
	return e.Code
}

func (e *APIError) MessageValue() string {
	return e.Message
}

func (e *APIError) RecoveryHintValue() string {
	return e.RecoveryHint
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return &APIError{Code: "SESSION_NOT_FOUND", Message: "session not found", RecoveryHint: "Check the session ID with list_sessions"}
	case errors.Is(err, session.ErrItemNotFound):
		return &APIError{Code: "ITEM_NOT_FOUND", Message: "cart item not found", RecoveryHint: "Call get_snapshot for current item IDs"}
	case errors.Is(err, session.ErrNegotiationNotFound):
		return &APIError{Code: "NEGOTIATION_NOT_FOUND", Message: "no negotiation on this item", RecoveryHint: "Check get_active_negotiations"}
	case errors.Is(err, session.ErrBatchNotFound):
		return &APIError{Code: "BATCH_NOT_FOUND", Message: "catalog batch not found", RecoveryHint: "Find batches with search_catalog"}
	case errors.Is(err, session.ErrOrderNotFound):
		return &APIError{Code: "ORDER_NOT_FOUND", Message: "session has no order", RecoveryHint: "End the session with convert_to_order"}
	case errors.Is(err, session.ErrConflict):
		return &APIError{Code: "CONFLICT", Message: err.Error(), RecoveryHint: "Refresh with get_snapshot and retry"}
	case errors.Is(err, session.ErrNothingToPurchase):
		return &APIError{Code: "NOTHING_TO_PURCHASE", Message: "no items are marked TO_PURCHASE", RecoveryHint: "Move items to TO_PURCHASE or end without converting"}
	case errors.Is(err, session.ErrInvalidState):
		return &APIError{Code: "SESSION_ENDED", Message: "session is no longer active", RecoveryHint: "Start a new session"}
	case errors.Is(err, session.ErrInvalidStatus):
		return &APIError{Code: "INVALID_STATUS", Message: "unknown item status", RecoveryHint: "Use SAMPLE_REQUEST, INTERESTED or TO_PURCHASE"}
	case errors.Is(err, negotiation.ErrInvalidResponse), errors.Is(err, session.ErrInvalidTransition):
		return &APIError{Code: "INVALID_TRANSITION", Message: err.Error(), RecoveryHint: "Staff answers PENDING proposals; the customer answers counter offers"}
	case errors.Is(err, session.ErrInvalidAmount):
		return &APIError{Code: "INVALID_AMOUNT", Message: "amount must be positive"}
	case errors.Is(err, session.ErrForbidden):
		return &APIError{Code: "FORBIDDEN", Message: "this actor may not perform the operation"}
	case errors.Is(err, session.ErrInvalidInput), errors.Is(err, activity.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	default:
		return nil
	}
}

// toolError converts a service error into the error returned from a tool.
func toolError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
