package notify

import (
	"context"
	"log/slog"

	"github.com/rpggio/liveshop/internal/domain/session"
)

// LogNotifier writes session events to a structured logger. It is the
// default when no broker is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier that logs at info level.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the event.
func (n *LogNotifier) Notify(ctx context.Context, event session.Event) error {
	attrs := []any{
		"event", event.Type,
		"session_id", event.SessionID,
		"client_id", event.ClientID,
		"actor", event.Actor,
		"revision", event.Revision,
	}
	if event.CartItemID != "" {
		attrs = append(attrs, "cart_item_id", event.CartItemID)
	}
	if event.OrderID != "" {
		attrs = append(attrs, "order_id", event.OrderID)
	}
	for k, v := range event.Attributes {
		attrs = append(attrs, k, v)
	}
	n.logger.InfoContext(ctx, "session event", attrs...)
	return nil
}

// Fanout delivers each event to every notifier and returns the first error.
type Fanout []session.Notifier

// Notify calls every notifier even if an earlier one fails.
func (f Fanout) Notify(ctx context.Context, event session.Event) error {
	var first error
	for _, n := range f {
		if err := n.Notify(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
