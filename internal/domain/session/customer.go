package session

import (
	"context"

	"github.com/rpggio/liveshop/internal/domain/activity"
)

// RequestCheckout signals staff that the customer is ready to buy. Cart state
// is untouched; the request is stamped on the session and sent to the notifier.
func (s *Service) RequestCheckout(ctx context.Context, p Principal, sessionID string) (*Session, error) {
	if err := requireCustomer(p); err != nil {
		return nil, err
	}
	return s.mutate(ctx, sessionID, p, func(ctx context.Context, m *mutation) error {
		requested := m.now
		m.sess.CheckoutRequestedAt = &requested
		m.log(activity.TypeCheckoutRequested, "", "customer requested checkout", nil)
		m.emit(EventCheckoutRequested, "", nil)
		return nil
	})
}
