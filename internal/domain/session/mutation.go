package session

import (
	"context"
	"fmt"
	"time"

	"github.com/rpggio/liveshop/internal/domain/activity"
)

// mutation carries one unit of work against an ACTIVE session.
type mutation struct {
	tx        Repository
	sess      *Session
	principal Principal
	now       time.Time
	entries   []*activity.ActivityEntry
	events    []Event
}

func (m *mutation) log(typ activity.ActivityType, itemID, summary string, details any) {
	entry := &activity.ActivityEntry{
		SessionID:    m.sess.ID,
		Actor:        string(m.principal.Actor),
		ActivityType: typ,
		Summary:      summary,
		Details:      activity.EncodeDetails(details),
		CreatedAt:    m.now,
	}
	if itemID != "" {
		id := itemID
		entry.CartItemID = &id
	}
	m.entries = append(m.entries, entry)
}

func (m *mutation) emit(typ EventType, itemID string, attrs map[string]string) {
	m.events = append(m.events, Event{
		Type:       typ,
		SessionID:  m.sess.ID,
		ClientID:   m.sess.ClientID,
		Actor:      m.principal.Actor,
		CartItemID: itemID,
		Attributes: attrs,
		At:         m.now,
	})
}

// mutate runs fn under the session lock inside one transaction. The session
// must exist, be visible to the caller and be ACTIVE. On success the revision
// is bumped and audit entries are written in the same transaction. Events are
// published after commit, once the lock is released.
func (s *Service) mutate(ctx context.Context, sessionID string, p Principal, fn func(ctx context.Context, m *mutation) error) (*Session, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	result, events, err := s.commit(ctx, sessionID, p, fn)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)
	return result, nil
}

func (s *Service) commit(ctx context.Context, sessionID string, p Principal, fn func(ctx context.Context, m *mutation) error) (*Session, []Event, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	var (
		result *Session
		events []Event
	)
	err := s.store.InTx(ctx, func(tx Repository) error {
		sess, err := s.loadSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if err := authorize(p, sess); err != nil {
			return err
		}
		if sess.Status != StatusActive {
			return ErrInvalidState
		}

		m := &mutation{tx: tx, sess: sess, principal: p, now: s.now()}
		if err := fn(ctx, m); err != nil {
			return err
		}

		sess.Revision++
		sess.LastActivity = m.now
		if err := tx.UpdateSession(ctx, sess); err != nil {
			return fmt.Errorf("updating session: %w", err)
		}
		for _, entry := range m.entries {
			entry.Revision = sess.Revision
			if err := tx.LogActivity(ctx, entry); err != nil {
				return fmt.Errorf("logging activity: %w", err)
			}
		}
		for i := range m.events {
			m.events[i].Revision = sess.Revision
		}

		result = sess
		events = m.events
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return result, events, nil
}

// publish hands committed events to the notifier. Delivery failures are
// logged and never undo the mutation. Concurrent publishers may interleave;
// consumers order a session's events by Revision.
func (s *Service) publish(ctx context.Context, events []Event) {
	if s.notifier == nil {
		return
	}
	for _, event := range events {
		if err := s.notifier.Notify(ctx, event); err != nil {
			s.logger.Warn("session notification failed",
				"session_id", event.SessionID,
				"event", event.Type,
				"error", err,
			)
		}
	}
}
