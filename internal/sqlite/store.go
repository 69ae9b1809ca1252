package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rpggio/liveshop/internal/domain/activity"
	"github.com/rpggio/liveshop/internal/domain/session"
	"github.com/rpggio/liveshop/internal/repository"
)

// Store implements session.Store for SQLite
type Store struct {
	db   *DB
	q    queryer
	inTx bool
}

// NewStore creates a new Store
func NewStore(db *DB) *Store {
	return &Store{db: db, q: db}
}

// InTx runs fn against a transaction-bound copy of the store. The
// transaction commits when fn returns nil and rolls back otherwise. Nested
// calls join the outer transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx session.Repository) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&Store{db: s.db, q: tx, inTx: true}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Activity returns the audit log bound to the store's connection or transaction
func (s *Store) Activity() *ActivityRepository {
	return &ActivityRepository{q: s.q}
}

// LogActivity writes an audit entry on the store's connection or transaction
func (s *Store) LogActivity(ctx context.Context, entry *activity.ActivityEntry) error {
	return s.Activity().Log(ctx, entry)
}

const sessionColumns = `
	id, room_code, client_id, host_user_id, title, status, outcome, order_id,
	revision, checkout_requested_at, created_at, last_activity, ended_at`

// CreateSession inserts a new session
func (s *Store) CreateSession(ctx context.Context, sess *session.Session) error {
	query := `INSERT INTO sessions (` + sessionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.q.ExecContext(ctx, query,
		sess.ID,
		sess.RoomCode,
		sess.ClientID,
		sess.HostUserID,
		sess.Title,
		sess.Status,
		sess.Outcome,
		sess.OrderID,
		sess.Revision,
		utcPtr(sess.CheckoutRequestedAt),
		sess.CreatedAt.UTC(),
		sess.LastActivity.UTC(),
		utcPtr(sess.EndedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		if isCheckViolation(err) {
			return repository.ErrInvalidInput
		}
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetSession retrieves a session by ID
func (s *Store) GetSession(ctx context.Context, id string) (*session.Session, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// GetSessionByRoomCode retrieves a session by its shareable room code
func (s *Store) GetSessionByRoomCode(ctx context.Context, roomCode string) (*session.Session, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE room_code = ?`, roomCode)
	return scanSession(row)
}

// UpdateSession writes the mutable session fields
func (s *Store) UpdateSession(ctx context.Context, sess *session.Session) error {
	query := `
		UPDATE sessions
		SET title = ?, status = ?, outcome = ?, order_id = ?, revision = ?,
		    checkout_requested_at = ?, last_activity = ?, ended_at = ?
		WHERE id = ?
	`

	result, err := s.q.ExecContext(ctx, query,
		sess.Title,
		sess.Status,
		sess.Outcome,
		sess.OrderID,
		sess.Revision,
		utcPtr(sess.CheckoutRequestedAt),
		sess.LastActivity.UTC(),
		utcPtr(sess.EndedAt),
		sess.ID,
	)
	if err != nil {
		if isCheckViolation(err) {
			return repository.ErrInvalidInput
		}
		return fmt.Errorf("failed to update session: %w", err)
	}

	return requireAffected(result)
}

// ListSessions returns sessions newest first
func (s *Store) ListSessions(ctx context.Context, opts session.ListOptions) ([]session.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE 1 = 1`
	args := []any{}

	if opts.Status != "" {
		query += " AND status = ?"
		args = append(args, opts.Status)
	}
	if opts.ClientID != "" {
		query += " AND client_id = ?"
		args = append(args, opts.ClientID)
	}

	query += " ORDER BY rowid DESC"
	query, args = paginate(query, args, opts.Limit, opts.Offset)

	return s.querySessions(ctx, query, args...)
}

// ListIdleSessions returns ACTIVE sessions last touched before the cutoff
func (s *Store) ListIdleSessions(ctx context.Context, lastActivityBefore time.Time) ([]session.Session, error) {
	active, err := s.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE status = ? ORDER BY rowid`, session.StatusActive)
	if err != nil {
		return nil, err
	}

	// Timestamps are stored as text, so the comparison happens here.
	idle := make([]session.Session, 0, len(active))
	for _, sess := range active {
		if sess.LastActivity.Before(lastActivityBefore) {
			idle = append(idle, sess)
		}
	}
	return idle, nil
}

func (s *Store) querySessions(ctx context.Context, query string, args ...any) ([]session.Session, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []session.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}
	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*session.Session, error) {
	var sess session.Session
	var orderID sql.NullString
	var checkoutRequestedAt, endedAt sql.NullTime
	err := row.Scan(
		&sess.ID,
		&sess.RoomCode,
		&sess.ClientID,
		&sess.HostUserID,
		&sess.Title,
		&sess.Status,
		&sess.Outcome,
		&orderID,
		&sess.Revision,
		&checkoutRequestedAt,
		&sess.CreatedAt,
		&sess.LastActivity,
		&endedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	if orderID.Valid {
		sess.OrderID = &orderID.String
	}
	if checkoutRequestedAt.Valid {
		sess.CheckoutRequestedAt = &checkoutRequestedAt.Time
	}
	if endedAt.Valid {
		sess.EndedAt = &endedAt.Time
	}
	return &sess, nil
}

func requireAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func paginate(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
		if offset > 0 {
			query += " OFFSET ?"
			args = append(args, offset)
		}
	}
	return query, args
}

func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
