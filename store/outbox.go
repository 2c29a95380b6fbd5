package store

import (
	"context"
	"time"
)

type outboxRepo struct{ s *SQLStore }

const outboxColumns = `id, kind, ref_id, status, attempts, next_attempt_at, last_error, created_at, sent_at`

func scanOutbox(sc scanner) (OutboxMessage, error) {
	var m OutboxMessage
	err := sc.Scan(&m.ID, &m.Kind, &m.RefID, &m.Status, &m.Attempts, &m.NextAttemptAt, &m.LastError, &m.CreatedAt, &m.SentAt)
	return m, err
}

// Enqueue inserts a pending message that is due immediately.
func (r outboxRepo) Enqueue(ctx context.Context, m *OutboxMessage) error {
	now := r.s.now()
	m.Status = OutboxPending
	m.NextAttemptAt = now
	err := r.s.queryRow(ctx,
		`INSERT INTO outbox (kind, ref_id, status, attempts, next_attempt_at, last_error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		m.Kind, m.RefID, m.Status, m.Attempts, m.NextAttemptAt, m.LastError, now,
	).Scan(&m.ID)
	if err != nil {
		return dbError(err)
	}
	m.CreatedAt = now
	return nil
}

func (r outboxRepo) Due(ctx context.Context, now time.Time, limit int) ([]OutboxMessage, error) {
	rows, err := r.s.query(ctx,
		`SELECT `+outboxColumns+` FROM outbox
		 WHERE status = ? AND next_attempt_at <= ?
		 ORDER BY next_attempt_at, id
		 LIMIT ?`,
		OutboxPending, now.UTC().Truncate(timeResolution), limit)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()
	return collectOutbox(rows)
}

func (r outboxRepo) MarkSent(ctx context.Context, id int64, at time.Time) error {
	return r.s.execOne(ctx,
		`UPDATE outbox SET status = ?, attempts = attempts + 1, sent_at = ?, last_error = ? WHERE id = ?`,
		OutboxSent, at.UTC().Truncate(timeResolution), "", id)
}

func (r outboxRepo) MarkAttempt(ctx context.Context, id int64, attempts int, next time.Time, lastErr string) error {
	status := OutboxPending
	if next.IsZero() {
		status = OutboxFailed
		next = r.s.now()
	}
	return r.s.execOne(ctx,
		`UPDATE outbox SET status = ?, attempts = ?, next_attempt_at = ?, last_error = ? WHERE id = ?`,
		status, attempts, next.UTC().Truncate(timeResolution), lastErr, id)
}

func (r outboxRepo) List(ctx context.Context, status OutboxStatus) ([]OutboxMessage, error) {
	q := `SELECT ` + outboxColumns + ` FROM outbox`
	var args []any
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY id DESC`
	rows, err := r.s.query(ctx, q, args...)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()
	return collectOutbox(rows)
}

type rowsScanner interface {
	scanner
	Next() bool
	Err() error
}

func collectOutbox(rows rowsScanner) ([]OutboxMessage, error) {
	out := []OutboxMessage{}
	for rows.Next() {
		m, err := scanOutbox(rows)
		if err != nil {
			return nil, dbError(err)
		}
		out = append(out, m)
	}
	return out, dbError(rows.Err())
}
