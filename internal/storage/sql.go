package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const (
	statusPending = "pending"
	statusPosted  = "posted"
)

// sqlLedger implements Ledger for database/sql drivers. Queries are written with
// "?" placeholders and rebound for drivers that number them.
type sqlLedger struct {
	db       *sql.DB
	numbered bool // $1, $2, ... placeholders
	ttl      time.Duration
	now      func() time.Time
	log      *slog.Logger
}

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS posted_days (
	day        VARCHAR(10) PRIMARY KEY,
	status     VARCHAR(16) NOT NULL,
	run_id     VARCHAR(64) NOT NULL DEFAULT '',
	year       INTEGER NOT NULL DEFAULT 0,
	idx        INTEGER NOT NULL DEFAULT 0,
	post_text  TEXT NOT NULL DEFAULT '',
	trigger_by VARCHAR(32) NOT NULL DEFAULT '',
	publishers TEXT NOT NULL DEFAULT '',
	claimed_at BIGINT NOT NULL,
	posted_at  BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_posted_days_posted_at ON posted_days(posted_at);
`

func (l *sqlLedger) q(query string) string {
	if !l.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (l *sqlLedger) initSchema(ctx context.Context) error {
	// sqlite's Exec handles several statements, lib/pq too when no args are passed
	if _, err := l.db.ExecContext(ctx, ledgerSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (l *sqlLedger) Claim(ctx context.Context, day string) (bool, error) {
	now := l.now()

	stale := now.Add(-claimTimeout).Unix()
	res, err := l.db.ExecContext(ctx,
		l.q(`DELETE FROM posted_days WHERE day = ? AND status = ? AND claimed_at < ?`),
		day, statusPending, stale)
	if err != nil {
		return false, fmt.Errorf("failed to clear stale claim: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		l.log.Warn("took over stale claim", slog.String("day", day))
	}

	res, err = l.db.ExecContext(ctx,
		l.q(`INSERT INTO posted_days (day, status, claimed_at) VALUES (?, ?, ?) ON CONFLICT (day) DO NOTHING`),
		day, statusPending, now.Unix())
	if err != nil {
		return false, fmt.Errorf("failed to claim day %s: %w", day, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to claim day %s: %w", day, err)
	}
	return n == 1, nil
}

func (l *sqlLedger) Complete(ctx context.Context, e Entry) error {
	if e.PostedAt.IsZero() {
		e.PostedAt = l.now()
	}
	query := `
		INSERT INTO posted_days (day, status, run_id, year, idx, post_text, trigger_by, publishers, claimed_at, posted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (day) DO UPDATE SET
			status = EXCLUDED.status,
			run_id = EXCLUDED.run_id,
			year = EXCLUDED.year,
			idx = EXCLUDED.idx,
			post_text = EXCLUDED.post_text,
			trigger_by = EXCLUDED.trigger_by,
			publishers = EXCLUDED.publishers,
			posted_at = EXCLUDED.posted_at
	`
	_, err := l.db.ExecContext(ctx, l.q(query),
		e.Day, statusPosted, e.RunID, e.Year, e.Index, e.Text, e.Trigger,
		strings.Join(e.Publishers, ","), e.PostedAt.Unix(), e.PostedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to mark day %s as posted: %w", e.Day, err)
	}

	if err := l.cleanup(ctx); err != nil {
		l.log.Warn("ledger cleanup failed", slog.Any("error", err))
	}
	return nil
}

func (l *sqlLedger) Release(ctx context.Context, day string) error {
	_, err := l.db.ExecContext(ctx,
		l.q(`DELETE FROM posted_days WHERE day = ? AND status = ?`), day, statusPending)
	if err != nil {
		return fmt.Errorf("failed to release day %s: %w", day, err)
	}
	return nil
}

func (l *sqlLedger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := l.db.QueryContext(ctx, l.q(`
		SELECT day, run_id, year, idx, post_text, trigger_by, publishers, posted_at
		FROM posted_days
		WHERE status = ?
		ORDER BY posted_at DESC
		LIMIT ?
	`), statusPosted, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent posts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			publishers string
			postedAt   int64
		)
		if err := rows.Scan(&e.Day, &e.RunID, &e.Year, &e.Index, &e.Text, &e.Trigger, &publishers, &postedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		if publishers != "" {
			e.Publishers = strings.Split(publishers, ",")
		}
		e.PostedAt = time.Unix(postedAt, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (l *sqlLedger) cleanup(ctx context.Context) error {
	if l.ttl <= 0 {
		return nil
	}
	cutoff := l.now().Add(-l.ttl).Unix()
	res, err := l.db.ExecContext(ctx,
		l.q(`DELETE FROM posted_days WHERE status = ? AND posted_at < ?`), statusPosted, cutoff)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		l.log.Info("cleaned up old ledger entries", slog.Int64("rows", n))
	}
	return nil
}

func (l *sqlLedger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}
