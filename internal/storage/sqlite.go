package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteLedger stores the ledger in a local SQLite database. Use ":memory:"
// for a throwaway ledger.
type SQLiteLedger struct {
	*sqlLedger
}

func NewSQLiteLedger(ctx context.Context, dsn string, ttlHours int, log *slog.Logger) (*SQLiteLedger, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one writer; also keeps ":memory:" on a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	l := &sqlLedger{db: db, ttl: ttlDuration(ttlHours), now: time.Now, log: log}
	if err := l.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteLedger{l}, nil
}
