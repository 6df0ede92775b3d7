package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// PostgresLedger stores the ledger in PostgreSQL. The primary key on day makes
// Claim safe across instances.
type PostgresLedger struct {
	*sqlLedger
}

func NewPostgresLedger(ctx context.Context, connectionString string, ttlHours int, log *slog.Logger) (*PostgresLedger, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	l := &sqlLedger{db: db, numbered: true, ttl: ttlDuration(ttlHours), now: time.Now, log: log}
	if err := l.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Info("postgres ledger connected")
	return &PostgresLedger{l}, nil
}
