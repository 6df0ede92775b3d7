package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

type fileRecord struct {
	Entry
	Pending   bool      `json:"pending,omitempty"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// FileLedger keeps the ledger in a JSON file. It only guards against
// duplicates within one process; use sqlite, postgres or redis when several
// instances share a schedule.
type FileLedger struct {
	filePath string
	ttl      time.Duration
	items    map[string]fileRecord
	mu       sync.Mutex
	now      func() time.Time
	log      *slog.Logger
}

func NewFileLedger(filePath string, ttlHours int, log *slog.Logger) *FileLedger {
	if log == nil {
		log = slog.Default()
	}
	return &FileLedger{
		filePath: filePath,
		ttl:      ttlDuration(ttlHours),
		items:    make(map[string]fileRecord),
		now:      time.Now,
		log:      log,
	}
}

// Load reads the file, dropping entries older than the TTL. A missing file is
// an empty ledger.
func (fl *FileLedger) Load() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	data, err := os.ReadFile(fl.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read ledger file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var records []fileRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to unmarshal ledger: %w", err)
	}
	for _, r := range records {
		fl.items[r.Day] = r
	}
	fl.cleanup()
	fl.log.Debug("ledger loaded", slog.Int("entries", len(fl.items)))
	return nil
}

func (fl *FileLedger) Claim(ctx context.Context, day string) (bool, error) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	now := fl.now()
	if r, exists := fl.items[day]; exists {
		if !r.Pending || now.Sub(r.ClaimedAt) < claimTimeout {
			return false, nil
		}
		fl.log.Warn("taking over stale claim", slog.String("day", day), slog.Time("claimed_at", r.ClaimedAt))
	}

	fl.items[day] = fileRecord{Entry: Entry{Day: day}, Pending: true, ClaimedAt: now}
	if err := fl.save(); err != nil {
		delete(fl.items, day)
		return false, err
	}
	return true, nil
}

func (fl *FileLedger) Complete(ctx context.Context, e Entry) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if e.PostedAt.IsZero() {
		e.PostedAt = fl.now()
	}
	r := fl.items[e.Day]
	r.Entry = e
	r.Pending = false
	if r.ClaimedAt.IsZero() {
		r.ClaimedAt = e.PostedAt
	}
	fl.items[e.Day] = r
	fl.cleanup()
	return fl.save()
}

func (fl *FileLedger) Release(ctx context.Context, day string) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if r, exists := fl.items[day]; !exists || !r.Pending {
		return nil
	}
	delete(fl.items, day)
	return fl.save()
}

func (fl *FileLedger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()

	entries := make([]Entry, 0, len(fl.items))
	for _, r := range fl.items {
		if !r.Pending {
			entries = append(entries, r.Entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].PostedAt.After(entries[j].PostedAt)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (fl *FileLedger) Close() error { return nil }

// cleanup drops posted entries older than the TTL. Callers hold mu.
func (fl *FileLedger) cleanup() {
	if fl.ttl <= 0 {
		return
	}
	cutoff := fl.now().Add(-fl.ttl)
	for day, r := range fl.items {
		if !r.Pending && r.PostedAt.Before(cutoff) {
			delete(fl.items, day)
		}
	}
}

// save writes the ledger atomically. Callers hold mu.
func (fl *FileLedger) save() error {
	records := make([]fileRecord, 0, len(fl.items))
	for _, r := range fl.items {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Day < records[j].Day })

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fl.filePath), ".ledger-*.json")
	if err != nil {
		return fmt.Errorf("failed to write ledger file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write ledger file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write ledger file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fl.filePath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}
	return nil
}
