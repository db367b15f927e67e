// package repositories provides persistence layer implementations for the model types.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify-mcp/internal/executor"
	"github.com/desertthunder/spotify-mcp/internal/models"
	"github.com/desertthunder/spotify-mcp/internal/shared"
)

const maxMessageLen = 500

// CallHistoryRepository persists [models.CallEntry] rows in the call_history table.
type CallHistoryRepository struct {
	db     *sql.DB
	logger *log.Logger
}

// NewCallHistoryRepository creates a new CallHistoryRepository. A nil logger discards output.
func NewCallHistoryRepository(db *sql.DB, logger *log.Logger) *CallHistoryRepository {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &CallHistoryRepository{db: db, logger: logger}
}

// Record inserts entry, generating its ID when empty.
func (r *CallHistoryRepository) Record(ctx context.Context, entry models.CallEntry) error {
	if entry.ID == "" {
		entry.ID = shared.GenerateID()
	}
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO call_history (id, label, attempts, refreshes, status_code, outcome, message, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Label,
		entry.Attempts,
		entry.Refreshes,
		entry.StatusCode,
		string(entry.Outcome),
		truncate(entry.Message, maxMessageLen),
		entry.Duration.Milliseconds(),
		entry.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert call entry: %w", err)
	}
	return nil
}

// Recent lists up to limit entries, newest first.
func (r *CallHistoryRepository) Recent(ctx context.Context, limit int) ([]models.CallEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, label, attempts, refreshes, status_code, outcome, message, duration_ms, started_at
		FROM call_history
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query call history: %w", err)
	}
	defer rows.Close()

	var entries []models.CallEntry
	for rows.Next() {
		var (
			e          models.CallEntry
			outcome    string
			durationMS int64
		)
		if err := rows.Scan(&e.ID, &e.Label, &e.Attempts, &e.Refreshes, &e.StatusCode, &outcome, &e.Message, &durationMS, &e.StartedAt); err != nil {
			return nil, fmt.Errorf("failed to scan call entry: %w", err)
		}
		e.Outcome = models.Outcome(outcome)
		e.Duration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate call history: %w", err)
	}
	return entries, nil
}

// CallFinished journals rec. Storage failures are logged and never reach the tool caller.
func (r *CallHistoryRepository) CallFinished(ctx context.Context, rec executor.CallRecord) {
	if err := r.Record(context.WithoutCancel(ctx), EntryFromRecord(rec)); err != nil {
		r.logger.Warn("failed to record call", "label", rec.Label, "err", err)
	}
}

// EntryFromRecord maps an executor record to a journal entry.
func EntryFromRecord(rec executor.CallRecord) models.CallEntry {
	entry := models.CallEntry{
		Label:      rec.Label,
		Attempts:   rec.Attempts,
		Refreshes:  rec.Refreshes,
		StatusCode: rec.StatusCode,
		Outcome:    models.Outcome(rec.Outcome()),
		Duration:   rec.Duration,
		StartedAt:  rec.StartedAt,
	}
	if rec.Err != nil {
		entry.Message = rec.Err.Error()
	}
	return entry
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	_ models.Journal    = (*CallHistoryRepository)(nil)
	_ executor.Observer = (*CallHistoryRepository)(nil)
)
