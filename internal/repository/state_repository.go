package repository

import (
	"database/sql"
	"fmt"
	"strconv"
)

const lastScanTimeKey = "last_scan_time"

// StateRepository persists scan bookkeeping: the last successful scan time
// and the dirty-day work queue fed by hide/delete events
type StateRepository struct {
	db *sql.DB
}

// NewStateRepository creates a new state repository
func NewStateRepository(db *sql.DB) *StateRepository {
	return &StateRepository{db: db}
}

// LastScanTime returns the ms timestamp of the last completed scan, zero when
// no scan has finished yet
func (r *StateRepository) LastScanTime() (int64, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM scan_meta WHERE key = ?", lastScanTimeKey).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get last scan time: %w", err)
	}

	ts, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse last scan time %q: %w", value, err)
	}
	return ts, nil
}

// SetLastScanTime advances the last scan time. Only called after a scan
// completes without a fatal error.
func (r *StateRepository) SetLastScanTime(tsMs int64) error {
	query := `
		INSERT INTO scan_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := r.db.Exec(query, lastScanTimeKey, strconv.FormatInt(tsMs, 10)); err != nil {
		return fmt.Errorf("failed to set last scan time: %w", err)
	}
	return nil
}

// MarkDirty records that a day's persisted counts may be stale
func (r *StateRepository) MarkDirty(dayKey string, markedAtMs int64) error {
	query := `
		INSERT INTO dirty_days (day_key, marked_at) VALUES (?, ?)
		ON CONFLICT(day_key) DO UPDATE SET marked_at = excluded.marked_at
	`
	if _, err := r.db.Exec(query, dayKey, markedAtMs); err != nil {
		return fmt.Errorf("failed to mark day dirty: %w", err)
	}
	return nil
}

// ListDirty returns the queued dirty days, oldest mark first
func (r *StateRepository) ListDirty() ([]string, error) {
	rows, err := r.db.Query("SELECT day_key FROM dirty_days ORDER BY marked_at, day_key")
	if err != nil {
		return nil, fmt.Errorf("failed to list dirty days: %w", err)
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("failed to scan dirty day: %w", err)
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

// ClearDirty removes a day from the queue once it has been reconciled
func (r *StateRepository) ClearDirty(dayKey string) error {
	if _, err := r.db.Exec("DELETE FROM dirty_days WHERE day_key = ?", dayKey); err != nil {
		return fmt.Errorf("failed to clear dirty day: %w", err)
	}
	return nil
}
