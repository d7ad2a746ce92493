package repository

import (
	"database/sql"
	"fmt"

	"github.com/lumapix/moments-backend/internal/database"
	"github.com/lumapix/moments-backend/internal/models"
	"github.com/lumapix/moments-backend/internal/spatial"
)

// MediaRepository handles database operations for media items
type MediaRepository struct {
	db *sql.DB
}

// NewMediaRepository creates a new media repository
func NewMediaRepository(db *sql.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

const mediaColumns = `
	id, kind, captured_at, day_key, latitude, longitude,
	size_bytes, width, height, duration_seconds, cluster_ref, hidden, modified_at
`

// UpsertBatch inserts or updates a batch of media items as one transaction so
// a crash mid-scan never leaves a batch half written. Capture fields are
// refreshed from the source; the organizational overlay (cluster_ref, hidden)
// of an existing row is preserved.
func (r *MediaRepository) UpsertBatch(items []*models.MediaItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO media_items (
			id, kind, captured_at, day_key, latitude, longitude,
			size_bytes, width, height, duration_seconds, cluster_ref, hidden, modified_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, 0, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			captured_at = excluded.captured_at,
			day_key = excluded.day_key,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			size_bytes = excluded.size_bytes,
			width = excluded.width,
			height = excluded.height,
			duration_seconds = excluded.duration_seconds,
			modified_at = excluded.modified_at,
			updated_at = CURRENT_TIMESTAMP
	`

	return database.Transaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, item := range items {
			_, err := stmt.Exec(
				item.ID, item.Kind, item.CapturedAt, item.DayKey,
				item.Latitude, item.Longitude,
				item.SizeBytes, item.Width, item.Height, item.DurationSeconds,
				item.ModifiedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to upsert media item %s: %w", item.ID, err)
			}
		}
		return nil
	})
}

// GetByID retrieves a media item by id; returns nil when not found
func (r *MediaRepository) GetByID(id string) (*models.MediaItem, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_items WHERE id = ?`

	item, err := scanMediaItem(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media item: %w", err)
	}
	return item, nil
}

// ListByDay retrieves a day's items in capture order. Hidden items are
// excluded unless includeHidden is set.
func (r *MediaRepository) ListByDay(dayKey string, includeHidden bool) ([]*models.MediaItem, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_items WHERE day_key = ?`
	if !includeHidden {
		query += " AND hidden = 0"
	}
	query += " ORDER BY captured_at, id"

	return r.list(query, dayKey)
}

// ListByCluster retrieves the non-hidden members of a cluster in capture order
func (r *MediaRepository) ListByCluster(clusterID string) ([]*models.MediaItem, error) {
	query := `SELECT ` + mediaColumns + `
		FROM media_items
		WHERE cluster_ref = ? AND hidden = 0
		ORDER BY captured_at, id`

	return r.list(query, clusterID)
}

// ListByDayAndBounds retrieves a day's non-hidden geotagged items inside a
// bounding box. Used by the repair pass to find candidate members; callers do
// the exact distance check.
func (r *MediaRepository) ListByDayAndBounds(dayKey string, box spatial.BoundingBox) ([]*models.MediaItem, error) {
	query := `SELECT ` + mediaColumns + `
		FROM media_items
		WHERE day_key = ? AND hidden = 0
		  AND latitude IS NOT NULL AND longitude IS NOT NULL
		  AND latitude BETWEEN ? AND ?
		  AND longitude BETWEEN ? AND ?
		ORDER BY captured_at, id`

	return r.list(query, dayKey, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
}

// CountVisibleByDay counts a day's non-hidden items
func (r *MediaRepository) CountVisibleByDay(dayKey string) (int, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM media_items WHERE day_key = ? AND hidden = 0", dayKey,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count items for day %s: %w", dayKey, err)
	}
	return count, nil
}

// CountVisibleByCluster counts the non-hidden items referencing a cluster
func (r *MediaRepository) CountVisibleByCluster(clusterID string) (int, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM media_items WHERE cluster_ref = ? AND hidden = 0", clusterID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count cluster members: %w", err)
	}
	return count, nil
}

// SetHidden toggles the soft-delete flag of a media item
func (r *MediaRepository) SetHidden(id string, hidden bool) error {
	result, err := r.db.Exec(
		"UPDATE media_items SET hidden = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		hidden, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update hidden flag: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("media item not found: %s", id)
	}
	return nil
}

// SetClusterRef points a set of items at a cluster (or clears the reference
// when clusterID is nil)
func (r *MediaRepository) SetClusterRef(ids []string, clusterID *string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders, args := buildInArgs(ids)
	args = append([]interface{}{clusterID}, args...)

	query := fmt.Sprintf(
		"UPDATE media_items SET cluster_ref = ?, updated_at = CURRENT_TIMESTAMP WHERE id IN (%s)",
		placeholders,
	)
	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to set cluster ref: %w", err)
	}
	return nil
}

// ClearAllClusterRefs resets every item's cluster assignment. Called before a
// full scan so stale geometry never mixes with fresh results.
func (r *MediaRepository) ClearAllClusterRefs() error {
	if _, err := r.db.Exec("UPDATE media_items SET cluster_ref = NULL"); err != nil {
		return fmt.Errorf("failed to clear cluster refs: %w", err)
	}
	return nil
}

// Delete removes media item rows by id
func (r *MediaRepository) Delete(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders, args := buildInArgs(ids)
	query := fmt.Sprintf("DELETE FROM media_items WHERE id IN (%s)", placeholders)
	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to delete media items: %w", err)
	}
	return nil
}

// DayKeys returns the distinct day keys present in the library, newest first
func (r *MediaRepository) DayKeys() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT day_key FROM media_items ORDER BY day_key DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query day keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan day key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (r *MediaRepository) list(query string, args ...interface{}) ([]*models.MediaItem, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query media items: %w", err)
	}
	defer rows.Close()

	var items []*models.MediaItem
	for rows.Next() {
		item, err := scanMediaItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMediaItem(row rowScanner) (*models.MediaItem, error) {
	item := &models.MediaItem{}
	var lat, lon, duration sql.NullFloat64
	var clusterRef sql.NullString

	err := row.Scan(
		&item.ID, &item.Kind, &item.CapturedAt, &item.DayKey,
		&lat, &lon,
		&item.SizeBytes, &item.Width, &item.Height, &duration,
		&clusterRef, &item.Hidden, &item.ModifiedAt,
	)
	if err != nil {
		return nil, err
	}

	if lat.Valid && lon.Valid {
		item.Latitude = &lat.Float64
		item.Longitude = &lon.Float64
	}
	if duration.Valid {
		item.DurationSeconds = &duration.Float64
	}
	if clusterRef.Valid {
		item.ClusterRef = &clusterRef.String
	}
	return item, nil
}

// buildInArgs builds the placeholder list and args for an IN clause
func buildInArgs(ids []string) (string, []interface{}) {
	placeholders := ""
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args[i] = id
	}
	return placeholders, args
}
