package repository

import (
	"database/sql"
	"fmt"

	"github.com/lumapix/moments-backend/internal/models"
)

// GeocodeRepository handles database operations for the geocode cache
type GeocodeRepository struct {
	db *sql.DB
}

// NewGeocodeRepository creates a new geocode repository
func NewGeocodeRepository(db *sql.DB) *GeocodeRepository {
	return &GeocodeRepository{db: db}
}

// Get retrieves a cache entry by coordinate key; returns nil when not found
func (r *GeocodeRepository) Get(key string) (*models.GeocodeCacheEntry, error) {
	query := `
		SELECT coord_key, label, place_name, cached_at
		FROM geocode_cache
		WHERE coord_key = ?
	`

	entry := &models.GeocodeCacheEntry{}
	var placeName sql.NullString
	err := r.db.QueryRow(query, key).Scan(&entry.CoordKey, &entry.Label, &placeName, &entry.CachedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get geocode entry: %w", err)
	}
	if placeName.Valid {
		entry.PlaceName = placeName.String
	}
	return entry, nil
}

// Put inserts or refreshes a cache entry
func (r *GeocodeRepository) Put(entry *models.GeocodeCacheEntry) error {
	query := `
		INSERT INTO geocode_cache (coord_key, label, place_name, cached_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(coord_key) DO UPDATE SET
			label = excluded.label,
			place_name = excluded.place_name,
			cached_at = excluded.cached_at
	`

	_, err := r.db.Exec(query, entry.CoordKey, entry.Label, nullableString(entry.PlaceName), entry.CachedAt)
	if err != nil {
		return fmt.Errorf("failed to put geocode entry: %w", err)
	}
	return nil
}

// PurgeOlderThan removes entries cached before the cutoff (ms). Expired
// entries are already ignored on read; this just keeps the table from
// growing without bound.
func (r *GeocodeRepository) PurgeOlderThan(cutoffMs int64) (int64, error) {
	result, err := r.db.Exec("DELETE FROM geocode_cache WHERE cached_at < ?", cutoffMs)
	if err != nil {
		return 0, fmt.Errorf("failed to purge geocode cache: %w", err)
	}
	return result.RowsAffected()
}
