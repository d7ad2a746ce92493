package models

// GeocodeCacheEntry is a cached reverse-geocode lookup, keyed by the
// coordinate rounded to fixed precision. Entries older than the cache TTL
// are ignored and refreshed rather than eagerly evicted.
type GeocodeCacheEntry struct {
	CoordKey  string `json:"coordKey" db:"coord_key"`
	Label     string `json:"label" db:"label"`
	PlaceName string `json:"placeName,omitempty" db:"place_name"`
	CachedAt  int64  `json:"cachedAt" db:"cached_at"` // Unix timestamp in milliseconds
}
