package geocode

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lumapix/moments-backend/internal/models"
)

// DefaultTTL is how long a cached reverse-geocode result stays fresh
const DefaultTTL = 7 * 24 * time.Hour

// coordPrecision rounds coordinates to ~110m cells so nearby lookups share an
// entry
const coordPrecision = 3

// Place is a resolved place name
type Place struct {
	Label string // Short human label, e.g. "Futian District"
	Name  string // Full place name, optional
}

// Provider is the external reverse-geocode service. Resolve returns (nil, nil)
// when the coordinate is unknown; callers tolerate both nil and errors.
type Provider interface {
	Resolve(ctx context.Context, lat, lon float64) (*Place, error)
}

// Store persists cache entries. The geocode repository satisfies this.
type Store interface {
	Get(key string) (*models.GeocodeCacheEntry, error)
	Put(entry *models.GeocodeCacheEntry) error
}

// CoordKey rounds a coordinate to fixed precision and formats it as the cache
// key
func CoordKey(lat, lon float64) string {
	return fmt.Sprintf("%.*f,%.*f", coordPrecision, lat, coordPrecision, lon)
}

// FallbackLabel is the raw-coordinate text used when no place name is
// available
func FallbackLabel(lat, lon float64) string {
	return fmt.Sprintf("%.3f, %.3f", lat, lon)
}

// Cache shields the provider from repeated lookups. Entries older than the
// TTL are ignored and refreshed, not eagerly evicted.
type Cache struct {
	store    Store
	provider Provider
	ttl      time.Duration
	now      func() time.Time
}

// NewCache creates a geocode cache. ttl <= 0 selects DefaultTTL.
func NewCache(store Store, provider Provider, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, provider: provider, ttl: ttl, now: time.Now}
}

// ResolveLabel returns a place label for the coordinate. Provider failures are
// non-fatal: the raw-coordinate text is returned instead and nothing is
// cached, so a later lookup retries the provider.
func (c *Cache) ResolveLabel(ctx context.Context, lat, lon float64) string {
	key := CoordKey(lat, lon)

	entry, err := c.store.Get(key)
	if err != nil {
		log.Printf("[GeocodeCache] failed to read entry %s: %v", key, err)
	} else if entry != nil && !c.expired(entry) {
		return entry.Label
	}

	place, err := c.provider.Resolve(ctx, lat, lon)
	if err != nil || place == nil || place.Label == "" {
		if err != nil {
			log.Printf("[GeocodeCache] provider lookup failed for %s: %v", key, err)
		}
		return FallbackLabel(lat, lon)
	}

	fresh := &models.GeocodeCacheEntry{
		CoordKey:  key,
		Label:     place.Label,
		PlaceName: place.Name,
		CachedAt:  c.now().UnixMilli(),
	}
	if err := c.store.Put(fresh); err != nil {
		log.Printf("[GeocodeCache] failed to store entry %s: %v", key, err)
	}

	return place.Label
}

func (c *Cache) expired(entry *models.GeocodeCacheEntry) bool {
	age := c.now().Sub(time.UnixMilli(entry.CachedAt))
	return age > c.ttl
}

// NoopProvider never resolves anything; useful when running fully offline.
// Lookups fall back to raw-coordinate labels.
type NoopProvider struct{}

// Resolve always reports the coordinate as unknown
func (NoopProvider) Resolve(ctx context.Context, lat, lon float64) (*Place, error) {
	return nil, nil
}
