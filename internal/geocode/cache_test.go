package geocode

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumapix/moments-backend/internal/models"
)

type memStore struct {
	entries map[string]*models.GeocodeCacheEntry
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]*models.GeocodeCacheEntry)}
}

func (s *memStore) Get(key string) (*models.GeocodeCacheEntry, error) {
	return s.entries[key], nil
}

func (s *memStore) Put(entry *models.GeocodeCacheEntry) error {
	s.entries[entry.CoordKey] = entry
	return nil
}

type stubProvider struct {
	place *Place
	err   error
	calls int
}

func (p *stubProvider) Resolve(ctx context.Context, lat, lon float64) (*Place, error) {
	p.calls++
	return p.place, p.err
}

func TestCoordKeyRounding(t *testing.T) {
	assert.Equal(t, "22.543,114.058", CoordKey(22.54312, 114.05789))
	// Nearby coordinates share a key
	assert.Equal(t, CoordKey(22.5431, 114.0579), CoordKey(22.5434, 114.0581))
}

func TestResolveLabelMissCallsProviderAndCaches(t *testing.T) {
	store := newMemStore()
	provider := &stubProvider{place: &Place{Label: "Futian District", Name: "Futian, Shenzhen"}}
	cache := NewCache(store, provider, DefaultTTL)

	label := cache.ResolveLabel(context.Background(), 22.5431, 114.0579)
	assert.Equal(t, "Futian District", label)
	assert.Equal(t, 1, provider.calls)

	entry := store.entries[CoordKey(22.5431, 114.0579)]
	require.NotNil(t, entry)
	assert.Equal(t, "Futian District", entry.Label)
	assert.Equal(t, "Futian, Shenzhen", entry.PlaceName)
}

func TestResolveLabelHitSkipsProvider(t *testing.T) {
	store := newMemStore()
	provider := &stubProvider{place: &Place{Label: "Futian District"}}
	cache := NewCache(store, provider, DefaultTTL)

	cache.ResolveLabel(context.Background(), 22.5431, 114.0579)
	cache.ResolveLabel(context.Background(), 22.5431, 114.0579)
	assert.Equal(t, 1, provider.calls)
}

func TestResolveLabelStaleEntryRefreshed(t *testing.T) {
	store := newMemStore()
	provider := &stubProvider{place: &Place{Label: "New Label"}}
	cache := NewCache(store, provider, DefaultTTL)

	key := CoordKey(22.5431, 114.0579)
	store.entries[key] = &models.GeocodeCacheEntry{
		CoordKey: key,
		Label:    "Old Label",
		CachedAt: time.Now().Add(-8 * 24 * time.Hour).UnixMilli(),
	}

	label := cache.ResolveLabel(context.Background(), 22.5431, 114.0579)
	assert.Equal(t, "New Label", label)
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, "New Label", store.entries[key].Label)
}

func TestResolveLabelProviderFailureFallsBack(t *testing.T) {
	store := newMemStore()
	provider := &stubProvider{err: errors.New("rate limited")}
	cache := NewCache(store, provider, DefaultTTL)

	label := cache.ResolveLabel(context.Background(), 22.5431, 114.0579)
	assert.Equal(t, "22.543, 114.058", label)

	// Failures are not cached, so the provider is retried next time
	cache.ResolveLabel(context.Background(), 22.5431, 114.0579)
	assert.Equal(t, 2, provider.calls)
	assert.Empty(t, store.entries)
}

func TestResolveLabelUnknownPlaceFallsBack(t *testing.T) {
	cache := NewCache(newMemStore(), NoopProvider{}, DefaultTTL)
	label := cache.ResolveLabel(context.Background(), 22.5431, 114.0579)
	assert.Equal(t, "22.543, 114.058", label)
}
