package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lumapix/moments-backend/internal/cluster"
	"github.com/lumapix/moments-backend/internal/database"
	"github.com/lumapix/moments-backend/internal/labeling"
	"github.com/lumapix/moments-backend/internal/models"
	"github.com/lumapix/moments-backend/internal/repository"
)

// fakeSource is an in-memory MediaSource with injectable failures. When gate
// is set, FetchBatch blocks on it for any offset past the first batch so tests
// can hold a scan in its background phase. honorCtx makes every call fail once
// its context is done, like a source backed by real I/O would.
type fakeSource struct {
	mu          sync.Mutex
	items       []*models.MediaItem
	countErr    error
	fetchErr    error
	modifiedErr error
	failDelete  map[string]bool
	gate        chan struct{}
	honorCtx    bool
}

func (f *fakeSource) Count(ctx context.Context) (int, error) {
	if f.honorCtx {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
	}
	if f.countErr != nil {
		return 0, f.countErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items), nil
}

func (f *fakeSource) FetchBatch(ctx context.Context, offset, limit int) ([]*models.MediaItem, error) {
	if offset > 0 && f.gate != nil {
		<-f.gate
	}
	if f.honorCtx {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if offset < 0 || offset >= len(f.items) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.items) {
		end = len(f.items)
	}
	return f.items[offset:end], nil
}

func (f *fakeSource) FetchModifiedSince(ctx context.Context, sinceMs int64) ([]*models.MediaItem, error) {
	if f.honorCtx {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	if f.modifiedErr != nil {
		return nil, f.modifiedErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.MediaItem
	for _, item := range f.items {
		if item.ModifiedAt > sinceMs {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeSource) DeleteItems(ctx context.Context, ids []string) (*models.DeleteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	present := make(map[string]bool, len(f.items))
	for _, item := range f.items {
		present[item.ID] = true
	}

	result := &models.DeleteResult{}
	remove := make(map[string]bool)
	for _, id := range ids {
		if present[id] && !f.failDelete[id] {
			result.DeletedIDs = append(result.DeletedIDs, id)
			remove[id] = true
		} else {
			result.FailedIDs = append(result.FailedIDs, id)
		}
	}

	kept := f.items[:0]
	for _, item := range f.items {
		if !remove[item.ID] {
			kept = append(kept, item)
		}
	}
	f.items = kept
	return result, nil
}

func (f *fakeSource) add(items ...*models.MediaItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, items...)
}

// fixedPlaces resolves every coordinate to the same label
type fixedPlaces struct{ label string }

func (p fixedPlaces) ResolveLabel(ctx context.Context, lat, lon float64) string {
	return p.label
}

type testEnv struct {
	db        *sql.DB
	media     *repository.MediaRepository
	clusters  *repository.ClusterRepository
	dayGroups *repository.DayGroupRepository
	state     *repository.StateRepository
	src       *fakeSource
	index     *IndexService
	library   *LibraryService
	checker   *ConsistencyService
}

func newTestEnv(t *testing.T, batchSize int) *testEnv {
	t.Helper()

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "moments.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		db:        db,
		media:     repository.NewMediaRepository(db),
		clusters:  repository.NewClusterRepository(db),
		dayGroups: repository.NewDayGroupRepository(db),
		state:     repository.NewStateRepository(db),
		src:       &fakeSource{},
	}

	places := fixedPlaces{label: "Futian District"}
	labeler := labeling.NewLabeler(places, time.UTC)
	strategy := cluster.NewDBSCANStrategy(2, 0)

	env.index = NewIndexService(
		env.src, env.media, env.clusters, env.dayGroups, env.state,
		labeler, places, strategy, batchSize,
	)
	env.library = NewLibraryService(env.src, env.media, env.clusters, env.dayGroups, env.state)
	env.checker = NewConsistencyService(env.media, env.clusters, env.dayGroups, env.state)
	return env
}

// seedTwoDays loads the standard fixture: day one has three geotagged items in
// one spot plus one item without GPS, day two has two geotagged items
func (e *testEnv) seedTwoDays() {
	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	e.src.add(
		geoItem("p1", 22.5430, 114.0580, day1.UnixMilli()),
		geoItem("p2", 22.5433, 114.0580, day1.Add(time.Minute).UnixMilli()),
		geoItem("p3", 22.5430, 114.0583, day1.Add(2*time.Minute).UnixMilli()),
		plainItem("p4", day1.Add(3*time.Minute).UnixMilli()),
		geoItem("q1", 39.9042, 116.4074, day2.UnixMilli()),
		geoItem("q2", 39.9045, 116.4074, day2.Add(time.Minute).UnixMilli()),
	)
}

func (e *testEnv) runFullScan(t *testing.T) {
	t.Helper()
	done := make(chan error, 1)
	err := e.index.StartFullScan(context.Background(), ScanCallbacks{
		OnComplete: func(err error) { done <- err },
	})
	require.NoError(t, err)
	require.NoError(t, waitScan(t, done))
}

func (e *testEnv) runIncrementalScan(t *testing.T) {
	t.Helper()
	done := make(chan error, 1)
	err := e.index.StartIncrementalScan(context.Background(), ScanCallbacks{
		OnComplete: func(err error) { done <- err },
	})
	require.NoError(t, err)
	require.NoError(t, waitScan(t, done))
}

func waitScan(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("scan did not complete in time")
		return nil
	}
}

// densityCluster returns the day's one real (non-sentinel) cluster
func (e *testEnv) densityCluster(t *testing.T, dayKey string) *models.Cluster {
	t.Helper()
	clusters, err := e.clusters.ListByDay(dayKey)
	require.NoError(t, err)
	for _, c := range clusters {
		if c.HasCentroid() {
			return c
		}
	}
	t.Fatalf("no centroided cluster for day %s", dayKey)
	return nil
}

func geoItem(id string, lat, lon float64, capturedAtMs int64) *models.MediaItem {
	return &models.MediaItem{
		ID:         id,
		Kind:       models.MediaKindPhoto,
		CapturedAt: capturedAtMs,
		Latitude:   &lat,
		Longitude:  &lon,
		ModifiedAt: capturedAtMs,
	}
}

func plainItem(id string, capturedAtMs int64) *models.MediaItem {
	return &models.MediaItem{
		ID:         id,
		Kind:       models.MediaKindPhoto,
		CapturedAt: capturedAtMs,
		ModifiedAt: capturedAtMs,
	}
}
