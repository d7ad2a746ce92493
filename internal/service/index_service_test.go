package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumapix/moments-backend/internal/models"
)

// assertDayConsistent checks that a day's cluster member counts add up to its
// visible item count
func assertDayConsistent(t *testing.T, env *testEnv, dayKey string) {
	t.Helper()

	visible, err := env.media.CountVisibleByDay(dayKey)
	require.NoError(t, err)

	clusters, err := env.clusters.ListByDay(dayKey)
	require.NoError(t, err)

	sum := 0
	for _, c := range clusters {
		sum += c.MemberCount
	}
	assert.Equal(t, visible, sum, "cluster member counts should cover day %s", dayKey)
}

func TestFullScanIndexesAllDays(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seedTwoDays()
	env.runFullScan(t)

	groups, err := env.dayGroups.List()
	require.NoError(t, err)
	require.Len(t, groups, 2)

	// Newest first
	assert.Equal(t, "2026-03-02", groups[0].DayKey)
	assert.Equal(t, "2026-03-01", groups[1].DayKey)

	day1 := groups[1]
	assert.Equal(t, "Futian District", day1.MajorityLabel)
	assert.Equal(t, 2, day1.ClusterCount)
	assert.Equal(t, 4, day1.TotalVisibleItems)

	clusters, err := env.clusters.ListByDay("2026-03-01")
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	dense := env.densityCluster(t, "2026-03-01")
	assert.Equal(t, 3, dense.MemberCount)
	assert.Equal(t, "Futian District", dense.Label)

	// The item without GPS lands in the trailing catch-all
	for _, c := range clusters {
		if !c.HasCentroid() {
			assert.Equal(t, models.LabelNoGPS, c.Label)
			assert.Equal(t, 1, c.MemberCount)
		}
	}

	assertDayConsistent(t, env, "2026-03-01")
	assertDayConsistent(t, env, "2026-03-02")

	status := env.index.Status()
	assert.Equal(t, "idle", status.State)
	assert.Empty(t, status.LastError)
	assert.Greater(t, status.LastScanTime, int64(0))
}

func TestFullScanFirstBatchVisibleBeforeReturn(t *testing.T) {
	env := newTestEnv(t, 2)
	env.seedTwoDays()

	var firstBatch bool
	done := make(chan error, 1)
	err := env.index.StartFullScan(context.Background(), ScanCallbacks{
		OnFirstBatch: func() { firstBatch = true },
		OnComplete:   func(err error) { done <- err },
	})
	require.NoError(t, err)

	// The first batch is processed synchronously, so its days are already
	// queryable when StartFullScan returns
	assert.True(t, firstBatch)
	group, err := env.dayGroups.GetByDay("2026-03-01")
	require.NoError(t, err)
	require.NotNil(t, group)

	require.NoError(t, waitScan(t, done))
}

func TestFullScanRejectsConcurrentScan(t *testing.T) {
	env := newTestEnv(t, 2)
	env.seedTwoDays()
	env.src.gate = make(chan struct{})

	done := make(chan error, 1)
	err := env.index.StartFullScan(context.Background(), ScanCallbacks{
		OnComplete: func(err error) { done <- err },
	})
	require.NoError(t, err)

	// The background continuation is parked on the gate
	assert.Equal(t, "background_continuing", env.index.Status().State)
	assert.ErrorIs(t, env.index.StartFullScan(context.Background(), ScanCallbacks{}), ErrScanInProgress)
	assert.ErrorIs(t, env.index.StartIncrementalScan(context.Background(), ScanCallbacks{}), ErrScanInProgress)

	close(env.src.gate)
	require.NoError(t, waitScan(t, done))
	assert.Equal(t, "idle", env.index.Status().State)
}

func TestFullScanProgressNeverDecreases(t *testing.T) {
	env := newTestEnv(t, 2)
	env.seedTwoDays()

	var mu sync.Mutex
	var percents []int
	done := make(chan error, 1)
	err := env.index.StartFullScan(context.Background(), ScanCallbacks{
		OnProgress: func(p models.ScanProgress) {
			mu.Lock()
			percents = append(percents, p.Percent)
			mu.Unlock()
		},
		OnComplete: func(err error) { done <- err },
	})
	require.NoError(t, err)
	require.NoError(t, waitScan(t, done))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, percents)
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1])
	}
	assert.Equal(t, 100, percents[len(percents)-1])
}

func TestFullScanEmptySource(t *testing.T) {
	env := newTestEnv(t, 0)
	env.runFullScan(t)

	status := env.index.Status()
	assert.Equal(t, "idle", status.State)
	require.NotNil(t, status.LastProgress)
	assert.Equal(t, 100, status.LastProgress.Percent)
	assert.Greater(t, status.LastScanTime, int64(0))
}

func TestFullScanSourceFailure(t *testing.T) {
	env := newTestEnv(t, 0)
	cause := errors.New("permission denied")
	env.src.countErr = cause

	err := env.index.StartFullScan(context.Background(), ScanCallbacks{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.ErrorIs(t, err, cause, "the underlying failure stays inspectable")

	status := env.index.Status()
	assert.Equal(t, "idle", status.State)
	assert.NotEmpty(t, status.LastError)
	assert.Zero(t, status.LastScanTime, "a failed scan must not advance the scan time")
}

func TestFullScanOutlivesTriggerContext(t *testing.T) {
	env := newTestEnv(t, 2)
	env.seedTwoDays()
	env.src.honorCtx = true
	env.src.gate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	err := env.index.StartFullScan(ctx, ScanCallbacks{
		OnComplete: func(err error) { done <- err },
	})
	require.NoError(t, err)

	// An HTTP trigger's context is canceled the moment its response is
	// written; the background continuation is still parked on the gate
	cancel()
	close(env.src.gate)

	require.NoError(t, waitScan(t, done))

	status := env.index.Status()
	assert.Equal(t, "idle", status.State)
	assert.Empty(t, status.LastError)
	assert.Greater(t, status.LastScanTime, int64(0))
	assertDayConsistent(t, env, "2026-03-01")
	assertDayConsistent(t, env, "2026-03-02")
}

func TestIncrementalScanOutlivesTriggerContext(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seedTwoDays()
	env.runFullScan(t)
	env.src.honorCtx = true

	day1 := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	fresh := geoItem("p5", 22.5431, 114.0581, day1.UnixMilli())
	fresh.ModifiedAt = time.Now().Add(time.Minute).UnixMilli()
	env.src.add(fresh)

	// Already canceled before the scan even starts
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	err := env.index.StartIncrementalScan(ctx, ScanCallbacks{
		OnComplete: func(err error) { done <- err },
	})
	require.NoError(t, err)
	require.NoError(t, waitScan(t, done))

	group, err := env.dayGroups.GetByDay("2026-03-01")
	require.NoError(t, err)
	require.NotNil(t, group)
	assert.Equal(t, 5, group.TotalVisibleItems)
}

func TestIncrementalScanReclustersModifiedDays(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seedTwoDays()
	env.runFullScan(t)

	// A new capture shows up on day one after the full scan
	day1 := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	fresh := geoItem("p5", 22.5431, 114.0581, day1.UnixMilli())
	fresh.ModifiedAt = time.Now().Add(time.Minute).UnixMilli()
	env.src.add(fresh)

	env.runIncrementalScan(t)

	group, err := env.dayGroups.GetByDay("2026-03-01")
	require.NoError(t, err)
	require.NotNil(t, group)
	assert.Equal(t, 5, group.TotalVisibleItems)

	// The new item joined the existing density cluster rather than forming a
	// second one
	dense := env.densityCluster(t, "2026-03-01")
	assert.Equal(t, 4, dense.MemberCount)
	assertDayConsistent(t, env, "2026-03-01")

	// The untouched day survived unchanged
	assertDayConsistent(t, env, "2026-03-02")
}

func TestIncrementalScanSourceFailureIsSilent(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seedTwoDays()
	env.runFullScan(t)

	before := env.index.Status().LastScanTime
	env.src.modifiedErr = errors.New("permission revoked")

	done := make(chan error, 1)
	err := env.index.StartIncrementalScan(context.Background(), ScanCallbacks{
		OnComplete: func(err error) { done <- err },
	})
	require.NoError(t, err)
	assert.NoError(t, waitScan(t, done), "incremental source failure should not surface an error")

	status := env.index.Status()
	assert.Equal(t, "idle", status.State)
	assert.Equal(t, before, status.LastScanTime, "an aborted scan must not advance the scan time")
}

func TestIncrementalScanNoChanges(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seedTwoDays()
	env.runFullScan(t)
	before := env.index.Status().LastScanTime

	env.runIncrementalScan(t)

	status := env.index.Status()
	assert.GreaterOrEqual(t, status.LastScanTime, before)
	require.NotNil(t, status.LastProgress)
	assert.Equal(t, 100, status.LastProgress.Percent)
}

func TestFullScanSupersedesPreviousIndex(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seedTwoDays()
	env.runFullScan(t)

	firstIDs := make(map[string]bool)
	all, err := env.clusters.ListAll()
	require.NoError(t, err)
	for _, c := range all {
		firstIDs[c.ID] = true
	}

	env.runFullScan(t)

	// Cluster ids are regenerated wholesale; membership is the identity
	all, err = env.clusters.ListAll()
	require.NoError(t, err)
	require.NotEmpty(t, all)
	for _, c := range all {
		assert.False(t, firstIDs[c.ID], "cluster %s survived a full rescan", c.ID)
	}
	assertDayConsistent(t, env, "2026-03-01")
	assertDayConsistent(t, env, "2026-03-02")
}
