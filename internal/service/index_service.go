package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lumapix/moments-backend/internal/cluster"
	"github.com/lumapix/moments-backend/internal/labeling"
	"github.com/lumapix/moments-backend/internal/models"
	"github.com/lumapix/moments-backend/internal/repository"
	"github.com/lumapix/moments-backend/internal/source"
)

// DefaultBatchSize is how many items a full scan fetches per batch
const DefaultBatchSize = 300

// ScanCallbacks are the observable outputs of a scan. All fields are
// optional. OnFirstBatch fires once the synchronous first batch of a full
// scan is persisted and clustered, at which point the library already shows
// usable partial results. OnComplete fires exactly once per scan.
type ScanCallbacks struct {
	OnProgress   func(progress models.ScanProgress)
	OnFirstBatch func()
	OnComplete   func(err error)
}

// IndexService orchestrates batched and incremental scans of the media
// source: it fetches items, buckets them into days, runs the clustering
// strategy per affected day, and persists the results.
//
// Only one scan may be active at a time; the state machine value is
// transitioned via compare-and-set so re-entrancy checks are race-free.
// Scans are not cancellable: once started they run to completion or failure.
type IndexService struct {
	src       source.MediaSource
	media     *repository.MediaRepository
	clusters  *repository.ClusterRepository
	dayGroups *repository.DayGroupRepository
	state     *repository.StateRepository
	labeler   *labeling.Labeler
	places    labeling.PlaceResolver
	strategy  cluster.Strategy
	batchSize int

	scanState atomic.Int32

	mu           sync.Mutex
	lastProgress *models.ScanProgress
	lastErr      string
}

// NewIndexService creates the scan orchestrator
func NewIndexService(
	src source.MediaSource,
	media *repository.MediaRepository,
	clusters *repository.ClusterRepository,
	dayGroups *repository.DayGroupRepository,
	state *repository.StateRepository,
	labeler *labeling.Labeler,
	places labeling.PlaceResolver,
	strategy cluster.Strategy,
	batchSize int,
) *IndexService {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &IndexService{
		src:       src,
		media:     media,
		clusters:  clusters,
		dayGroups: dayGroups,
		state:     state,
		labeler:   labeler,
		places:    places,
		strategy:  strategy,
		batchSize: batchSize,
	}
}

// Status reports the current scan state and the latest progress event
func (s *IndexService) Status() models.ScanStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := models.ScanStatus{
		State:        models.ScanState(s.scanState.Load()).String(),
		LastProgress: s.lastProgress,
		LastError:    s.lastErr,
	}
	if ts, err := s.state.LastScanTime(); err == nil {
		status.LastScanTime = ts
	}
	return status
}

// StartFullScan runs a full scan of the media source. The first batch is
// processed synchronously so the caller gets a usable partial result before
// this method returns; the remaining batches continue as a background task.
// Fails fast with ErrScanInProgress when another scan is active.
func (s *IndexService) StartFullScan(ctx context.Context, cb ScanCallbacks) error {
	if !s.scanState.CompareAndSwap(int32(models.ScanStateIdle), int32(models.ScanStateScanning)) {
		return ErrScanInProgress
	}
	s.resetStatus()

	// The scan must outlive its trigger: an HTTP request context is canceled
	// as soon as the response is written, and a started scan runs to
	// completion or failure
	ctx = context.WithoutCancel(ctx)

	scanStart := time.Now().UnixMilli()

	total, err := s.src.Count(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		s.finishScan(cb, err)
		return err
	}

	// Drop all prior geometry so stale clusters never mix with fresh ones
	// while the background continuation is still running
	if err := s.clearIndex(); err != nil {
		s.finishScan(cb, err)
		return err
	}

	if total == 0 {
		log.Printf("[IndexService] Full scan: source is empty")
		s.emitProgress(cb, 100, "Library is empty")
		if cb.OnFirstBatch != nil {
			cb.OnFirstBatch()
		}
		if err := s.state.SetLastScanTime(scanStart); err != nil {
			log.Printf("[IndexService] Failed to record scan time: %v", err)
		}
		s.finishScan(cb, nil)
		return nil
	}

	totalBatches := (total + s.batchSize - 1) / s.batchSize
	log.Printf("[IndexService] Full scan: %d items in %d batches", total, totalBatches)

	// Batch 0 runs synchronously: once it is stored and clustered the caller
	// has something to show
	days, err := s.processBatch(ctx, 0, total)
	if err != nil {
		s.finishScan(cb, err)
		return err
	}
	s.emitProgress(cb, percentOf(1, totalBatches), fmt.Sprintf("Processed batch 1/%d", totalBatches))
	if cb.OnFirstBatch != nil {
		cb.OnFirstBatch()
	}

	s.scanState.Store(int32(models.ScanStateBackgroundContinuing))
	go s.continueFullScan(ctx, cb, scanStart, total, totalBatches, days)

	return nil
}

// continueFullScan processes batches 1..n as a background task, then runs a
// final pass over every day
func (s *IndexService) continueFullScan(
	ctx context.Context,
	cb ScanCallbacks,
	scanStart int64,
	total, totalBatches int,
	seenDays map[string]bool,
) {
	for batch := 1; batch < totalBatches; batch++ {
		days, err := s.processBatch(ctx, batch, total)
		if err != nil {
			log.Printf("[IndexService] Full scan aborted at batch %d: %v", batch, err)
			s.finishScan(cb, err)
			return
		}
		for day := range days {
			seenDays[day] = true
		}
		s.emitProgress(cb, percentOf(batch+1, totalBatches),
			fmt.Sprintf("Processed batch %d/%d", batch+1, totalBatches))
	}

	// Final pass: re-cluster everything now that the full item set is stored
	if err := s.reclusterAll(ctx); err != nil {
		s.finishScan(cb, err)
		return
	}

	if err := s.state.SetLastScanTime(scanStart); err != nil {
		log.Printf("[IndexService] Failed to record scan time: %v", err)
	}
	s.emitProgress(cb, 100, "Scan complete")
	log.Printf("[IndexService] Full scan complete: %d items, %d days", total, len(seenDays))
	s.finishScan(cb, nil)
}

// StartIncrementalScan fetches only items modified since the last completed
// scan and re-clusters their days in the background. Best-effort: a source
// failure is logged and the scan aborts silently. Fails fast with
// ErrScanInProgress when another scan is active.
func (s *IndexService) StartIncrementalScan(ctx context.Context, cb ScanCallbacks) error {
	if !s.scanState.CompareAndSwap(int32(models.ScanStateIdle), int32(models.ScanStateIncrementalScanning)) {
		return ErrScanInProgress
	}
	s.resetStatus()

	// Detached from the trigger's context, same as the full scan
	go s.runIncrementalScan(context.WithoutCancel(ctx), cb)
	return nil
}

func (s *IndexService) runIncrementalScan(ctx context.Context, cb ScanCallbacks) {
	scanStart := time.Now().UnixMilli()

	since, err := s.state.LastScanTime()
	if err != nil {
		s.finishScan(cb, err)
		return
	}

	items, err := s.src.FetchModifiedSince(ctx, since)
	if err != nil {
		// Incremental scans are best-effort; log and abort without surfacing
		// an error
		log.Printf("[IndexService] Incremental scan aborted, source unavailable: %v", err)
		s.finishScan(cb, nil)
		return
	}

	if len(items) == 0 {
		log.Printf("[IndexService] Incremental scan: nothing modified since %d", since)
		if err := s.state.SetLastScanTime(scanStart); err != nil {
			log.Printf("[IndexService] Failed to record scan time: %v", err)
		}
		s.emitProgress(cb, 100, "No changes")
		s.finishScan(cb, nil)
		return
	}

	days, err := s.storeItems(items)
	if err != nil {
		s.finishScan(cb, err)
		return
	}

	// Union the new items with each affected day's existing members and
	// re-run the full clustering pass for the day
	for day := range days {
		if err := s.reclusterDay(ctx, day); err != nil {
			s.finishScan(cb, err)
			return
		}
	}

	if err := s.state.SetLastScanTime(scanStart); err != nil {
		log.Printf("[IndexService] Failed to record scan time: %v", err)
	}
	s.emitProgress(cb, 100, fmt.Sprintf("Updated %d items across %d days", len(items), len(days)))
	log.Printf("[IndexService] Incremental scan complete: %d items, %d days", len(items), len(days))
	s.finishScan(cb, nil)
}

// ReclusterDay re-runs labeling and clustering for a single day. Exposed for
// the consistency subsystem and manual repairs.
func (s *IndexService) ReclusterDay(ctx context.Context, dayKey string) error {
	return s.reclusterDay(ctx, dayKey)
}

// processBatch fetches, stores, and clusters one batch; returns the day keys
// the batch touched
func (s *IndexService) processBatch(ctx context.Context, batch, total int) (map[string]bool, error) {
	offset := batch * s.batchSize
	items, err := s.src.FetchBatch(ctx, offset, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("%w: batch %d: %w", ErrSourceUnavailable, batch, err)
	}

	days, err := s.storeItems(items)
	if err != nil {
		return nil, err
	}

	// Re-label and re-cluster each covered day over the full accumulated item
	// set; the day's prior clusters are superseded wholesale
	for day := range days {
		if err := s.reclusterDay(ctx, day); err != nil {
			return nil, err
		}
	}
	return days, nil
}

// storeItems buckets items into days and upserts them as one batch
func (s *IndexService) storeItems(items []*models.MediaItem) (map[string]bool, error) {
	days := make(map[string]bool)
	for _, item := range items {
		item.DayKey = s.labeler.DayKey(item.CapturedAt)
		days[item.DayKey] = true
	}
	if err := s.media.UpsertBatch(items); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	return days, nil
}

// reclusterDay recomputes one day's clusters and day group from scratch
func (s *IndexService) reclusterDay(ctx context.Context, dayKey string) error {
	items, err := s.media.ListByDay(dayKey, false)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}

	if len(items) == 0 {
		// Nothing visible left: supersede with an empty day
		if err := s.clusters.ReplaceForDay(dayKey, nil); err != nil {
			return fmt.Errorf("%w: %w", ErrStoreWrite, err)
		}
		if err := s.dayGroups.Delete(dayKey); err != nil {
			return fmt.Errorf("%w: %w", ErrStoreWrite, err)
		}
		return nil
	}

	clusters, err := s.strategy.ClusterDay(items)
	if err != nil {
		return fmt.Errorf("failed to cluster day %s: %w", dayKey, err)
	}

	// Density clusters get a place label from their centroid; the sentinel
	// labels of trailing clusters are left alone
	totalVisible := 0
	for _, c := range clusters {
		totalVisible += c.MemberCount
		if c.Label == "" && c.HasCentroid() {
			c.Label = s.places.ResolveLabel(ctx, c.CentroidLat, c.CentroidLon)
		}
	}

	if err := s.clusters.ReplaceForDay(dayKey, clusters); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}

	group := &models.DayGroup{
		DayKey:            dayKey,
		MajorityLabel:     s.labeler.MajorityLabel(ctx, items),
		ClusterCount:      len(clusters),
		TotalVisibleItems: totalVisible,
	}
	if err := s.dayGroups.Upsert(group); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	return nil
}

// reclusterAll re-runs the day pipeline for every day in the store
func (s *IndexService) reclusterAll(ctx context.Context) error {
	days, err := s.media.DayKeys()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	for _, day := range days {
		if err := s.reclusterDay(ctx, day); err != nil {
			return err
		}
	}
	return nil
}

// clearIndex resets all cluster assignments before a full scan
func (s *IndexService) clearIndex() error {
	if err := s.media.ClearAllClusterRefs(); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	if err := s.clusters.DeleteAll(); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	if err := s.dayGroups.DeleteAll(); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	return nil
}

// emitProgress records and publishes a progress event, clamping the percent
// so the reported sequence never decreases
func (s *IndexService) emitProgress(cb ScanCallbacks, percent int, message string) {
	s.mu.Lock()
	if s.lastProgress != nil && percent < s.lastProgress.Percent {
		percent = s.lastProgress.Percent
	}
	progress := models.ScanProgress{Percent: percent, Message: message}
	s.lastProgress = &progress
	s.mu.Unlock()

	if cb.OnProgress != nil {
		cb.OnProgress(progress)
	}
}

// finishScan returns the state machine to Idle and fires the completion
// callback
func (s *IndexService) finishScan(cb ScanCallbacks, err error) {
	if err != nil {
		log.Printf("[IndexService] Scan failed: %v", err)
		s.setLastError(err.Error())
	}
	s.scanState.Store(int32(models.ScanStateIdle))
	if cb.OnComplete != nil {
		cb.OnComplete(err)
	}
}

func (s *IndexService) setLastError(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
}

// resetStatus clears the previous scan's status when a new scan starts, so
// the monotonic-percent clamp applies within a single scan only
func (s *IndexService) resetStatus() {
	s.mu.Lock()
	s.lastErr = ""
	s.lastProgress = nil
	s.mu.Unlock()
}

func percentOf(done, total int) int {
	if total <= 0 {
		return 100
	}
	return done * 100 / total
}
