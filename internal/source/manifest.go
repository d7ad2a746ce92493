package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/lumapix/moments-backend/internal/models"
)

// manifestRecord is one entry of the JSON library export
type manifestRecord struct {
	ID              string   `json:"id"`
	Kind            string   `json:"kind"`
	CapturedAt      int64    `json:"capturedAt"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	SizeBytes       int64    `json:"sizeBytes"`
	Width           int      `json:"width"`
	Height          int      `json:"height"`
	DurationSeconds *float64 `json:"durationSeconds"`
	ModifiedAt      int64    `json:"modifiedAt"`
}

// ManifestSource serves a media library from a local JSON export file. It
// keeps the records in memory sorted by capture time so batch offsets are
// stable across calls.
type ManifestSource struct {
	mu      sync.RWMutex
	records []*manifestRecord
}

// NewManifestSource loads the manifest file
func NewManifestSource(path string) (*ManifestSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var records []*manifestRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CapturedAt != records[j].CapturedAt {
			return records[i].CapturedAt < records[j].CapturedAt
		}
		return records[i].ID < records[j].ID
	})

	return &ManifestSource{records: records}, nil
}

// Count returns the number of items in the manifest
func (s *ManifestSource) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// FetchBatch returns up to limit items starting at offset
func (s *ManifestSource) FetchBatch(ctx context.Context, offset, limit int) ([]*models.MediaItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if offset < 0 || offset >= len(s.records) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.records) {
		end = len(s.records)
	}

	items := make([]*models.MediaItem, 0, end-offset)
	for _, rec := range s.records[offset:end] {
		items = append(items, rec.toItem())
	}
	return items, nil
}

// FetchModifiedSince returns items modified after the given ms timestamp
func (s *ManifestSource) FetchModifiedSince(ctx context.Context, sinceMs int64) ([]*models.MediaItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []*models.MediaItem
	for _, rec := range s.records {
		if rec.ModifiedAt > sinceMs {
			items = append(items, rec.toItem())
		}
	}
	return items, nil
}

// DeleteItems removes items from the in-memory manifest. Unknown ids are
// reported as failures so callers can retry or surface them.
func (s *ManifestSource) DeleteItems(ctx context.Context, ids []string) (*models.DeleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	result := &models.DeleteResult{}
	kept := s.records[:0]
	for _, rec := range s.records {
		if wanted[rec.ID] {
			result.DeletedIDs = append(result.DeletedIDs, rec.ID)
			delete(wanted, rec.ID)
			continue
		}
		kept = append(kept, rec)
	}
	s.records = kept

	for _, id := range ids {
		if wanted[id] {
			result.FailedIDs = append(result.FailedIDs, id)
		}
	}
	return result, nil
}

func (rec *manifestRecord) toItem() *models.MediaItem {
	kind := rec.Kind
	if kind != models.MediaKindVideo {
		kind = models.MediaKindPhoto
	}
	return &models.MediaItem{
		ID:              rec.ID,
		Kind:            kind,
		CapturedAt:      rec.CapturedAt,
		Latitude:        rec.Latitude,
		Longitude:       rec.Longitude,
		SizeBytes:       rec.SizeBytes,
		Width:           rec.Width,
		Height:          rec.Height,
		DurationSeconds: rec.DurationSeconds,
		ModifiedAt:      rec.ModifiedAt,
	}
}
