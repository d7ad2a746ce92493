package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lumapix/moments-backend/internal/models"
	"github.com/lumapix/moments-backend/internal/repository"
	"github.com/lumapix/moments-backend/internal/source"
)

// LibraryService implements the interactive operations on the organized
// library: browsing day groups and clusters, hiding items, and deleting
// items from the backing source. Mutations mark the affected days dirty
// instead of re-clustering inline, keeping them fast.
type LibraryService struct {
	src       source.MediaSource
	media     *repository.MediaRepository
	clusters  *repository.ClusterRepository
	dayGroups *repository.DayGroupRepository
	state     *repository.StateRepository
}

// NewLibraryService creates a new library service
func NewLibraryService(
	src source.MediaSource,
	media *repository.MediaRepository,
	clusters *repository.ClusterRepository,
	dayGroups *repository.DayGroupRepository,
	state *repository.StateRepository,
) *LibraryService {
	return &LibraryService{src: src, media: media, clusters: clusters, dayGroups: dayGroups, state: state}
}

// ListDays returns the organized day groups, newest first
func (s *LibraryService) ListDays() ([]*models.DayGroup, error) {
	return s.dayGroups.List()
}

// GetDay returns one day group with its clusters, members populated.
// Returns nil when the day has no group.
func (s *LibraryService) GetDay(dayKey string) (*models.DayGroup, error) {
	group, err := s.dayGroups.GetByDay(dayKey)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, nil
	}

	clusters, err := s.clusters.ListByDay(dayKey)
	if err != nil {
		return nil, err
	}
	for _, c := range clusters {
		members, err := s.media.ListByCluster(c.ID)
		if err != nil {
			return nil, err
		}
		c.Members = members
	}
	group.Clusters = clusters
	return group, nil
}

// GetCluster returns one cluster with its non-hidden members in capture
// order. Returns nil when the cluster does not exist.
func (s *LibraryService) GetCluster(clusterID string) (*models.Cluster, error) {
	c, err := s.clusters.GetByID(clusterID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}

	members, err := s.media.ListByCluster(c.ID)
	if err != nil {
		return nil, err
	}
	c.Members = members
	return c, nil
}

// GetItem returns one media item; nil when it does not exist
func (s *LibraryService) GetItem(id string) (*models.MediaItem, error) {
	return s.media.GetByID(id)
}

// ListDayItems returns a day's items in capture order
func (s *LibraryService) ListDayItems(dayKey string, includeHidden bool) ([]*models.MediaItem, error) {
	return s.media.ListByDay(dayKey, includeHidden)
}

// DefaultPageSize bounds a day-items page when the caller does not pick one
const DefaultPageSize = 100

// ListDayItemsPage returns one page of a day's items in capture order,
// wrapped with the paging totals. Page numbers are 1-based; a page past the
// end comes back empty with the totals intact.
func (s *LibraryService) ListDayItemsPage(dayKey string, includeHidden bool, page, pageSize int) (*models.MediaItemsResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	items, err := s.ListDayItems(dayKey, includeHidden)
	if err != nil {
		return nil, err
	}

	total := len(items)
	totalPages := (total + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return &models.MediaItemsResponse{
		Data:       items[start:end],
		Total:      int64(total),
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// SetHidden toggles an item's hidden flag and queues its day for
// reconciliation. The item stays in its cluster; counts catch up on the
// next dirty-day drain.
func (s *LibraryService) SetHidden(id string, hidden bool) error {
	item, err := s.media.GetByID(id)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("media item not found: %s", id)
	}

	if err := s.media.SetHidden(id, hidden); err != nil {
		return err
	}
	if err := s.state.MarkDirty(item.DayKey, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to mark day %s dirty: %w", item.DayKey, err)
	}

	log.Printf("[LibraryService] Item %s hidden=%v, day %s queued", id, hidden, item.DayKey)
	return nil
}

// DeleteItems removes items from the media source and, for those the source
// confirms deleted, from the local index. Source failures leave the local
// rows intact so a retry can pick the ids up again.
func (s *LibraryService) DeleteItems(ctx context.Context, ids []string) (*models.DeleteResult, error) {
	if len(ids) == 0 {
		return &models.DeleteResult{}, nil
	}

	// Day keys must be captured before the rows disappear
	dirtyDays := make(map[string]bool)
	for _, id := range ids {
		item, err := s.media.GetByID(id)
		if err != nil {
			return nil, err
		}
		if item != nil {
			dirtyDays[item.DayKey] = true
		}
	}

	result, err := source.DeleteInChunks(ctx, s.src, ids)
	if err != nil {
		return result, fmt.Errorf("failed to delete from source: %w", err)
	}

	if err := s.media.Delete(result.DeletedIDs); err != nil {
		return result, err
	}

	now := time.Now().UnixMilli()
	for day := range dirtyDays {
		if err := s.state.MarkDirty(day, now); err != nil {
			return result, fmt.Errorf("failed to mark day %s dirty: %w", day, err)
		}
	}

	log.Printf("[LibraryService] Deleted %d items (%d failed), %d days queued",
		len(result.DeletedIDs), len(result.FailedIDs), len(dirtyDays))
	return result, nil
}
