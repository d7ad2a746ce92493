package cluster

import (
	"github.com/lumapix/moments-backend/internal/models"
)

// Strategy turns one day's media items into clusters. The orchestrator only
// depends on this interface, so the recompute-the-whole-day approach below can
// later be swapped for an incremental variant without touching the scan code.
type Strategy interface {
	ClusterDay(items []*models.MediaItem) ([]*models.Cluster, error)
}

// DBSCANStrategy is the default strategy: estimate a radius from the day's
// pairwise distance distribution, run the density pass, then merge clusters
// whose centroids land close together.
type DBSCANStrategy struct {
	MinPts           int
	MaxMergeDistance float64
}

// NewDBSCANStrategy creates the default clustering strategy
func NewDBSCANStrategy(minPts int, maxMergeDistance float64) *DBSCANStrategy {
	if minPts < 1 {
		minPts = 2
	}
	if maxMergeDistance <= 0 {
		maxMergeDistance = DefaultMaxMergeDistance
	}
	return &DBSCANStrategy{MinPts: minPts, MaxMergeDistance: maxMergeDistance}
}

// ClusterDay recomputes the day's clusters wholesale
func (s *DBSCANStrategy) ClusterDay(items []*models.MediaItem) ([]*models.Cluster, error) {
	radius := EstimateRadius(items)
	clusters, err := Cluster(items, radius, s.MinPts)
	if err != nil {
		return nil, err
	}
	return Merge(clusters, s.MaxMergeDistance), nil
}
