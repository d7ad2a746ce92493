package cluster

import (
	"sort"

	"github.com/lumapix/moments-backend/internal/models"
	"github.com/lumapix/moments-backend/internal/spatial"
	"github.com/lumapix/moments-backend/internal/stats"
)

// Radius bounds for the estimator, in meters
const (
	DefaultRadius = 300.0
	MinRadius     = 100.0
	MaxRadius     = 1000.0
)

// EstimateRadius picks a clustering epsilon for one day's items from the
// distribution of pairwise distances between its geotagged members: sort the
// distances ascending, keep the lower half, and take its median. Biasing
// toward the small distances tracks the typical tight grouping instead of
// being skewed by a few far-apart outliers. The result is clamped to
// [MinRadius, MaxRadius]; days with fewer than two geotagged items get
// DefaultRadius.
func EstimateRadius(items []*models.MediaItem) float64 {
	var geotagged []*models.MediaItem
	for _, item := range items {
		if item.Geotagged() {
			geotagged = append(geotagged, item)
		}
	}
	if len(geotagged) < 2 {
		return DefaultRadius
	}

	var distances []float64
	for i := 0; i < len(geotagged); i++ {
		for j := i + 1; j < len(geotagged); j++ {
			distances = append(distances, spatial.HaversineDistance(
				*geotagged[i].Latitude, *geotagged[i].Longitude,
				*geotagged[j].Latitude, *geotagged[j].Longitude))
		}
	}

	sort.Float64s(distances)
	lower := distances[:len(distances)/2]
	if len(lower) == 0 {
		lower = distances[:1]
	}

	median := stats.Median(lower)
	if median < MinRadius {
		return MinRadius
	}
	if median > MaxRadius {
		return MaxRadius
	}
	return median
}
