package cluster

import (
	"sort"

	"github.com/lumapix/moments-backend/internal/models"
	"github.com/lumapix/moments-backend/internal/spatial"
)

// DefaultMaxMergeDistance is the centroid distance (meters) under which two
// clusters of the same day are considered the same place
const DefaultMaxMergeDistance = 500.0

// Merge combines clusters whose centroids lie within maxMergeDistance of each
// other. Members are unioned and the centroid is recomputed as the mean over
// the combined geotagged members, not as a weighted mix of the prior
// centroids. The scan restarts after every merge and terminates when a full
// pass performs none; per-day cluster counts are small enough that the
// worst-case cost does not matter.
//
// Clusters with the (0,0) sentinel centroid are never merged.
func Merge(clusters []*models.Cluster, maxMergeDistance float64) []*models.Cluster {
	if maxMergeDistance <= 0 {
		maxMergeDistance = DefaultMaxMergeDistance
	}

	merged := make([]*models.Cluster, len(clusters))
	copy(merged, clusters)

	for {
		didMerge := false

	scan:
		for i := 0; i < len(merged); i++ {
			if !merged[i].HasCentroid() {
				continue
			}
			for j := i + 1; j < len(merged); j++ {
				if !merged[j].HasCentroid() {
					continue
				}
				d := spatial.HaversineDistance(
					merged[i].CentroidLat, merged[i].CentroidLon,
					merged[j].CentroidLat, merged[j].CentroidLon)
				if d > maxMergeDistance {
					continue
				}

				a, b := merged[i], merged[j]
				a.Members = append(a.Members, b.Members...)
				a.MemberCount = len(a.Members)
				RecomputeCentroid(a)

				merged = append(merged[:j], merged[j+1:]...)
				didMerge = true
				break scan
			}
		}

		if !didMerge {
			break
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].MemberCount > merged[j].MemberCount
	})

	return merged
}
