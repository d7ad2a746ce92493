package cluster

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/lumapix/moments-backend/internal/models"
	"github.com/lumapix/moments-backend/internal/spatial"
	"github.com/lumapix/moments-backend/internal/stats"
)

// Cluster runs a single-pass density clustering over one day's media items and
// returns the resulting clusters sorted descending by member count.
//
// items must already be filtered to a single day. radius is the neighborhood
// epsilon in meters. A point's neighborhood includes the point itself, so an
// isolated geotagged item with minPts <= 1 forms its own one-member cluster.
//
// The pass is deterministic for a fixed input ordering but not invariant under
// permutation: a point that would qualify as a core point if visited first may
// instead be absorbed as a border point of a different cluster. That behavior
// is intentional and covered by tests.
func Cluster(items []*models.MediaItem, radius float64, minPts int) ([]*models.Cluster, error) {
	if minPts < 1 {
		return nil, fmt.Errorf("minPts must be >= 1, got %d", minPts)
	}

	var geotagged, untagged []*models.MediaItem
	for _, item := range items {
		if item.Geotagged() {
			geotagged = append(geotagged, item)
		} else {
			untagged = append(untagged, item)
		}
	}

	// No location data at all: the whole day is one "No GPS" bucket
	if len(geotagged) == 0 {
		if len(untagged) == 0 {
			return nil, nil
		}
		c := newCluster(untagged, 0)
		c.Label = models.LabelNoGPS
		return []*models.Cluster{c}, nil
	}

	neighborhood := func(i int) []int {
		var nbrs []int
		for j := range geotagged {
			d := spatial.HaversineDistance(
				*geotagged[i].Latitude, *geotagged[i].Longitude,
				*geotagged[j].Latitude, *geotagged[j].Longitude)
			if d <= radius {
				nbrs = append(nbrs, j)
			}
		}
		return nbrs
	}

	const unassigned = -1
	visited := make([]bool, len(geotagged))
	assigned := make([]int, len(geotagged))
	for i := range assigned {
		assigned[i] = unassigned
	}

	var groups [][]int
	for i := range geotagged {
		if visited[i] {
			continue
		}
		visited[i] = true

		nbrs := neighborhood(i)
		if len(nbrs) < minPts {
			// Noise for now; may still be absorbed as a border point of a
			// later cluster's expansion
			continue
		}

		// Seed a new cluster and expand it in FIFO order
		clusterIdx := len(groups)
		assigned[i] = clusterIdx
		members := []int{i}

		queue := make([]int, 0, len(nbrs))
		queued := make([]bool, len(geotagged))
		queued[i] = true
		for _, n := range nbrs {
			if !queued[n] {
				queue = append(queue, n)
				queued[n] = true
			}
		}

		for qi := 0; qi < len(queue); qi++ {
			j := queue[qi]
			if !visited[j] {
				visited[j] = true
				jNbrs := neighborhood(j)
				if len(jNbrs) >= minPts {
					for _, n := range jNbrs {
						if !queued[n] {
							queue = append(queue, n)
							queued[n] = true
						}
					}
				}
			}
			if assigned[j] == unassigned {
				assigned[j] = clusterIdx
				members = append(members, j)
			}
		}

		groups = append(groups, members)
	}

	var clusters []*models.Cluster
	for _, members := range groups {
		items := make([]*models.MediaItem, 0, len(members))
		for _, idx := range members {
			items = append(items, geotagged[idx])
		}
		clusters = append(clusters, newCluster(items, radius))
	}

	// Everything never assigned plus all non-geotagged items goes into one
	// trailing catch-all cluster for the day
	var trailing []*models.MediaItem
	hasGeotagged := false
	for i, item := range geotagged {
		if assigned[i] == unassigned {
			trailing = append(trailing, item)
			hasGeotagged = true
		}
	}
	trailing = append(trailing, untagged...)

	if len(trailing) > 0 {
		c := newCluster(trailing, 0)
		if hasGeotagged {
			c.Label = models.LabelScattered
		} else {
			c.Label = models.LabelNoGPS
		}
		clusters = append(clusters, c)
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].MemberCount > clusters[j].MemberCount
	})

	return clusters, nil
}

// newCluster builds a cluster from its members, computing the centroid as the
// arithmetic mean over geotagged members only. Clusters without geotagged
// members keep the (0,0) sentinel centroid.
func newCluster(members []*models.MediaItem, radius float64) *models.Cluster {
	c := &models.Cluster{
		ID:          uuid.NewString(),
		Radius:      radius,
		Members:     members,
		MemberCount: len(members),
	}
	if len(members) > 0 {
		c.DayKey = members[0].DayKey
	}
	RecomputeCentroid(c)
	return c
}

// RecomputeCentroid updates the cluster centroid from its in-memory members
func RecomputeCentroid(c *models.Cluster) {
	var lats, lons []float64
	for _, m := range c.Members {
		if m.Geotagged() {
			lats = append(lats, *m.Latitude)
			lons = append(lons, *m.Longitude)
		}
	}
	if len(lats) == 0 {
		c.CentroidLat, c.CentroidLon = 0, 0
		return
	}
	c.CentroidLat = stats.Mean(lats)
	c.CentroidLon = stats.Mean(lons)
}
