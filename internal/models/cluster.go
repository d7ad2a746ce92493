package models

// Sentinel labels for the trailing catch-all cluster of a day
const (
	LabelNoGPS     = "No GPS"
	LabelScattered = "Scattered Locations"
)

// Cluster is a spatial grouping of one day's media items. Ids are regenerated
// on every clustering run; the membership content is the stable identity.
// A centroid of (0,0) is the sentinel for "no geotagged members".
type Cluster struct {
	ID          string  `json:"id" db:"id"`
	DayKey      string  `json:"dayKey" db:"day_key"`
	CentroidLat float64 `json:"centroidLat" db:"centroid_lat"`
	CentroidLon float64 `json:"centroidLon" db:"centroid_lon"`
	Radius      float64 `json:"radius" db:"radius"` // The epsilon (meters) used to produce it
	Label       string  `json:"label,omitempty" db:"label"`
	MemberCount int     `json:"memberCount" db:"member_count"`

	// Members is populated by the clustering engine and when loading an album;
	// it is not a column of the clusters table.
	Members []*MediaItem `json:"members,omitempty"`
}

// HasCentroid reports whether the cluster has a real (non-sentinel) centroid
func (c *Cluster) HasCentroid() bool {
	return c.CentroidLat != 0 || c.CentroidLon != 0
}

// MemberIDs returns the ids of the in-memory members
func (c *Cluster) MemberIDs() []string {
	ids := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		ids = append(ids, m.ID)
	}
	return ids
}
