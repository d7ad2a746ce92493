package models

// DayGroup aggregates one calendar day of the organized library.
// It is recomputed wholesale whenever its day is re-clustered and pruned
// when its cluster set becomes empty.
type DayGroup struct {
	DayKey            string `json:"dayKey" db:"day_key"`
	MajorityLabel     string `json:"majorityLabel,omitempty" db:"majority_label"`
	ClusterCount      int    `json:"clusterCount" db:"cluster_count"`
	TotalVisibleItems int    `json:"totalVisibleItems" db:"total_visible_items"`

	// Clusters is populated when loading a full day view; it is not a column
	// of the day_groups table.
	Clusters []*Cluster `json:"clusters,omitempty"`
}
