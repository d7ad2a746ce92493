package labeling

import (
	"context"
	"time"

	"github.com/lumapix/moments-backend/internal/models"
)

// DayKeyFormat is the local calendar date bucket used to scope clustering
const DayKeyFormat = "2006-01-02"

// PlaceResolver resolves a coordinate to a human place label. The geocode
// cache satisfies this.
type PlaceResolver interface {
	ResolveLabel(ctx context.Context, lat, lon float64) string
}

// DayKey buckets an epoch-millisecond capture timestamp into its local
// calendar date
func DayKey(capturedAtMs int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(capturedAtMs).In(loc).Format(DayKeyFormat)
}

// Labeler derives day keys and majority place labels for one day's items
type Labeler struct {
	resolver PlaceResolver
	loc      *time.Location
}

// NewLabeler creates a labeler. loc controls day bucketing; nil means the
// system local zone.
func NewLabeler(resolver PlaceResolver, loc *time.Location) *Labeler {
	if loc == nil {
		loc = time.Local
	}
	return &Labeler{resolver: resolver, loc: loc}
}

// DayKey buckets a timestamp using the labeler's zone
func (l *Labeler) DayKey(capturedAtMs int64) string {
	return DayKey(capturedAtMs, l.loc)
}

// MajorityLabel resolves a place label for each geotagged item and returns the
// most frequent one. Ties are broken by first-seen order. Returns "" for a day
// with no resolvable labels.
func (l *Labeler) MajorityLabel(ctx context.Context, items []*models.MediaItem) string {
	counts := make(map[string]int)
	var order []string

	for _, item := range items {
		if !item.Geotagged() {
			continue
		}
		label := l.resolver.ResolveLabel(ctx, *item.Latitude, *item.Longitude)
		if label == "" {
			continue
		}
		if _, seen := counts[label]; !seen {
			order = append(order, label)
		}
		counts[label]++
	}

	best := ""
	bestCount := 0
	for _, label := range order {
		if counts[label] > bestCount {
			best = label
			bestCount = counts[label]
		}
	}
	return best
}
