package labeling

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lumapix/moments-backend/internal/models"
)

type mapResolver struct {
	labels map[string]string // "lat,lon" -> label
}

func (r *mapResolver) ResolveLabel(ctx context.Context, lat, lon float64) string {
	return r.labels[coordKey(lat, lon)]
}

func coordKey(lat, lon float64) string {
	return fmt.Sprintf("%.3f,%.3f", lat, lon)
}

func geoItem(id string, lat, lon float64) *models.MediaItem {
	return &models.MediaItem{ID: id, Latitude: &lat, Longitude: &lon}
}

func TestDayKeyUsesLocalCalendarDate(t *testing.T) {
	shanghai, err := time.LoadLocation("Asia/Shanghai")
	assert.NoError(t, err)

	// 2025-06-01 23:30 UTC is already 2025-06-02 in Shanghai
	ts := time.Date(2025, 6, 1, 23, 30, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, "2025-06-02", DayKey(ts, shanghai))
	assert.Equal(t, "2025-06-01", DayKey(ts, time.UTC))
}

func TestMajorityLabelMostFrequent(t *testing.T) {
	resolver := &mapResolver{labels: map[string]string{
		coordKey(22.543, 114.057): "Futian",
		coordKey(22.600, 114.100): "Luohu",
	}}
	labeler := NewLabeler(resolver, time.UTC)

	items := []*models.MediaItem{
		geoItem("a", 22.543, 114.057),
		geoItem("b", 22.543, 114.057),
		geoItem("c", 22.600, 114.100),
		{ID: "d"}, // no coordinate, skipped
	}

	assert.Equal(t, "Futian", labeler.MajorityLabel(context.Background(), items))
}

func TestMajorityLabelTieBrokenByFirstSeen(t *testing.T) {
	resolver := &mapResolver{labels: map[string]string{
		coordKey(22.543, 114.057): "Futian",
		coordKey(22.600, 114.100): "Luohu",
	}}
	labeler := NewLabeler(resolver, time.UTC)

	items := []*models.MediaItem{
		geoItem("a", 22.600, 114.100), // Luohu seen first
		geoItem("b", 22.543, 114.057),
		geoItem("c", 22.600, 114.100),
		geoItem("d", 22.543, 114.057),
	}

	assert.Equal(t, "Luohu", labeler.MajorityLabel(context.Background(), items))
}

func TestMajorityLabelEmptyWhenNothingResolvable(t *testing.T) {
	labeler := NewLabeler(&mapResolver{labels: map[string]string{}}, time.UTC)

	items := []*models.MediaItem{{ID: "a"}, {ID: "b"}}
	assert.Equal(t, "", labeler.MajorityLabel(context.Background(), items))

	// Geotagged but resolver has no answer
	items = append(items, geoItem("c", 1.0, 2.0))
	assert.Equal(t, "", labeler.MajorityLabel(context.Background(), items))
}
