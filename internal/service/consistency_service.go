package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lumapix/moments-backend/internal/repository"
	"github.com/lumapix/moments-backend/internal/spatial"
)

// RepairFallbackRadius is the floor (meters) of the widened radius the repair
// pass searches around a cluster centroid. Independent re-clustering runs
// drift the geometry, so repair tolerates membership out to
// max(2*cluster.radius, this).
const RepairFallbackRadius = 1000.0

// VerifyMismatch reports a cluster whose recorded member count disagrees with
// the items actually referencing it
type VerifyMismatch struct {
	ClusterID string `json:"clusterId"`
	DayKey    string `json:"dayKey"`
	Recorded  int    `json:"recorded"`
	Actual    int    `json:"actual"`
}

// RepairOutcome is the per-cluster result of a repair pass
type RepairOutcome struct {
	ClusterID   string `json:"clusterId"`
	DayKey      string `json:"dayKey"`
	MemberCount int    `json:"memberCount"`
	Error       string `json:"error,omitempty"`
}

// RepairReport summarizes a repair pass
type RepairReport struct {
	Repaired int             `json:"repaired"`
	Failed   int             `json:"failed"`
	Outcomes []RepairOutcome `json:"outcomes"`
}

// PruneReport summarizes a prune pass
type PruneReport struct {
	ClustersPruned  int `json:"clustersPruned"`
	DayGroupsPruned int `json:"dayGroupsPruned"`
}

// ConsistencyService keeps the persisted item/cluster/day-group graph
// correct as items are hidden, deleted, or re-clustered over time. It runs
// independently of any in-flight scan and never aborts a whole pass because
// of one bad cluster.
type ConsistencyService struct {
	media     *repository.MediaRepository
	clusters  *repository.ClusterRepository
	dayGroups *repository.DayGroupRepository
	state     *repository.StateRepository
}

// NewConsistencyService creates a new consistency service
func NewConsistencyService(
	media *repository.MediaRepository,
	clusters *repository.ClusterRepository,
	dayGroups *repository.DayGroupRepository,
	state *repository.StateRepository,
) *ConsistencyService {
	return &ConsistencyService{media: media, clusters: clusters, dayGroups: dayGroups, state: state}
}

// Verify compares every cluster's recorded member count against the number of
// non-hidden items referencing it. Read-only; returns the mismatches.
func (s *ConsistencyService) Verify() ([]VerifyMismatch, error) {
	all, err := s.clusters.ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list clusters: %w", err)
	}

	var mismatches []VerifyMismatch
	for _, c := range all {
		actual, err := s.media.CountVisibleByCluster(c.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count members of %s: %w", c.ID, err)
		}
		if actual != c.MemberCount {
			mismatches = append(mismatches, VerifyMismatch{
				ClusterID: c.ID,
				DayKey:    c.DayKey,
				Recorded:  c.MemberCount,
				Actual:    actual,
			})
		}
	}

	log.Printf("[ConsistencyService] Verify: %d clusters checked, %d mismatches", len(all), len(mismatches))
	return mismatches, nil
}

// Repair re-derives each cluster's membership from geometry: items of the
// cluster's day whose coordinate falls within the fallback radius of the
// centroid are relinked and the stored member count rewritten. Safe to call
// repeatedly; a failing cluster is recorded and the pass continues.
func (s *ConsistencyService) Repair(ctx context.Context) (*RepairReport, error) {
	candidates, err := s.clusters.ListWithCentroid()
	if err != nil {
		return nil, fmt.Errorf("failed to list clusters: %w", err)
	}

	report := &RepairReport{}
	for _, c := range candidates {
		outcome := RepairOutcome{ClusterID: c.ID, DayKey: c.DayKey}

		fallback := 2 * c.Radius
		if fallback < RepairFallbackRadius {
			fallback = RepairFallbackRadius
		}

		box := spatial.NewBoundingBox(c.CentroidLat, c.CentroidLon, fallback)
		items, err := s.media.ListByDayAndBounds(c.DayKey, box)
		if err != nil {
			outcome.Error = err.Error()
			report.Failed++
			report.Outcomes = append(report.Outcomes, outcome)
			continue
		}

		var memberIDs []string
		for _, item := range items {
			d := spatial.HaversineDistance(c.CentroidLat, c.CentroidLon, *item.Latitude, *item.Longitude)
			if d <= fallback {
				memberIDs = append(memberIDs, item.ID)
			}
		}

		if err := s.media.SetClusterRef(memberIDs, &c.ID); err != nil {
			outcome.Error = err.Error()
			report.Failed++
			report.Outcomes = append(report.Outcomes, outcome)
			continue
		}
		if err := s.clusters.UpdateMemberCount(c.ID, len(memberIDs)); err != nil {
			outcome.Error = err.Error()
			report.Failed++
			report.Outcomes = append(report.Outcomes, outcome)
			continue
		}

		outcome.MemberCount = len(memberIDs)
		report.Repaired++
		report.Outcomes = append(report.Outcomes, outcome)
	}

	log.Printf("[ConsistencyService] Repair: %d repaired, %d failed", report.Repaired, report.Failed)
	return report, nil
}

// PruneEmpty deletes clusters with zero non-hidden members, then day groups
// with zero remaining clusters. Idempotent: a second run right after finds
// nothing to do.
func (s *ConsistencyService) PruneEmpty() (*PruneReport, error) {
	report := &PruneReport{}

	all, err := s.clusters.ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list clusters: %w", err)
	}
	for _, c := range all {
		count, err := s.media.CountVisibleByCluster(c.ID)
		if err != nil {
			log.Printf("[ConsistencyService] Prune: skipping cluster %s: %v", c.ID, err)
			continue
		}
		if count == 0 {
			if err := s.clusters.Delete(c.ID); err != nil {
				log.Printf("[ConsistencyService] Prune: failed to delete cluster %s: %v", c.ID, err)
				continue
			}
			report.ClustersPruned++
		}
	}

	groups, err := s.dayGroups.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list day groups: %w", err)
	}
	for _, g := range groups {
		remaining, err := s.clusters.ListByDay(g.DayKey)
		if err != nil {
			log.Printf("[ConsistencyService] Prune: skipping day %s: %v", g.DayKey, err)
			continue
		}
		if len(remaining) == 0 {
			if err := s.dayGroups.Delete(g.DayKey); err != nil {
				log.Printf("[ConsistencyService] Prune: failed to delete day group %s: %v", g.DayKey, err)
				continue
			}
			report.DayGroupsPruned++
		}
	}

	log.Printf("[ConsistencyService] Prune: %d clusters, %d day groups", report.ClustersPruned, report.DayGroupsPruned)
	return report, nil
}

// DrainDirty reconciles the days queued by hide/delete events: member counts
// are recounted, empty clusters pruned, and day-group totals rewritten. The
// interactive operations stay fast because this runs on demand, not
// synchronously with the hide/delete itself.
func (s *ConsistencyService) DrainDirty(ctx context.Context) ([]string, error) {
	days, err := s.state.ListDirty()
	if err != nil {
		return nil, err
	}

	var drained []string
	for _, day := range days {
		if err := s.reconcileDay(day); err != nil {
			log.Printf("[ConsistencyService] Drain: day %s failed: %v", day, err)
			continue
		}
		if err := s.state.ClearDirty(day); err != nil {
			return drained, err
		}
		drained = append(drained, day)
	}

	if len(drained) > 0 {
		log.Printf("[ConsistencyService] Drained %d dirty days", len(drained))
	}
	return drained, nil
}

// MarkDayDirty queues a day for the next drain
func (s *ConsistencyService) MarkDayDirty(dayKey string) error {
	return s.state.MarkDirty(dayKey, time.Now().UnixMilli())
}

// reconcileDay recounts one day's clusters and rewrites its day group
func (s *ConsistencyService) reconcileDay(dayKey string) error {
	clusters, err := s.clusters.ListByDay(dayKey)
	if err != nil {
		return err
	}

	remaining := 0
	totalVisible := 0
	for _, c := range clusters {
		count, err := s.media.CountVisibleByCluster(c.ID)
		if err != nil {
			return err
		}
		if count == 0 {
			if err := s.clusters.Delete(c.ID); err != nil {
				return err
			}
			continue
		}
		if count != c.MemberCount {
			if err := s.clusters.UpdateMemberCount(c.ID, count); err != nil {
				return err
			}
		}
		remaining++
		totalVisible += count
	}

	if remaining == 0 {
		return s.dayGroups.Delete(dayKey)
	}

	group, err := s.dayGroups.GetByDay(dayKey)
	if err != nil {
		return err
	}
	if group == nil {
		return nil
	}
	group.ClusterCount = remaining
	group.TotalVisibleItems = totalVisible
	return s.dayGroups.Upsert(group)
}
