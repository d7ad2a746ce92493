package repository

import (
	"database/sql"
	"fmt"

	"github.com/lumapix/moments-backend/internal/models"
)

// DayGroupRepository handles database operations for day groups
type DayGroupRepository struct {
	db *sql.DB
}

// NewDayGroupRepository creates a new day group repository
func NewDayGroupRepository(db *sql.DB) *DayGroupRepository {
	return &DayGroupRepository{db: db}
}

// Upsert inserts or replaces a day group
func (r *DayGroupRepository) Upsert(group *models.DayGroup) error {
	query := `
		INSERT INTO day_groups (day_key, majority_label, cluster_count, total_visible_items, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(day_key) DO UPDATE SET
			majority_label = excluded.majority_label,
			cluster_count = excluded.cluster_count,
			total_visible_items = excluded.total_visible_items,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.Exec(query,
		group.DayKey, nullableString(group.MajorityLabel),
		group.ClusterCount, group.TotalVisibleItems,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert day group: %w", err)
	}
	return nil
}

// GetByDay retrieves a day group; returns nil when not found
func (r *DayGroupRepository) GetByDay(dayKey string) (*models.DayGroup, error) {
	query := `
		SELECT day_key, majority_label, cluster_count, total_visible_items
		FROM day_groups
		WHERE day_key = ?
	`

	group := &models.DayGroup{}
	var label sql.NullString
	err := r.db.QueryRow(query, dayKey).Scan(
		&group.DayKey, &label, &group.ClusterCount, &group.TotalVisibleItems,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get day group: %w", err)
	}
	if label.Valid {
		group.MajorityLabel = label.String
	}
	return group, nil
}

// List retrieves all day groups, newest day first
func (r *DayGroupRepository) List() ([]*models.DayGroup, error) {
	query := `
		SELECT day_key, majority_label, cluster_count, total_visible_items
		FROM day_groups
		ORDER BY day_key DESC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list day groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.DayGroup
	for rows.Next() {
		group := &models.DayGroup{}
		var label sql.NullString
		if err := rows.Scan(&group.DayKey, &label, &group.ClusterCount, &group.TotalVisibleItems); err != nil {
			return nil, fmt.Errorf("failed to scan day group: %w", err)
		}
		if label.Valid {
			group.MajorityLabel = label.String
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

// Delete removes a day group
func (r *DayGroupRepository) Delete(dayKey string) error {
	if _, err := r.db.Exec("DELETE FROM day_groups WHERE day_key = ?", dayKey); err != nil {
		return fmt.Errorf("failed to delete day group: %w", err)
	}
	return nil
}

// DeleteAll drops every day group. Called when a full scan begins.
func (r *DayGroupRepository) DeleteAll() error {
	if _, err := r.db.Exec("DELETE FROM day_groups"); err != nil {
		return fmt.Errorf("failed to delete day groups: %w", err)
	}
	return nil
}
