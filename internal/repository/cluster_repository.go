package repository

import (
	"database/sql"
	"fmt"

	"github.com/lumapix/moments-backend/internal/database"
	"github.com/lumapix/moments-backend/internal/models"
)

// ClusterRepository handles database operations for clusters
type ClusterRepository struct {
	db *sql.DB
}

// NewClusterRepository creates a new cluster repository
func NewClusterRepository(db *sql.DB) *ClusterRepository {
	return &ClusterRepository{db: db}
}

// ReplaceForDay supersedes a day's clusters wholesale: the old rows are
// dropped, the new ones inserted, and member cluster_refs rewritten, all in
// one transaction. Old cluster rows are never patched field by field.
func (r *ClusterRepository) ReplaceForDay(dayKey string, clusters []*models.Cluster) error {
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM clusters WHERE day_key = ?", dayKey); err != nil {
			return fmt.Errorf("failed to drop old clusters for %s: %w", dayKey, err)
		}
		if _, err := tx.Exec("UPDATE media_items SET cluster_ref = NULL WHERE day_key = ?", dayKey); err != nil {
			return fmt.Errorf("failed to clear cluster refs for %s: %w", dayKey, err)
		}

		insertCluster, err := tx.Prepare(`
			INSERT INTO clusters (id, day_key, centroid_lat, centroid_lon, radius, label, member_count)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare cluster insert: %w", err)
		}
		defer insertCluster.Close()

		assignMember, err := tx.Prepare(
			"UPDATE media_items SET cluster_ref = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		)
		if err != nil {
			return fmt.Errorf("failed to prepare member update: %w", err)
		}
		defer assignMember.Close()

		for _, c := range clusters {
			_, err := insertCluster.Exec(
				c.ID, c.DayKey, c.CentroidLat, c.CentroidLon, c.Radius,
				nullableString(c.Label), c.MemberCount,
			)
			if err != nil {
				return fmt.Errorf("failed to insert cluster %s: %w", c.ID, err)
			}
			for _, m := range c.Members {
				if _, err := assignMember.Exec(c.ID, m.ID); err != nil {
					return fmt.Errorf("failed to assign member %s: %w", m.ID, err)
				}
			}
		}
		return nil
	})
}

const clusterColumns = "id, day_key, centroid_lat, centroid_lon, radius, label, member_count"

// GetByID retrieves a cluster by id; returns nil when not found
func (r *ClusterRepository) GetByID(id string) (*models.Cluster, error) {
	query := "SELECT " + clusterColumns + " FROM clusters WHERE id = ?"

	c, err := scanCluster(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster: %w", err)
	}
	return c, nil
}

// ListByDay retrieves a day's clusters, largest first
func (r *ClusterRepository) ListByDay(dayKey string) ([]*models.Cluster, error) {
	query := "SELECT " + clusterColumns + " FROM clusters WHERE day_key = ? ORDER BY member_count DESC, id"
	return r.list(query, dayKey)
}

// ListAll retrieves every cluster
func (r *ClusterRepository) ListAll() ([]*models.Cluster, error) {
	return r.list("SELECT " + clusterColumns + " FROM clusters ORDER BY day_key DESC, member_count DESC")
}

// ListWithCentroid retrieves clusters carrying a real (non-sentinel) centroid
func (r *ClusterRepository) ListWithCentroid() ([]*models.Cluster, error) {
	query := "SELECT " + clusterColumns + ` FROM clusters
		WHERE centroid_lat != 0 OR centroid_lon != 0
		ORDER BY day_key DESC, member_count DESC`
	return r.list(query)
}

// UpdateMemberCount rewrites a cluster's stored member count
func (r *ClusterRepository) UpdateMemberCount(id string, count int) error {
	if _, err := r.db.Exec("UPDATE clusters SET member_count = ? WHERE id = ?", count, id); err != nil {
		return fmt.Errorf("failed to update member count: %w", err)
	}
	return nil
}

// Delete removes a cluster row and clears its members' references
func (r *ClusterRepository) Delete(id string) error {
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec("UPDATE media_items SET cluster_ref = NULL WHERE cluster_ref = ?", id); err != nil {
			return fmt.Errorf("failed to clear member refs: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM clusters WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete cluster: %w", err)
		}
		return nil
	})
}

// DeleteAll drops every cluster row. Called when a full scan begins.
func (r *ClusterRepository) DeleteAll() error {
	if _, err := r.db.Exec("DELETE FROM clusters"); err != nil {
		return fmt.Errorf("failed to delete clusters: %w", err)
	}
	return nil
}

func (r *ClusterRepository) list(query string, args ...interface{}) ([]*models.Cluster, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query clusters: %w", err)
	}
	defer rows.Close()

	var clusters []*models.Cluster
	for rows.Next() {
		c, err := scanCluster(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cluster: %w", err)
		}
		clusters = append(clusters, c)
	}
	return clusters, rows.Err()
}

func scanCluster(row rowScanner) (*models.Cluster, error) {
	c := &models.Cluster{}
	var label sql.NullString

	err := row.Scan(&c.ID, &c.DayKey, &c.CentroidLat, &c.CentroidLon, &c.Radius, &label, &c.MemberCount)
	if err != nil {
		return nil, err
	}
	if label.Valid {
		c.Label = label.String
	}
	return c, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
