package postgres

import (
	"context"
	"fmt"

	"github.com/samirrijal/placequest/internal/core/domain"
)

// VisitRepo implements ports.VisitRepository.
type VisitRepo struct {
	db *DB
}

func NewVisitRepo(db *DB) *VisitRepo {
	return &VisitRepo{db: db}
}

// Record inserts a visit unless the player already has the place, in which
// case v is overwritten with the stored visit.
func (r *VisitRepo) Record(ctx context.Context, v *domain.Visit) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `
		INSERT INTO visits (id, player_id, place_id, name, category, location, rare, points, story, visited_at)
		VALUES ($1, $2, $3, $4, $5, ST_SetSRID(ST_MakePoint($6, $7), 4326)::geography, $8, $9, $10, $11)
		ON CONFLICT (player_id, place_id) DO NOTHING
	`, v.ID, v.PlayerID, v.PlaceID, v.Name, v.Category,
		v.Location.Lon, v.Location.Lat, v.Rare, v.Points, v.Story, v.VisitedAt)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	err = r.db.Pool.QueryRow(ctx, `
		SELECT id::text, player_id, place_id, name, category,
		       ST_Y(location::geometry) AS lat,
		       ST_X(location::geometry) AS lon,
		       rare, points, story, visited_at
		FROM visits
		WHERE player_id = $1 AND place_id = $2
	`, v.PlayerID, v.PlaceID).Scan(
		&v.ID, &v.PlayerID, &v.PlaceID, &v.Name, &v.Category,
		&v.Location.Lat, &v.Location.Lon,
		&v.Rare, &v.Points, &v.Story, &v.VisitedAt,
	)
	if err != nil {
		return false, fmt.Errorf("load existing visit: %w", err)
	}
	return false, nil
}

func (r *VisitRepo) ListByPlayer(ctx context.Context, playerID string, offset, limit int) ([]domain.Visit, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM visits WHERE player_id = $1`, playerID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count visits: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id::text, player_id, place_id, name, category,
		       ST_Y(location::geometry) AS lat,
		       ST_X(location::geometry) AS lon,
		       rare, points, story, visited_at
		FROM visits
		WHERE player_id = $1
		ORDER BY visited_at DESC
		OFFSET $2 LIMIT $3
	`, playerID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var visits []domain.Visit
	for rows.Next() {
		var v domain.Visit
		if err := rows.Scan(
			&v.ID, &v.PlayerID, &v.PlaceID, &v.Name, &v.Category,
			&v.Location.Lat, &v.Location.Lon,
			&v.Rare, &v.Points, &v.Story, &v.VisitedAt,
		); err != nil {
			return nil, 0, err
		}
		visits = append(visits, v)
	}
	return visits, total, rows.Err()
}

// Score aggregates a player's visits. Players without visits are not found.
func (r *VisitRepo) Score(ctx context.Context, playerID string) (*domain.PlayerScore, error) {
	s := domain.PlayerScore{PlayerID: playerID}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(points), 0), COUNT(*), COUNT(*) FILTER (WHERE rare)
		FROM visits WHERE player_id = $1
	`, playerID).Scan(&s.Score, &s.Visits, &s.Rare)
	if err != nil {
		return nil, err
	}
	if s.Visits == 0 {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}
