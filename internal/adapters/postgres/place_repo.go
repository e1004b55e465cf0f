package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/samirrijal/placequest/internal/core/domain"
)

// PlaceRepo implements ports.PlaceRepository with pgx and PostGIS.
type PlaceRepo struct {
	db *DB
}

// NewPlaceRepo creates a new PlaceRepo.
func NewPlaceRepo(db *DB) *PlaceRepo {
	return &PlaceRepo{db: db}
}

const upsertPlaceSQL = `
	INSERT INTO places (id, name, category, subcategory, location, address, source, metadata)
	VALUES ($1, $2, $3, NULLIF($4, ''), ST_SetSRID(ST_MakePoint($5, $6), 4326)::geography, NULLIF($7, ''), NULLIF($8, ''), $9)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name, category = EXCLUDED.category,
	    subcategory = EXCLUDED.subcategory, location = EXCLUDED.location,
	    address = EXCLUDED.address, source = EXCLUDED.source,
	    metadata = EXCLUDED.metadata, updated_at = now()
`

// UpsertBatch inserts or refreshes many places using pgx.Batch.
func (r *PlaceRepo) UpsertBatch(ctx context.Context, places []domain.Place) error {
	if len(places) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range places {
		meta := p.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		batch.Queue(upsertPlaceSQL, p.ID, p.Name, p.Category, p.Subcategory,
			p.Location.Lon, p.Location.Lat, p.Address, p.Source, meta)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range places {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

const placeColumns = `
	id, name, category, COALESCE(subcategory, ''),
	ST_Y(location::geometry) AS lat,
	ST_X(location::geometry) AS lon,
	COALESCE(address, ''), COALESCE(source, ''), metadata, created_at`

func scanPlace(row pgx.Row, p *domain.Place, extra ...any) error {
	dest := []any{
		&p.ID, &p.Name, &p.Category, &p.Subcategory,
		&p.Location.Lat, &p.Location.Lon,
		&p.Address, &p.Source, &p.Metadata, &p.CreatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

// GetByID returns a place by id.
func (r *PlaceRepo) GetByID(ctx context.Context, id string) (*domain.Place, error) {
	var p domain.Place
	err := scanPlace(r.db.Pool.QueryRow(ctx, `SELECT `+placeColumns+` FROM places WHERE id = $1`, id), &p)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// categoryMatch matches the category or subcategory, or everything when the
// parameter is empty.
const categoryMatch = `($%[1]d = '' OR lower(category) = $%[1]d OR lower(subcategory) = $%[1]d)`

// FindInBounds returns places inside the box, oldest first so ids are stable
// across pages.
func (r *PlaceRepo) FindInBounds(ctx context.Context, b domain.Bounds, category string, limit int) ([]domain.Place, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+placeColumns+`
		FROM places
		WHERE location::geometry && ST_MakeEnvelope($1, $2, $3, $4, 4326)
		  AND `+fmt.Sprintf(categoryMatch, 5)+`
		ORDER BY created_at, id
		LIMIT $6
	`, b.MinLon, b.MinLat, b.MaxLon, b.MaxLat, category, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var places []domain.Place
	for rows.Next() {
		var p domain.Place
		if err := scanPlace(rows, &p); err != nil {
			return nil, err
		}
		places = append(places, p)
	}
	return places, rows.Err()
}

// FindNearby returns places within radiusMeters using PostGIS ST_DWithin.
func (r *PlaceRepo) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, category string, limit int) ([]domain.Place, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+placeColumns+`,
		       ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) AS distance
		FROM places
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		  AND `+fmt.Sprintf(categoryMatch, 4)+`
		ORDER BY distance
		LIMIT $5
	`, lon, lat, radiusMeters, category, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var places []domain.Place
	for rows.Next() {
		var p domain.Place
		var dist float64
		if err := scanPlace(rows, &p, &dist); err != nil {
			return nil, err
		}
		p.Distance = &dist
		places = append(places, p)
	}
	return places, rows.Err()
}
