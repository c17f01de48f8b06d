package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// GridCell is one 100-meter cell of the analysis grid. The geohash
// deterministically identifies the cell; lat/lon is its center point
// and PolygonWKT carries the cell boundary as WGS84 well-known text.
type GridCell struct {
	Geohash    string    `json:"geohash"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	PolygonWKT *string   `json:"polygon_wkt,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

const upsertGridCellSQL = `
INSERT INTO grid_100m (geohash, lat, lon, geom)
VALUES ($1, $2, $3, ST_GeomFromText(NULLIF($4, ''), 4326))
ON CONFLICT (geohash) DO UPDATE
SET lat = EXCLUDED.lat,
    lon = EXCLUDED.lon,
    geom = EXCLUDED.geom`

// UpsertGridCells inserts or updates grid cells by geohash. Duplicate
// geohashes never fail; a malformed polygon fails the whole batch with
// ErrInvalidGeometry.
func (s *Store) UpsertGridCells(ctx context.Context, cells []GridCell) error {
	if len(cells) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range cells {
		wkt := ""
		if c.PolygonWKT != nil {
			wkt = *c.PolygonWKT
		}
		batch.Queue(upsertGridCellSQL, c.Geohash, c.Lat, c.Lon, wkt)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for range cells {
		if _, err := res.Exec(); err != nil {
			return mapError(err)
		}
	}
	return nil
}

// DeleteGridCell removes a grid cell. The foreign keys cascade, so all
// daily and weekly climate rows for the geohash are removed in the same
// statement.
func (s *Store) DeleteGridCell(ctx context.Context, geohash string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM grid_100m WHERE geohash = $1`, geohash)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const listGridCellsSQL = `
    SELECT geohash, lat, lon, ST_AsText(geom), created_at
    FROM grid_100m
    ORDER BY geohash
`

// ListGridCells returns grid cells ordered by geohash. A limit <= 0
// returns every cell.
func (s *Store) ListGridCells(ctx context.Context, limit int) ([]GridCell, error) {
	sql := listGridCellsSQL
	args := []any{}
	if limit > 0 {
		sql += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cells := make([]GridCell, 0)
	for rows.Next() {
		var c GridCell
		if err := rows.Scan(&c.Geohash, &c.Lat, &c.Lon, &c.PolygonWKT, &c.CreatedAt); err != nil {
			return nil, err
		}
		cells = append(cells, c)
	}
	return cells, rows.Err()
}
