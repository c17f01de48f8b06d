package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// PPIPoint is a named irrigated-perimeter point of interest. PPI
// points are independent of the grid; they only seed its bounding box.
type PPIPoint struct {
	Geohash   string    `json:"geohash"`
	Name      *string   `json:"ppi_nom,omitempty"`
	GovName   *string   `json:"gov_name,omitempty"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	CreatedAt time.Time `json:"created_at"`
}

const upsertPPIPointSQL = `
INSERT INTO ppi_points (geohash, ppi_nom, gov_name, lat, lon)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (geohash) DO UPDATE
SET ppi_nom = EXCLUDED.ppi_nom,
    gov_name = EXCLUDED.gov_name,
    lat = EXCLUDED.lat,
    lon = EXCLUDED.lon`

// UpsertPPIPoints inserts or updates PPI points by geohash.
func (s *Store) UpsertPPIPoints(ctx context.Context, points []PPIPoint) error {
	if len(points) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(upsertPPIPointSQL, p.Geohash, p.Name, p.GovName, p.Lat, p.Lon)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for range points {
		if _, err := res.Exec(); err != nil {
			return mapError(err)
		}
	}
	return nil
}

const listPPIPointsSQL = `
    SELECT geohash, ppi_nom, gov_name, lat, lon, created_at
    FROM ppi_points
    ORDER BY geohash
`

// ListPPIPoints returns all PPI points.
func (s *Store) ListPPIPoints(ctx context.Context) ([]PPIPoint, error) {
	rows, err := s.pool.Query(ctx, listPPIPointsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := make([]PPIPoint, 0)
	for rows.Next() {
		var p PPIPoint
		if err := rows.Scan(&p.Geohash, &p.Name, &p.GovName, &p.Lat, &p.Lon, &p.CreatedAt); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
