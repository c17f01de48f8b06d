package store

import (
	"context"
	"time"
)

// LatestClimateRow is one row of the latest_climate view: a grid cell
// with its most recent daily observation. Measurement fields are nil
// for cells with no climate data yet.
type LatestClimateRow struct {
	Geohash   string     `json:"geohash"`
	Lat       float64    `json:"lat"`
	Lon       float64    `json:"lon"`
	Date      *time.Time `json:"date,omitempty"`
	Tmin      *float64   `json:"tmin,omitempty"`
	Tmax      *float64   `json:"tmax,omitempty"`
	Radiation *float64   `json:"radiation,omitempty"`
	Rain      *float64   `json:"rain,omitempty"`
	RH        *float64   `json:"rh,omitempty"`
	Wind      *float64   `json:"wind,omitempty"`
	ET0       *float64   `json:"et0,omitempty"`
}

const latestClimateSQL = `
    SELECT geohash, lat, lon, date, tmin, tmax, radiation, rain, rh, wind, et0
    FROM latest_climate
`

// LatestClimate returns exactly one row per grid cell with that cell's
// most recent daily record, or nulls when none exists.
func (s *Store) LatestClimate(ctx context.Context) ([]LatestClimateRow, error) {
	rows, err := s.pool.Query(ctx, latestClimateSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LatestClimateRow, 0)
	for rows.Next() {
		var r LatestClimateRow
		if err := rows.Scan(
			&r.Geohash, &r.Lat, &r.Lon, &r.Date,
			&r.Tmin, &r.Tmax, &r.Radiation, &r.Rain, &r.RH, &r.Wind, &r.ET0,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// WeeklySummaryRow is one row of the weekly_summary view: a weekly
// aggregate joined with its cell's coordinates.
type WeeklySummaryRow struct {
	Geohash      string    `json:"geohash"`
	Lat          float64   `json:"lat"`
	Lon          float64   `json:"lon"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	AvgTmin      *float64  `json:"avg_tmin,omitempty"`
	AvgTmax      *float64  `json:"avg_tmax,omitempty"`
	AvgRadiation *float64  `json:"avg_radiation,omitempty"`
	TotalRain    *float64  `json:"total_rain,omitempty"`
	AvgRH        *float64  `json:"avg_rh,omitempty"`
	AvgWind      *float64  `json:"avg_wind,omitempty"`
	AvgET0       *float64  `json:"avg_et0,omitempty"`
}

const weeklySummarySQL = `
    SELECT geohash, lat, lon, start_date, end_date,
           avg_tmin, avg_tmax, avg_radiation, total_rain, avg_rh, avg_wind, avg_et0
    FROM weekly_summary
`

// WeeklySummary returns weekly aggregates joined to cell coordinates,
// ordered by end date descending then geohash. A limit <= 0 returns
// every row.
func (s *Store) WeeklySummary(ctx context.Context, limit int) ([]WeeklySummaryRow, error) {
	sql := weeklySummarySQL
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

	out := make([]WeeklySummaryRow, 0)
	for rows.Next() {
		var r WeeklySummaryRow
		if err := rows.Scan(
			&r.Geohash, &r.Lat, &r.Lon, &r.StartDate, &r.EndDate,
			&r.AvgTmin, &r.AvgTmax, &r.AvgRadiation, &r.TotalRain, &r.AvgRH, &r.AvgWind, &r.AvgET0,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
