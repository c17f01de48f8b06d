package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// WeeklyAggregate is a rolling 7-day summary for one grid cell,
// keyed by (geohash, end_date).
type WeeklyAggregate struct {
	ID           int64     `json:"id,omitempty"`
	Geohash      string    `json:"geohash"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	AvgTmin      *float64  `json:"avg_tmin,omitempty"`
	AvgTmax      *float64  `json:"avg_tmax,omitempty"`
	AvgRadiation *float64  `json:"avg_radiation,omitempty"`
	TotalRain    *float64  `json:"total_rain,omitempty"`
	AvgRH        *float64  `json:"avg_rh,omitempty"`
	AvgWind      *float64  `json:"avg_wind,omitempty"`
	AvgET0       *float64  `json:"avg_et0,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// WindowStart returns the first day of the 7-day window ending on end.
func WindowStart(end time.Time) time.Time {
	return end.AddDate(0, 0, -6)
}

const upsertWeeklySQL = `
INSERT INTO climate_7days
    (geohash, start_date, end_date, avg_tmin, avg_tmax, avg_radiation, total_rain, avg_rh, avg_wind, avg_et0)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (geohash, end_date) DO UPDATE
SET start_date = EXCLUDED.start_date,
    avg_tmin = EXCLUDED.avg_tmin,
    avg_tmax = EXCLUDED.avg_tmax,
    avg_radiation = EXCLUDED.avg_radiation,
    total_rain = EXCLUDED.total_rain,
    avg_rh = EXCLUDED.avg_rh,
    avg_wind = EXCLUDED.avg_wind,
    avg_et0 = EXCLUDED.avg_et0,
    updated_at = NOW()`

// UpsertWeeklyAggregates inserts or replaces weekly aggregates by
// (geohash, end_date). Aggregates are recomputed data, so a rewrite
// always wins. Unknown geohashes fail with ErrMissingGridCell.
func (s *Store) UpsertWeeklyAggregates(ctx context.Context, aggregates []WeeklyAggregate) error {
	if len(aggregates) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, a := range aggregates {
		batch.Queue(upsertWeeklySQL,
			a.Geohash, a.StartDate, a.EndDate,
			a.AvgTmin, a.AvgTmax, a.AvgRadiation, a.TotalRain, a.AvgRH, a.AvgWind, a.AvgET0)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for range aggregates {
		if _, err := res.Exec(); err != nil {
			return mapError(err)
		}
	}
	return nil
}

const aggregateWeeklySQL = `
INSERT INTO climate_7days
    (geohash, start_date, end_date, avg_tmin, avg_tmax, avg_radiation, total_rain, avg_rh, avg_wind, avg_et0)
SELECT
    geohash,
    $1::date,
    $2::date,
    ROUND(AVG(tmin)::numeric, 2)::double precision,
    ROUND(AVG(tmax)::numeric, 2)::double precision,
    ROUND(AVG(radiation)::numeric, 2)::double precision,
    ROUND(SUM(rain)::numeric, 2)::double precision,
    ROUND(AVG(rh)::numeric, 2)::double precision,
    ROUND(AVG(wind)::numeric, 2)::double precision,
    ROUND(AVG(et0)::numeric, 2)::double precision
FROM climate_daily
WHERE date BETWEEN $1 AND $2 AND tmin IS NOT NULL
GROUP BY geohash
HAVING COUNT(*) >= $3
ON CONFLICT (geohash, end_date) DO UPDATE
SET start_date = EXCLUDED.start_date,
    avg_tmin = EXCLUDED.avg_tmin,
    avg_tmax = EXCLUDED.avg_tmax,
    avg_radiation = EXCLUDED.avg_radiation,
    total_rain = EXCLUDED.total_rain,
    avg_rh = EXCLUDED.avg_rh,
    avg_wind = EXCLUDED.avg_wind,
    avg_et0 = EXCLUDED.avg_et0,
    updated_at = NOW()`

// AggregateWeekly recomputes 7-day aggregates for the window ending on
// end. Cells with fewer than minDays observed days in the window are
// skipped. Returns the number of aggregates written.
func (s *Store) AggregateWeekly(ctx context.Context, end time.Time, minDays int) (int64, error) {
	tag, err := s.pool.Exec(ctx, aggregateWeeklySQL, WindowStart(end), end, minDays)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}
