package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// DailyRecord is one day's weather observation for one grid cell.
// Measurement fields are nullable; NASA POWER reports gaps as missing.
type DailyRecord struct {
	ID        int64     `json:"id,omitempty"`
	Geohash   string    `json:"geohash"`
	Date      time.Time `json:"date"`
	Tmin      *float64  `json:"tmin,omitempty"`
	Tmax      *float64  `json:"tmax,omitempty"`
	Radiation *float64  `json:"radiation,omitempty"`
	Rain      *float64  `json:"rain,omitempty"`
	RH        *float64  `json:"rh,omitempty"`
	Wind      *float64  `json:"wind,omitempty"`
	ET0       *float64  `json:"et0,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const insertDailySQL = `
INSERT INTO climate_daily (geohash, date, tmin, tmax, radiation, rain, rh, wind, et0)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (geohash, date) DO NOTHING`

// UpsertDailyRecords writes daily records, keeping the first write for
// each (geohash, date) pair. Records referencing an unknown grid cell
// fail with ErrMissingGridCell. Returns the number of rows actually
// inserted.
func (s *Store) UpsertDailyRecords(ctx context.Context, records []DailyRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(insertDailySQL,
			r.Geohash, r.Date, r.Tmin, r.Tmax, r.Radiation, r.Rain, r.RH, r.Wind, r.ET0)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	var inserted int64
	for range records {
		tag, err := res.Exec()
		if err != nil {
			return inserted, mapError(err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// DedupeDailyRecords keeps the first record seen for each
// (geohash, date) pair, preserving input order. Adjacent grid cells can
// share a geohash when the encoding precision collapses them, so the
// ingest output is deduplicated before writing.
func DedupeDailyRecords(records []DailyRecord) []DailyRecord {
	type key struct {
		geohash string
		date    time.Time
	}

	seen := make(map[key]struct{}, len(records))
	out := make([]DailyRecord, 0, len(records))
	for _, r := range records {
		k := key{r.Geohash, r.Date}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// DailyCoverage reports the stored date range and row count of the
// daily table. Both dates are nil when the table is empty.
func (s *Store) DailyCoverage(ctx context.Context) (first, last *time.Time, rows int64, err error) {
	row := s.pool.QueryRow(ctx, `SELECT MIN(date), MAX(date), COUNT(*) FROM climate_daily`)
	if err := row.Scan(&first, &last, &rows); err != nil {
		return nil, nil, 0, err
	}
	return first, last, rows, nil
}
