// ingest fetches NASA POWER daily observations for every grid cell,
// computes ET0, and upserts the results into climate_daily.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/jonboulle/clockwork"

	"github.com/agroclim/climate-grid/internal/config"
	"github.com/agroclim/climate-grid/internal/et0"
	"github.com/agroclim/climate-grid/internal/observability"
	"github.com/agroclim/climate-grid/internal/power"
	"github.com/agroclim/climate-grid/internal/store"
)

const upsertBatchSize = 500

func main() {
	if err := run(); err != nil {
		slog.Error("ingest failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		days   = flag.Int("days", 0, "override the fetch window length in days")
		dryRun = flag.Bool("dry-run", false, "fetch and compute but skip the database upsert")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	windowDays := cfg.PowerWindowDays
	if *days > 0 {
		windowDays = *days
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	st, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(); err != nil {
		return err
	}

	cells, err := st.ListGridCells(ctx, 0)
	if err != nil {
		return err
	}
	if len(cells) == 0 {
		return fmt.Errorf("no grid cells stored; run gridgen first")
	}

	client := power.NewClient(cfg.PowerTimeout, cfg.PowerBaseURL, cfg.PowerLagDays, clockwork.NewRealClock(), logger)
	start, end := client.Window(windowDays)
	logger.Info("fetching POWER data",
		"cells", len(cells), "workers", cfg.IngestWorkers,
		"start", start.Format("2006-01-02"), "end", end.Format("2006-01-02"))

	var (
		mu       sync.Mutex
		records  []store.DailyRecord
		failures int
	)

	pool := pond.NewPool(cfg.IngestWorkers)
	for _, cell := range cells {
		pool.Submit(func() {
			obs, err := client.FetchDaily(ctx, cell.Lat, cell.Lon, windowDays)
			if err != nil {
				logger.Warn("fetch failed", "geohash", cell.Geohash, "error", err)
				mu.Lock()
				failures++
				mu.Unlock()
				return
			}

			recs := buildDailyRecords(cell.Geohash, obs, cfg.AltitudeM)
			mu.Lock()
			records = append(records, recs...)
			mu.Unlock()
		})
	}
	pool.StopAndWait()

	records = store.DedupeDailyRecords(records)
	logger.Info("fetch complete",
		"records", len(records), "failed_cells", failures)

	if *dryRun {
		logger.Info("dry-run: skipping upsert", "records", len(records))
		return nil
	}

	var inserted int64
	for i := 0; i < len(records); i += upsertBatchSize {
		batch := records[i:min(i+upsertBatchSize, len(records))]
		n, err := st.UpsertDailyRecords(ctx, batch)
		if err != nil {
			return err
		}
		inserted += n
	}

	logger.Info("daily records upserted", "received", len(records), "inserted", inserted)
	return nil
}

func buildDailyRecords(geohash string, obs []power.Observation, altitude float64) []store.DailyRecord {
	out := make([]store.DailyRecord, 0, len(obs))
	for _, o := range obs {
		out = append(out, store.DailyRecord{
			Geohash:   geohash,
			Date:      o.Date,
			Tmin:      o.Tmin,
			Tmax:      o.Tmax,
			Radiation: o.Radiation,
			Rain:      o.Rain,
			RH:        o.RH,
			Wind:      o.Wind,
			ET0:       et0.Compute(o.Tmin, o.Tmax, o.Radiation, o.RH, o.Wind, altitude),
		})
	}
	return out
}
