// aggregate recomputes rolling 7-day climate summaries from
// climate_daily into climate_7days.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/agroclim/climate-grid/internal/config"
	"github.com/agroclim/climate-grid/internal/observability"
	"github.com/agroclim/climate-grid/internal/store"
)

const (
	dateLayout  = "2006-01-02"
	maxBackfill = 30
)

func main() {
	if err := run(); err != nil {
		slog.Error("aggregate failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		dateStr  = flag.String("date", "", "window end date (YYYY-MM-DD); defaults to the latest stored date")
		backfill = flag.Int("backfill", 0, "also recompute the N preceding end dates (max 30)")
		minDays  = flag.Int("min-days", 3, "minimum observed days per cell to produce an aggregate")
	)
	flag.Parse()

	if *minDays < 1 || *minDays > 7 {
		return fmt.Errorf("-min-days must be between 1 and 7")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	st, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(); err != nil {
		return err
	}

	first, last, rows, err := st.DailyCoverage(ctx)
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("climate_daily is empty; run ingest first")
	}
	logger.Info("daily coverage",
		"rows", rows,
		"first", first.Format(dateLayout), "last", last.Format(dateLayout))

	ends, err := endDates(*dateStr, *backfill, *first, *last)
	if err != nil {
		return err
	}

	var total int64
	for _, end := range ends {
		count, err := st.AggregateWeekly(ctx, end, *minDays)
		if err != nil {
			return err
		}
		logger.Info("window aggregated",
			"start", store.WindowStart(end).Format(dateLayout),
			"end", end.Format(dateLayout),
			"cells", count)
		total += count
	}

	logger.Info("aggregation complete", "windows", len(ends), "aggregates", total)
	return nil
}

// endDates resolves the window end dates to process. With no explicit
// date the latest stored date is used; backfill walks backwards from
// the chosen end, clamped to the stored range.
func endDates(dateStr string, backfill int, first, last time.Time) ([]time.Time, error) {
	end := last
	if dateStr != "" {
		parsed, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("invalid -date: %w", err)
		}
		if parsed.After(last) {
			parsed = last
		}
		if parsed.Before(first) {
			return nil, fmt.Errorf("-date %s precedes stored data (first: %s)",
				dateStr, first.Format(dateLayout))
		}
		end = parsed
	}

	if backfill > maxBackfill {
		backfill = maxBackfill
	}

	ends := []time.Time{end}
	for i := 1; i <= backfill; i++ {
		d := end.AddDate(0, 0, -i)
		if d.Before(first) {
			break
		}
		ends = append(ends, d)
	}
	return ends, nil
}
