// ppiload imports PPI points of interest from a GeoJSON
// FeatureCollection into ppi_points, keyed by geohash.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/agroclim/climate-grid/internal/config"
	"github.com/agroclim/climate-grid/internal/geo"
	"github.com/agroclim/climate-grid/internal/observability"
	"github.com/agroclim/climate-grid/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("ppiload failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		file = flag.String("file", "", "path to the PPI GeoJSON file (required)")
		gov  = flag.String("gov", "", "keep only points of this governorate (case-insensitive)")
	)
	flag.Parse()

	if *file == "" {
		return fmt.Errorf("-file is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	data, err := os.ReadFile(*file)
	if err != nil {
		return err
	}

	var fc geo.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse %s: %w", *file, err)
	}

	points, skipped := buildPoints(fc, *gov, cfg.GeohashPrecision)
	logger.Info("parsed PPI features",
		"total", len(fc.Features), "kept", len(points), "skipped", skipped)
	if len(points) == 0 {
		return fmt.Errorf("no usable point features in %s", *file)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	st, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(); err != nil {
		return err
	}
	if err := st.UpsertPPIPoints(ctx, points); err != nil {
		return err
	}

	logger.Info("PPI points upserted", "count", len(points))
	return nil
}

// buildPoints extracts point features, applying the governorate filter
// and geohash-encoding each location. Non-point features and points
// outside the filter are counted as skipped.
func buildPoints(fc geo.FeatureCollection, gov string, precision uint) ([]store.PPIPoint, int) {
	points := make([]store.PPIPoint, 0, len(fc.Features))
	skipped := 0

	for _, f := range fc.Features {
		pt, err := f.Geometry.Point()
		if err != nil {
			skipped++
			continue
		}

		name := stringProp(f.Properties, "PPI_NOM", "ppi_nom")
		govName := stringProp(f.Properties, "PPI_GOV", "gov_name")
		if gov != "" && (govName == nil || !strings.EqualFold(*govName, gov)) {
			skipped++
			continue
		}

		points = append(points, store.PPIPoint{
			Geohash: geo.Encode(pt.Lat, pt.Lon, precision),
			Name:    name,
			GovName: govName,
			Lat:     pt.Lat,
			Lon:     pt.Lon,
		})
	}
	return points, skipped
}

func stringProp(props map[string]any, keys ...string) *string {
	for _, k := range keys {
		if v, ok := props[k].(string); ok && v != "" {
			return &v
		}
	}
	return nil
}
