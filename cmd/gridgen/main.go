// gridgen builds the 100-meter analysis grid over the bounding box of
// the stored PPI points and upserts it into grid_100m.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/agroclim/climate-grid/internal/config"
	"github.com/agroclim/climate-grid/internal/geo"
	"github.com/agroclim/climate-grid/internal/observability"
	"github.com/agroclim/climate-grid/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("gridgen failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		geojsonOut = flag.String("geojson", "", "also write the grid as GeoJSON to this path")
		dryRun     = flag.Bool("dry-run", false, "build the grid but skip the database upsert")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	st, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(); err != nil {
		return err
	}

	ppi, err := st.ListPPIPoints(ctx)
	if err != nil {
		return err
	}
	if len(ppi) == 0 {
		return fmt.Errorf("no PPI points stored; run ppiload first")
	}

	points := make([]geo.Point, 0, len(ppi))
	for _, p := range ppi {
		points = append(points, geo.Point{Lat: p.Lat, Lon: p.Lon})
	}
	bbox, err := geo.BBoxOf(points)
	if err != nil {
		return err
	}
	logger.Info("grid bounding box",
		"min_lat", bbox.MinLat, "max_lat", bbox.MaxLat,
		"min_lon", bbox.MinLon, "max_lon", bbox.MaxLon)

	cells := geo.BuildGrid(bbox, cfg.GridStepDeg, cfg.GeohashPrecision)
	logger.Info("grid built", "cells", len(cells), "step_deg", cfg.GridStepDeg)

	if *geojsonOut != "" {
		if err := writeGeoJSON(*geojsonOut, cells); err != nil {
			return err
		}
		logger.Info("grid GeoJSON written", "path", *geojsonOut)
	}

	if *dryRun {
		logger.Info("dry-run: skipping grid upsert", "cells", len(cells))
		return nil
	}

	rows := make([]store.GridCell, 0, len(cells))
	for _, c := range cells {
		wkt := c.WKT()
		rows = append(rows, store.GridCell{
			Geohash:    c.Geohash,
			Lat:        c.Lat,
			Lon:        c.Lon,
			PolygonWKT: &wkt,
		})
	}
	if err := st.UpsertGridCells(ctx, rows); err != nil {
		return err
	}

	logger.Info("grid cells upserted", "count", len(rows))
	return nil
}

func writeGeoJSON(path string, cells []geo.Cell) error {
	fc, err := geo.GridFeatureCollection(cells)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
