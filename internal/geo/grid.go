package geo

import (
	"errors"
	"fmt"

	"github.com/mmcloughlin/geohash"
)

const (
	// DefaultStepDeg is the grid step in degrees, roughly 100 meters
	// at the latitudes this grid covers.
	DefaultStepDeg = 0.001

	// DefaultGeohashPrecision gives ~150m cells, enough to keep one
	// geohash per grid cell at the default step.
	DefaultGeohashPrecision = 7
)

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lon float64
}

// BBox is a WGS84 bounding box.
type BBox struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// BBoxOf computes the bounding box covering all points.
func BBoxOf(points []Point) (BBox, error) {
	if len(points) == 0 {
		return BBox{}, errors.New("no points to bound")
	}

	b := BBox{
		MinLat: points[0].Lat, MaxLat: points[0].Lat,
		MinLon: points[0].Lon, MaxLon: points[0].Lon,
	}
	for _, p := range points[1:] {
		if p.Lat < b.MinLat {
			b.MinLat = p.Lat
		}
		if p.Lat > b.MaxLat {
			b.MaxLat = p.Lat
		}
		if p.Lon < b.MinLon {
			b.MinLon = p.Lon
		}
		if p.Lon > b.MaxLon {
			b.MaxLon = p.Lon
		}
	}
	return b, nil
}

// Cell is one grid cell: a step-sized box with its center point and
// geohash identifier.
type Cell struct {
	Geohash string
	Lat     float64 // center
	Lon     float64 // center
	MinLat  float64
	MinLon  float64
	MaxLat  float64
	MaxLon  float64
}

// Encode returns the geohash of a coordinate at the given precision.
func Encode(lat, lon float64, precision uint) string {
	return geohash.EncodeWithPrecision(lat, lon, precision)
}

// BuildGrid walks the bounding box in step-degree increments and
// returns one cell per step. The geohash of the cell center identifies
// the cell; centers close enough to share a geohash produce duplicate
// identifiers, which the store's upserts collapse.
func BuildGrid(b BBox, step float64, precision uint) []Cell {
	cells := make([]Cell, 0)
	for lat := b.MinLat; lat < b.MaxLat; lat += step {
		for lon := b.MinLon; lon < b.MaxLon; lon += step {
			c := Cell{
				MinLat: lat,
				MinLon: lon,
				MaxLat: lat + step,
				MaxLon: lon + step,
				Lat:    lat + step/2,
				Lon:    lon + step/2,
			}
			c.Geohash = Encode(c.Lat, c.Lon, precision)
			cells = append(cells, c)
		}
	}
	return cells
}

// WKT returns the cell boundary as closed polygon well-known text in
// lon/lat order.
func (c Cell) WKT() string {
	return fmt.Sprintf("POLYGON((%g %g, %g %g, %g %g, %g %g, %g %g))",
		c.MinLon, c.MinLat,
		c.MaxLon, c.MinLat,
		c.MaxLon, c.MaxLat,
		c.MinLon, c.MaxLat,
		c.MinLon, c.MinLat)
}
