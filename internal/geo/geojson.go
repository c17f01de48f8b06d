package geo

import (
	"encoding/json"
	"fmt"
)

// GeoJSON types, limited to what the PPI loader and grid export need.

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties,omitempty"`
}

type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Point decodes a Point geometry ([lon, lat] order).
func (g Geometry) Point() (Point, error) {
	if g.Type != "Point" {
		return Point{}, fmt.Errorf("geometry is %q, not Point", g.Type)
	}
	var coords []float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return Point{}, fmt.Errorf("decode point coordinates: %w", err)
	}
	if len(coords) < 2 {
		return Point{}, fmt.Errorf("point has %d coordinates", len(coords))
	}
	return Point{Lat: coords[1], Lon: coords[0]}, nil
}

// Feature renders the cell as a GeoJSON polygon feature with its
// geohash and center in the properties.
func (c Cell) Feature() (Feature, error) {
	ring := [][]float64{
		{c.MinLon, c.MinLat},
		{c.MaxLon, c.MinLat},
		{c.MaxLon, c.MaxLat},
		{c.MinLon, c.MaxLat},
		{c.MinLon, c.MinLat},
	}
	coords, err := json.Marshal([][][]float64{ring})
	if err != nil {
		return Feature{}, err
	}
	return Feature{
		Type:     "Feature",
		Geometry: Geometry{Type: "Polygon", Coordinates: coords},
		Properties: map[string]any{
			"geohash":    c.Geohash,
			"center_lat": c.Lat,
			"center_lon": c.Lon,
		},
	}, nil
}

// GridFeatureCollection renders cells as a GeoJSON FeatureCollection.
func GridFeatureCollection(cells []Cell) (FeatureCollection, error) {
	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(cells))}
	for _, c := range cells {
		f, err := c.Feature()
		if err != nil {
			return FeatureCollection{}, err
		}
		fc.Features = append(fc.Features, f)
	}
	return fc, nil
}
