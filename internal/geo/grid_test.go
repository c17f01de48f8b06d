package geo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The two Jendouba reservoir points the production grid is seeded from.
var jendoubaPoints = []Point{
	{Lat: 36.572811, Lon: 8.996081}, // Bouhertma 3
	{Lat: 36.604882, Lon: 8.885523}, // El Brahmi
}

func TestBBoxOf(t *testing.T) {
	bbox, err := BBoxOf(jendoubaPoints)
	require.NoError(t, err)

	assert.Equal(t, 36.572811, bbox.MinLat)
	assert.Equal(t, 36.604882, bbox.MaxLat)
	assert.Equal(t, 8.885523, bbox.MinLon)
	assert.Equal(t, 8.996081, bbox.MaxLon)
}

func TestBBoxOf_Empty(t *testing.T) {
	_, err := BBoxOf(nil)
	require.Error(t, err)
}

func TestBuildGrid(t *testing.T) {
	bbox, err := BBoxOf(jendoubaPoints)
	require.NoError(t, err)

	cells := BuildGrid(bbox, DefaultStepDeg, DefaultGeohashPrecision)
	require.NotEmpty(t, cells)

	for _, c := range cells {
		assert.Len(t, c.Geohash, DefaultGeohashPrecision)
		assert.Greater(t, c.Lat, bbox.MinLat)
		assert.Less(t, c.Lon, bbox.MaxLon+DefaultStepDeg)
		assert.InDelta(t, c.MinLat+DefaultStepDeg/2, c.Lat, 1e-9)
		assert.InDelta(t, c.MinLon+DefaultStepDeg/2, c.Lon, 1e-9)
	}
}

func TestBuildGrid_GeohashDeterministic(t *testing.T) {
	bbox := BBox{MinLat: 36.57, MinLon: 8.88, MaxLat: 36.58, MaxLon: 8.89}

	a := BuildGrid(bbox, DefaultStepDeg, DefaultGeohashPrecision)
	b := BuildGrid(bbox, DefaultStepDeg, DefaultGeohashPrecision)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Geohash, b[i].Geohash)
	}
}

func TestCellWKT_ClosedRing(t *testing.T) {
	c := Cell{MinLat: 36.572, MinLon: 8.885, MaxLat: 36.573, MaxLon: 8.886}
	wkt := c.WKT()

	assert.True(t, strings.HasPrefix(wkt, "POLYGON(("))
	assert.True(t, strings.HasSuffix(wkt, "))"))

	inner := strings.TrimSuffix(strings.TrimPrefix(wkt, "POLYGON(("), "))")
	coords := strings.Split(inner, ", ")
	require.Len(t, coords, 5)
	assert.Equal(t, coords[0], coords[4])
	assert.Equal(t, "8.885 36.572", coords[0])
}

func TestEncode_KnownLocation(t *testing.T) {
	// Bouhertma 3 reservoir.
	gh := Encode(36.572811, 8.996081, 7)
	assert.Len(t, gh, 7)
	assert.True(t, strings.HasPrefix(gh, "sn"))
}
