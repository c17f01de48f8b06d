package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agroclim/climate-grid/internal/config"
	"github.com/agroclim/climate-grid/internal/observability"
	"github.com/agroclim/climate-grid/internal/store"
)

// fakeStore satisfies the Store interface with canned data and errors.
type fakeStore struct {
	points  []store.PPIPoint
	cells   []store.GridCell
	latest  []store.LatestClimateRow
	weeks   []store.WeeklySummaryRow
	err     error
	deleted []string

	lastGridLimit int
	lastWeekLimit int
	lastDaily     []store.DailyRecord
	lastWeekly    []store.WeeklyAggregate
}

func (f *fakeStore) ListPPIPoints(context.Context) ([]store.PPIPoint, error) {
	return f.points, f.err
}

func (f *fakeStore) ListGridCells(_ context.Context, limit int) ([]store.GridCell, error) {
	f.lastGridLimit = limit
	return f.cells, f.err
}

func (f *fakeStore) UpsertGridCells(_ context.Context, cells []store.GridCell) error {
	f.cells = append(f.cells, cells...)
	return f.err
}

func (f *fakeStore) DeleteGridCell(_ context.Context, geohash string) error {
	f.deleted = append(f.deleted, geohash)
	return f.err
}

func (f *fakeStore) UpsertDailyRecords(_ context.Context, records []store.DailyRecord) (int64, error) {
	f.lastDaily = records
	return int64(len(records)), f.err
}

func (f *fakeStore) UpsertWeeklyAggregates(_ context.Context, aggregates []store.WeeklyAggregate) error {
	f.lastWeekly = aggregates
	return f.err
}

func (f *fakeStore) LatestClimate(context.Context) ([]store.LatestClimateRow, error) {
	return f.latest, f.err
}

func (f *fakeStore) WeeklySummary(_ context.Context, limit int) ([]store.WeeklySummaryRow, error) {
	f.lastWeekLimit = limit
	return f.weeks, f.err
}

func testServer(t *testing.T, st *fakeStore, bearerToken string) *Server {
	t.Helper()
	cfg := config.Config{DefaultLimit: 200, BearerToken: bearerToken}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(cfg, st, observability.NewMetricsForTesting(), logger)
}

func doRequest(s *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := testServer(t, &fakeStore{}, "")
	rec := doRequest(s, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListPPI(t *testing.T) {
	name := "Bouhertma 3"
	st := &fakeStore{points: []store.PPIPoint{
		{Geohash: "snwm7p0", Name: &name, Lat: 36.572811, Lon: 8.996081},
	}}
	s := testServer(t, st, "")

	rec := doRequest(s, http.MethodGet, "/ppi", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count  int              `json:"count"`
		Points []store.PPIPoint `json:"points"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Points, 1)
	assert.Equal(t, "snwm7p0", resp.Points[0].Geohash)
}

func TestListGrid_DefaultLimit(t *testing.T) {
	st := &fakeStore{}
	s := testServer(t, st, "")

	rec := doRequest(s, http.MethodGet, "/grid", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 200, st.lastGridLimit)
}

func TestListGrid_InvalidLimit(t *testing.T) {
	s := testServer(t, &fakeStore{}, "")

	for _, limit := range []string{"abc", "0", "-5"} {
		rec := doRequest(s, http.MethodGet, "/grid?limit="+limit, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", limit)
	}
}

func TestLatestClimate(t *testing.T) {
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	tmin := 3.0
	st := &fakeStore{latest: []store.LatestClimateRow{
		{Geohash: "u0k1", Lat: 36.5725, Lon: 8.8855, Date: &date, Tmin: &tmin},
		{Geohash: "u0k2", Lat: 36.5735, Lon: 8.8855},
	}}
	s := testServer(t, st, "")

	rec := doRequest(s, http.MethodGet, "/climate/latest", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count int                      `json:"count"`
		Cells []store.LatestClimateRow `json:"cells"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	require.NotNil(t, resp.Cells[0].Tmin)
	assert.Nil(t, resp.Cells[1].Tmin)
}

func TestWeeklySummary_CustomLimit(t *testing.T) {
	st := &fakeStore{}
	s := testServer(t, st, "")

	rec := doRequest(s, http.MethodGet, "/climate/weekly?limit=25", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 25, st.lastWeekLimit)
}

func TestBearerAuth(t *testing.T) {
	s := testServer(t, &fakeStore{}, "secret")

	// No token.
	rec := doRequest(s, http.MethodDelete, "/grid/u0k1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong token.
	rec = doRequest(s, http.MethodDelete, "/grid/u0k1", "", map[string]string{
		"Authorization": "Bearer wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Correct token.
	rec = doRequest(s, http.MethodDelete, "/grid/u0k1", "", map[string]string{
		"Authorization": "Bearer secret",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Reads stay open.
	rec = doRequest(s, http.MethodGet, "/climate/latest", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpsertGridCell(t *testing.T) {
	st := &fakeStore{}
	s := testServer(t, st, "")

	body := `{"lat": 36.5725, "lon": 8.8855, "polygon_wkt": "POLYGON((8.885 36.572, 8.886 36.572, 8.886 36.573, 8.885 36.573, 8.885 36.572))"}`
	rec := doRequest(s, http.MethodPut, "/grid/u0k1", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, st.cells, 1)
	assert.Equal(t, "u0k1", st.cells[0].Geohash)
	assert.Equal(t, 36.5725, st.cells[0].Lat)
	require.NotNil(t, st.cells[0].PolygonWKT)
}

func TestUpsertGridCell_MissingLat(t *testing.T) {
	s := testServer(t, &fakeStore{}, "")

	rec := doRequest(s, http.MethodPut, "/grid/u0k1", `{"lon": 8.8855}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpsertGridCell_InvalidGeometry(t *testing.T) {
	s := testServer(t, &fakeStore{err: store.ErrInvalidGeometry}, "")

	body := `{"lat": 36.5725, "lon": 8.8855, "polygon_wkt": "POLYGON((not wkt"}`
	rec := doRequest(s, http.MethodPut, "/grid/u0k1", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteGridCell_NotFound(t *testing.T) {
	s := testServer(t, &fakeStore{err: store.ErrNotFound}, "")

	rec := doRequest(s, http.MethodDelete, "/grid/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpsertDaily(t *testing.T) {
	st := &fakeStore{}
	s := testServer(t, st, "")

	body := `[
		{"geohash": "u0k1", "date": "2024-01-01", "tmin": 2, "tmax": 8},
		{"geohash": "u0k1", "date": "2024-01-01", "tmin": 99},
		{"geohash": "u0k1", "date": "2024-01-02", "tmin": 3}
	]`
	rec := doRequest(s, http.MethodPost, "/climate/daily", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Duplicate (geohash, date) entries collapse before the store write.
	require.Len(t, st.lastDaily, 2)
	require.NotNil(t, st.lastDaily[0].Tmin)
	assert.Equal(t, 2.0, *st.lastDaily[0].Tmin)
}

func TestUpsertDaily_BadPayloads(t *testing.T) {
	s := testServer(t, &fakeStore{}, "")

	tests := []struct {
		name string
		body string
	}{
		{"empty list", `[]`},
		{"not a list", `{"geohash": "u0k1"}`},
		{"bad date", `[{"geohash": "u0k1", "date": "01/02/2024"}]`},
		{"missing geohash", `[{"date": "2024-01-01"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(s, http.MethodPost, "/climate/daily", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestUpsertDaily_MissingGridCell(t *testing.T) {
	s := testServer(t, &fakeStore{err: store.ErrMissingGridCell}, "")

	body := `[{"geohash": "zzzz", "date": "2024-01-01", "tmin": 2}]`
	rec := doRequest(s, http.MethodPost, "/climate/daily", body, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUpsertWeekly(t *testing.T) {
	st := &fakeStore{}
	s := testServer(t, st, "")

	body := `{"geohash": "u0k1", "start_date": "2024-01-01", "end_date": "2024-01-07", "avg_tmin": 3.5, "total_rain": 12.4}`
	rec := doRequest(s, http.MethodPost, "/climate/weekly", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, st.lastWeekly, 1)
	agg := st.lastWeekly[0]
	assert.Equal(t, "u0k1", agg.Geohash)
	assert.Equal(t, time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), agg.EndDate)
	require.NotNil(t, agg.TotalRain)
	assert.Equal(t, 12.4, *agg.TotalRain)
}

func TestUpsertWeekly_EndBeforeStart(t *testing.T) {
	s := testServer(t, &fakeStore{}, "")

	body := `{"geohash": "u0k1", "start_date": "2024-01-07", "end_date": "2024-01-01"}`
	rec := doRequest(s, http.MethodPost, "/climate/weekly", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := testServer(t, &fakeStore{}, "")

	rec := doRequest(s, http.MethodOptions, "/grid", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
