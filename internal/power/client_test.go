package power

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClock() clockwork.Clock {
	return clockwork.NewFakeClockAt(time.Date(2024, 1, 15, 12, 30, 0, 0, time.UTC))
}

func payload(params map[string]map[string]float64) []byte {
	data, _ := json.Marshal(map[string]any{
		"properties": map[string]any{"parameter": params},
	})
	return data
}

func TestWindow(t *testing.T) {
	c := NewClient(5*time.Second, "", DefaultLagDays, testClock(), testLogger())

	start, end := c.Window(7)
	assert.Equal(t, time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC), end)
	assert.Equal(t, time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC), start)
}

func TestFetchDaily_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "20240106", q.Get("start"))
		assert.Equal(t, "20240112", q.Get("end"))
		assert.Equal(t, "AG", q.Get("community"))
		assert.Equal(t, parameters, q.Get("parameters"))
		assert.Equal(t, "36.572811", q.Get("latitude"))

		_, _ = w.Write(payload(map[string]map[string]float64{
			"T2M_MIN":           {"20240106": 4.2, "20240107": 5.1},
			"T2M_MAX":           {"20240106": 14.8, "20240107": 16.0},
			"PRECTOTCORR":       {"20240106": 0.0, "20240107": 3.4},
			"ALLSKY_SFC_SW_DWN": {"20240106": 11.2, "20240107": -999.0},
			"RH2M":              {"20240106": 72.5, "20240107": 80.1},
			"WS2M":              {"20240106": 2.3, "20240107": 3.9},
		}))
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, srv.URL, DefaultLagDays, testClock(), testLogger())
	obs, err := c.FetchDaily(context.Background(), 36.572811, 8.996081, 7)
	require.NoError(t, err)
	require.Len(t, obs, 2)

	assert.Equal(t, time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC), obs[0].Date)
	require.NotNil(t, obs[0].Tmin)
	assert.Equal(t, 4.2, *obs[0].Tmin)
	require.NotNil(t, obs[0].Radiation)
	assert.Equal(t, 11.2, *obs[0].Radiation)

	// -999 sentinel maps to nil.
	assert.Nil(t, obs[1].Radiation)
	require.NotNil(t, obs[1].Rain)
	assert.Equal(t, 3.4, *obs[1].Rain)
}

func TestFetchDaily_NoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload(map[string]map[string]float64{}))
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, srv.URL, DefaultLagDays, testClock(), testLogger())
	obs, err := c.FetchDaily(context.Background(), 0, 0, 7)
	require.NoError(t, err)
	assert.Empty(t, obs)
}

func TestFetchDaily_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"dates out of range"}`))
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, srv.URL, DefaultLagDays, testClock(), testLogger())
	_, err := c.FetchDaily(context.Background(), 36.57, 8.99, 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestFetchDaily_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(50*time.Millisecond, srv.URL, DefaultLagDays, testClock(), testLogger())
	_, err := c.FetchDaily(context.Background(), 36.57, 8.99, 7)
	require.Error(t, err)
}
