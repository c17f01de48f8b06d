// Package power fetches daily agroclimate observations from the NASA
// POWER temporal API.
package power

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	// DefaultBaseURL is the NASA POWER daily point endpoint.
	DefaultBaseURL = "https://power.larc.nasa.gov/api/temporal/daily/point"

	// DefaultLagDays keeps requests behind the POWER publication lag;
	// asking for more recent dates returns 422s.
	DefaultLagDays = 3

	// parameters requested for every fetch, AG community naming.
	parameters = "T2M_MAX,T2M_MIN,PRECTOTCORR,ALLSKY_SFC_SW_DWN,RH2M,WS2M"

	missingValue = -999.0
	dateLayout   = "20060102"
)

// Observation is one day of POWER data for a point. Fields the API
// reports as -999 are nil.
type Observation struct {
	Date      time.Time
	Tmin      *float64
	Tmax      *float64
	Radiation *float64
	Rain      *float64
	RH        *float64
	Wind      *float64
}

// Client calls the POWER daily point API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	lagDays    int
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewClient creates a POWER client. baseURL and lagDays fall back to
// the defaults when zero-valued.
func NewClient(timeout time.Duration, baseURL string, lagDays int, clock clockwork.Clock, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if lagDays <= 0 {
		lagDays = DefaultLagDays
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		lagDays:    lagDays,
		clock:      clock,
		logger:     logger,
	}
}

// Window returns the fetch date range for a request of days length,
// ending lagDays behind the current date.
func (c *Client) Window(days int) (start, end time.Time) {
	now := c.clock.Now().UTC()
	end = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -c.lagDays)
	start = end.AddDate(0, 0, -(days - 1))
	return start, end
}

// FetchDaily returns the last days of observations for a point. A
// point the API has no data for yields an empty slice, not an error.
func (c *Client) FetchDaily(ctx context.Context, lat, lon float64, days int) ([]Observation, error) {
	start, end := c.Window(days)

	params := url.Values{
		"parameters": {parameters},
		"community":  {"AG"},
		"start":      {start.Format(dateLayout)},
		"end":        {end.Format(dateLayout)},
		"latitude":   {fmt.Sprintf("%.6f", lat)},
		"longitude":  {fmt.Sprintf("%.6f", lon)},
		"format":     {"JSON"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("power request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("power API error: status %d: %s", resp.StatusCode, body)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	series := payload.Properties.Parameter
	tmin := series["T2M_MIN"]
	if len(tmin) == 0 {
		c.logger.Warn("no power data for point", "lat", lat, "lon", lon)
		return []Observation{}, nil
	}

	dates := make([]string, 0, len(tmin))
	for d := range tmin {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make([]Observation, 0, len(dates))
	for _, d := range dates {
		day, err := time.Parse(dateLayout, d)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", d, err)
		}
		out = append(out, Observation{
			Date:      day,
			Tmin:      sample(series, "T2M_MIN", d),
			Tmax:      sample(series, "T2M_MAX", d),
			Radiation: sample(series, "ALLSKY_SFC_SW_DWN", d),
			Rain:      sample(series, "PRECTOTCORR", d),
			RH:        sample(series, "RH2M", d),
			Wind:      sample(series, "WS2M", d),
		})
	}
	return out, nil
}

func sample(series map[string]map[string]float64, param, date string) *float64 {
	v, ok := series[param][date]
	if !ok || v == missingValue {
		return nil
	}
	return &v
}

// POWER API response shape.

type response struct {
	Properties struct {
		Parameter map[string]map[string]float64 `json:"parameter"`
	} `json:"properties"`
}
