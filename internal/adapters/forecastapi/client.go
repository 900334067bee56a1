// Package forecastapi implements ports.ForecastFetcher against the hourly
// temperature forecast provider.
package forecastapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/corwinb/skyedge/internal/adapters/httpx"
	"github.com/corwinb/skyedge/internal/domain"
)

const predictHours = 24

// Client fetches daily-high-relevant hourly forecasts for a station.
type Client struct {
	base   string
	apiKey string
	hc     *httpx.Client
}

// New returns a Client against base, authenticating with apiKey.
// ratePerSec/burst size the token bucket for this provider.
func New(base, apiKey string, ratePerSec float64, burst int) *Client {
	return &Client{base: base, apiKey: apiKey, hc: httpx.New(ratePerSec, burst)}
}

// legacyShape is the provider's older {forecast:[{time,temperature_k}]} body.
type legacyShape struct {
	Forecast []struct {
		Time         json.RawMessage `json:"time"`
		TemperatureK float64         `json:"temperature_k"`
	} `json:"forecast"`
}

// parallelShape is the provider's columnar {2m_temperature:{data:[...]}, time:{data:[...]}} body.
type parallelShape struct {
	Temperature struct {
		Data []float64 `json:"data"`
	} `json:"2m_temperature"`
	Time struct {
		Data []json.RawMessage `json:"data"`
	} `json:"time"`
}

// FetchForecast requests predictHours of hourly forecast starting at the
// local start of eventDay for station, decoding whichever of the two
// response shapes the provider returns.
func (c *Client) FetchForecast(ctx context.Context, station domain.Station, eventDay time.Time) (domain.Forecast, error) {
	zone, err := domain.LoadZone(station.TimeZone)
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("forecastapi: load zone %q: %w", station.TimeZone, err)
	}
	startLocal, _, err := domain.LocalDayWindowUTC(eventDay, zone)
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("forecastapi: window: %w", err)
	}
	startLocalInZone := startLocal.In(zone)

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(station.Lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(station.Lon, 'f', -1, 64))
	q.Set("variable", "2m_temperature")
	q.Set("start_time", startLocalInZone.Format(time.RFC3339))
	q.Set("predict_hours", strconv.Itoa(predictHours))

	reqURL := c.base + "/forecast?" + q.Encode()

	_, body, err := c.hc.Do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		return req, nil
	})
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("forecastapi: fetch: %w", err)
	}

	points, err := decodePoints(body)
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("forecastapi: decode: %w", err)
	}

	return domain.Forecast{
		StationCode: station.StationCode,
		Lat:         station.Lat,
		Lon:         station.Lon,
		Points:      points,
	}, nil
}

func decodePoints(body []byte) ([]domain.ForecastPoint, error) {
	var legacy legacyShape
	if err := json.Unmarshal(body, &legacy); err == nil && len(legacy.Forecast) > 0 {
		points := make([]domain.ForecastPoint, 0, len(legacy.Forecast))
		for _, p := range legacy.Forecast {
			t, err := parseTimestamp(p.Time)
			if err != nil {
				return nil, err
			}
			points = append(points, domain.ForecastPoint{TimeUTC: t, TempKelvin: p.TemperatureK})
		}
		return points, nil
	}

	var parallel parallelShape
	if err := json.Unmarshal(body, &parallel); err == nil && len(parallel.Temperature.Data) > 0 {
		if len(parallel.Temperature.Data) != len(parallel.Time.Data) {
			return nil, fmt.Errorf("mismatched series lengths: %d temps, %d times", len(parallel.Temperature.Data), len(parallel.Time.Data))
		}
		points := make([]domain.ForecastPoint, 0, len(parallel.Temperature.Data))
		for i, k := range parallel.Temperature.Data {
			t, err := parseTimestamp(parallel.Time.Data[i])
			if err != nil {
				return nil, err
			}
			points = append(points, domain.ForecastPoint{TimeUTC: t, TempKelvin: k})
		}
		return points, nil
	}

	return nil, fmt.Errorf("unrecognized forecast response shape")
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UTC(), nil
		}
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return time.Unix(int64(f), 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", string(raw))
}
