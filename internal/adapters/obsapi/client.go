// Package obsapi implements ports.ObservationFetcher against the METAR
// observation provider.
package obsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/corwinb/skyedge/internal/adapters/httpx"
	"github.com/corwinb/skyedge/internal/domain"
)

// Client fetches station observations for the current event day only;
// callers are responsible for not invoking it for past or future days.
type Client struct {
	base string
	hc   *httpx.Client
}

// New returns a Client against base.
func New(base string) *Client {
	return &Client{base: base, hc: httpx.New(5, 10)}
}

type rawObservation struct {
	Station     string  `json:"station"`
	IcaoID      string  `json:"icaoId"`
	Time        string  `json:"time"`
	ObsTime     string  `json:"obsTime"`
	Temp        float64 `json:"temp"`
	Dewpoint    *float64 `json:"dewpoint"`
	WindDir     *int     `json:"windDir"`
	WindSpeed   *float64 `json:"windSpeed"`
	RawOb       string  `json:"rawOb"`
}

// FetchObservations fetches every observation for station within the local
// calendar day eventDay. A 204 response is treated as "no data" rather than
// an error.
func (c *Client) FetchObservations(ctx context.Context, station domain.Station, eventDay time.Time) ([]domain.Observation, error) {
	zone, err := domain.LoadZone(station.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("obsapi: load zone %q: %w", station.TimeZone, err)
	}
	start, end, err := domain.LocalDayWindowUTC(eventDay, zone)
	if err != nil {
		return nil, fmt.Errorf("obsapi: window: %w", err)
	}

	q := url.Values{}
	q.Set("ids", station.StationCode)
	q.Set("start", start.Format(time.RFC3339))
	q.Set("end", end.Format(time.RFC3339))
	q.Set("format", "json")
	reqURL := c.base + "/metar?" + q.Encode()

	resp, body, err := c.hc.Do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("obsapi: fetch: %w", err)
	}
	if resp.StatusCode == http.StatusNoContent || len(body) == 0 {
		return nil, nil
	}

	var raws []rawObservation
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("obsapi: decode: %w", err)
	}

	out := make([]domain.Observation, 0, len(raws))
	for _, r := range raws {
		obs, ok := fromRaw(r, station.StationCode)
		if !ok {
			continue
		}
		out = append(out, obs)
	}
	return out, nil
}

func fromRaw(r rawObservation, fallbackCode string) (domain.Observation, bool) {
	code := r.Station
	if code == "" {
		code = r.IcaoID
	}
	if code == "" {
		code = fallbackCode
	}

	tsStr := r.Time
	if tsStr == "" {
		tsStr = r.ObsTime
	}
	ts, err := time.Parse(time.RFC3339, tsStr)
	if err != nil {
		return domain.Observation{}, false
	}

	return domain.Observation{
		StationCode: code,
		TimeUTC:     ts.UTC(),
		TempC:       r.Temp,
		TempF:       roundTo1(domain.CelsiusToFahrenheit(r.Temp)),
		DewpointC:   r.Dewpoint,
		WindDirDeg:  r.WindDir,
		WindSpeedKt: r.WindSpeed,
		RawText:     r.RawOb,
	}, true
}

func roundTo1(f float64) float64 {
	return math.Round(f*10) / 10
}
