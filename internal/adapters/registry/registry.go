// Package registry loads the station registry CSV (C2): the mapping from
// city name and station code to forecast/venue/NOAA identity.
package registry

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/corwinb/skyedge/internal/domain"
)

// Registry is a read-only, in-memory index over the station CSV, keyed by
// station code and by lower-cased city name.
type Registry struct {
	mu        sync.RWMutex
	byCode    map[string]domain.Station
	byCityLow map[string]domain.Station
}

// Load reads the station registry at path. A missing or unreadable file is
// not fatal: it logs a warning and returns an empty registry, matching the
// rest of this system's tolerance for absent optional inputs.
func Load(path string, log *slog.Logger) (*Registry, error) {
	r := &Registry{
		byCode:    make(map[string]domain.Station),
		byCityLow: make(map[string]domain.Station),
	}

	f, err := os.Open(path)
	if err != nil {
		log.Warn("registry: could not open station file, continuing with empty registry", "path", path, "err", err)
		return r, nil
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		log.Warn("registry: could not read header, continuing with empty registry", "path", path, "err", err)
		return r, nil
	}
	idx := indexHeader(header)

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn("registry: skipping malformed row", "path", path, "err", err)
			continue
		}
		st, ok := parseRow(row, idx)
		if !ok {
			continue
		}
		r.byCode[st.StationCode] = st
		r.byCityLow[strings.ToLower(st.City)] = st
	}

	return r, nil
}

func indexHeader(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func col(row []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseRow(row []string, idx map[string]int) (domain.Station, bool) {
	code := col(row, idx, "station_code")
	if code == "" {
		return domain.Station{}, false
	}
	lat, err1 := strconv.ParseFloat(col(row, idx, "lat"), 64)
	lon, err2 := strconv.ParseFloat(col(row, idx, "lon"), 64)
	if err1 != nil || err2 != nil {
		return domain.Station{}, false
	}
	return domain.Station{
		City:        col(row, idx, "city"),
		StationName: col(row, idx, "station_name"),
		StationCode: code,
		Lat:         lat,
		Lon:         lon,
		NOAAStation: col(row, idx, "noaa_station"),
		VenueHint:   col(row, idx, "venue_hint"),
		TimeZone:    col(row, idx, "time_zone"),
	}, true
}

// ByCode looks up a station by its exact station code.
func (r *Registry) ByCode(code string) (domain.Station, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.byCode[code]
	return st, ok
}

// ByCity looks up a station by case-insensitive city name.
func (r *Registry) ByCity(city string) (domain.Station, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.byCityLow[strings.ToLower(city)]
	return st, ok
}

// Len returns the number of stations currently loaded.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byCode)
}

// All returns every loaded station, in no particular order.
func (r *Registry) All() []domain.Station {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Station, 0, len(r.byCode))
	for _, st := range r.byCode {
		out = append(out, st)
	}
	return out
}

// ByTimeZone returns every loaded station whose IANA time zone is exactly
// tz, in no particular order.
func (r *Registry) ByTimeZone(tz string) []domain.Station {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Station
	for _, st := range r.byCode {
		if st.TimeZone == tz {
			out = append(out, st)
		}
	}
	return out
}

var errNotFound = fmt.Errorf("registry: station not found")

// MustByCode is a convenience wrapper returning an error instead of a bool.
func (r *Registry) MustByCode(code string) (domain.Station, error) {
	st, ok := r.ByCode(code)
	if !ok {
		return domain.Station{}, fmt.Errorf("%w: %s", errNotFound, code)
	}
	return st, nil
}
