package ports

import (
	"time"

	"github.com/corwinb/skyedge/internal/domain"
)

// ForecastSnapshotReader is an optional capability of a Snapshotter: reading
// back the earliest forecast snapshot saved for (station, eventDay). The
// backtester prefers this over a live forecast fetch when one exists, since
// it reflects what was actually forecast at decision time rather than
// today's hindsight-laden reforecast of a past day.
type ForecastSnapshotReader interface {
	// LoadEarliestForecast returns the points from the earliest-timestamped
	// forecast snapshot saved for (station, eventDay). ok is false when no
	// snapshot was ever saved for that pair.
	LoadEarliestForecast(station string, eventDay time.Time) (forecast domain.Forecast, ok bool, err error)
}
