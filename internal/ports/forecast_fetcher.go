package ports

import (
	"context"
	"time"

	"github.com/corwinb/skyedge/internal/domain"
)

// ForecastFetcher wraps the forecast provider behind a just-in-time
// contract: 24 hours of hourly forecast starting at local midnight of
// eventDay for the given station.
type ForecastFetcher interface {
	FetchForecast(ctx context.Context, station domain.Station, eventDay time.Time) (domain.Forecast, error)
}
