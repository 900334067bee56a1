package ports

import (
	"context"
	"time"

	"github.com/corwinb/skyedge/internal/domain"
)

// ObservationFetcher wraps the station-observation provider.
// FetchObservations does not check eventDay against today: it queries the
// upstream for whatever day it is given. The engine calls it only when the
// event day is the cycle's own day.
type ObservationFetcher interface {
	FetchObservations(ctx context.Context, station domain.Station, eventDay time.Time) ([]domain.Observation, error)
}
