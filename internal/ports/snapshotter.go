package ports

import (
	"time"

	"github.com/corwinb/skyedge/internal/domain"
)

// Snapshotter writes the four timestamped replay streams (C7). All writes
// are synchronous and full-file; callers never mutate a written snapshot.
type Snapshotter interface {
	SaveForecast(station string, eventDay time.Time, cycleTime time.Time, f domain.Forecast) error
	SaveMarket(city string, eventDay time.Time, cycleTime time.Time, quotes []domain.BracketQuote) error
	SaveDecisions(station string, eventDay time.Time, cycleTime time.Time, decisions []domain.EdgeDecision) error
	SaveObservation(station string, eventDay time.Time, obs domain.Observation) error
}
