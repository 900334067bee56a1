package ports

import (
	"time"

	"github.com/corwinb/skyedge/internal/domain"
)

// SnapshotReader is an optional capability of a Snapshotter: reading back
// the earliest market snapshot saved for (city, eventDay) — the
// backtester's highest-priority price source, since it reflects the price
// actually observable at decision time rather than today's price or a
// closed market's settlement history.
type SnapshotReader interface {
	// LoadEarliestMarket returns the bracket quotes from the
	// earliest-timestamped market snapshot saved for (city, eventDay).
	// ok is false when no snapshot was ever saved for that pair.
	LoadEarliestMarket(city string, eventDay time.Time) (quotes []domain.BracketQuote, ok bool, err error)
}
