package ports

import (
	"context"
	"time"

	"github.com/corwinb/skyedge/internal/domain"
)

// MarketFetcher wraps the venue's market-discovery and pricing endpoints.
type MarketFetcher interface {
	// HaveOpenMarkets is a cheap pre-check; when it returns false the caller
	// should skip the cycle for that (city, eventDay).
	HaveOpenMarkets(ctx context.Context, city string, eventDay time.Time) (bool, error)

	// FetchMarket returns the current bracket set and, aligned by index,
	// current mid-prices. A per-bracket price-fetch failure is represented
	// as a nil entry in prices rather than aborting the whole call.
	FetchMarket(ctx context.Context, city string, eventDay time.Time) (brackets []domain.Bracket, prices []*float64, err error)

	// FetchDepth returns the bid-side USD depth for the given market IDs,
	// keyed by market ID. Markets the venue has no book for are omitted.
	FetchDepth(ctx context.Context, marketIDs []string) (map[string]float64, error)
}
