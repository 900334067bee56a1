package ports

import "context"

// PriceHistoryFetcher is an optional capability of a venue adapter: the
// backtester's price-priority chain falls back to this when a bracket has
// no snapshotted price, and consults it before the live mid-price.
type PriceHistoryFetcher interface {
	// FetchPriceHistory returns the hourly price series for a closed
	// market; the first element is the opening price, which the
	// backtester treats as the price available at decision time.
	FetchPriceHistory(ctx context.Context, marketID string) ([]float64, error)
}
