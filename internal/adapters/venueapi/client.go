// Package venueapi implements ports.MarketFetcher and ports.Resolver
// against the prediction-market venue's Gamma (discovery/resolution) and
// CLOB (pricing/depth) HTTP APIs.
package venueapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/corwinb/skyedge/internal/adapters/httpx"
	"github.com/corwinb/skyedge/internal/domain"
	"github.com/corwinb/skyedge/internal/ports"
)

// Client talks to the Gamma discovery/resolution API and the CLOB
// pricing/depth API, each through its own rate limiter since discovery is
// called far less often than pricing within a cycle.
type Client struct {
	gammaBase string
	clobBase  string

	discovery *httpx.Client
	pricing   *httpx.Client
	books     *httpx.Client
}

// New returns a Client against the given Gamma and CLOB base URLs.
func New(gammaBase, clobBase string) *Client {
	return &Client{
		gammaBase: gammaBase,
		clobBase:  clobBase,
		discovery: httpx.New(2, 4),
		pricing:   httpx.New(10, 20),
		books:     httpx.New(10, 20),
	}
}

// gammaMarket is the subset of a Gamma API market object this adapter reads.
type gammaMarket struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	ClobTokenIDs  string   `json:"clobTokenIds"` // JSON-encoded array of token IDs, as a string
	Closed        bool     `json:"closed"`
	Resolved      bool     `json:"resolved"`
	Status        string   `json:"status"`
	Outcomes      string   `json:"outcomes"`      // JSON-encoded array of outcome names
	OutcomePrices string   `json:"outcomePrices"` // JSON-encoded array of price strings
}

type gammaEvent struct {
	Markets []gammaMarket `json:"markets"`
}

// eventSlugPatterns returns the deterministic slug candidates for city on
// eventDay, tried in priority order. city must already be normalized
// (lower-kebab) by the caller's registry entry or this falls back to a
// simple lower-case/hyphenate transform.
func eventSlugPatterns(city string, eventDay time.Time) []string {
	slugCity := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(city), " ", "-"))
	month := strings.ToLower(eventDay.Format("January"))
	day := eventDay.Day()

	patterns := []string{
		fmt.Sprintf("highest-temperature-in-%s-on-%s-%d", slugCity, month, day),
	}

	aliases := nycAliases(slugCity)
	for _, alias := range aliases {
		patterns = append(patterns, fmt.Sprintf("highest-temperature-in-%s-on-%s-%d", alias, month, day))
	}
	return patterns
}

func nycAliases(slugCity string) []string {
	switch slugCity {
	case "new-york", "nyc", "new-york-city":
		return []string{"nyc", "new-york-city"}
	default:
		return nil
	}
}

func (c *Client) eventURL(slug string) string {
	return c.gammaBase + "/events/slug/" + url.PathEscape(slug)
}

// findEvent tries each slug pattern for (city, eventDay) in order, returning
// the first event found. A 404 on a pattern is not an error: it just means
// try the next pattern. Returns (nil, nil) if no pattern matches.
func (c *Client) findEvent(ctx context.Context, city string, eventDay time.Time) (*gammaEvent, error) {
	for _, slug := range eventSlugPatterns(city, eventDay) {
		_, body, err := c.discovery.Do(ctx, func() (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, c.eventURL(slug), nil)
		})
		if err != nil {
			var serr *httpx.StatusError
			if asStatusError(err, &serr) && serr.StatusCode == http.StatusNotFound {
				continue
			}
			return nil, fmt.Errorf("venueapi: discover %q: %w", slug, err)
		}

		ev, ok := decodeEventResponse(body)
		if !ok || len(ev.Markets) == 0 {
			continue
		}
		return ev, nil
	}
	return nil, nil
}

func asStatusError(err error, target **httpx.StatusError) bool {
	se, ok := err.(*httpx.StatusError)
	if ok {
		*target = se
	}
	return ok
}

// decodeEventResponse handles both the array-of-events and single-event
// Gamma response shapes.
func decodeEventResponse(body []byte) (*gammaEvent, bool) {
	var single gammaEvent
	if err := json.Unmarshal(body, &single); err == nil && len(single.Markets) > 0 {
		return &single, true
	}
	var list []gammaEvent
	if err := json.Unmarshal(body, &list); err == nil && len(list) > 0 {
		return &list[0], true
	}
	return nil, false
}

// bracketQuestionPattern matches "N-M°F", "N–M°F" (en dash), "N - M°F",
// "N to M°F", and "N - M degrees", capturing the two integer bounds.
var bracketQuestionPattern = regexp.MustCompile(`(-?\d+)\s*(?:-|–|to)\s*(-?\d+)\s*(?:°F|degrees)`)

func parseBracketBounds(question string) (lower, upper int, ok bool) {
	m := bracketQuestionPattern.FindStringSubmatch(question)
	if m == nil {
		return 0, 0, false
	}
	lo, err1 := strconv.Atoi(m[1])
	hi, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil || !(0 < lo && lo < hi && hi < 150) {
		return 0, 0, false
	}
	return lo, hi, true
}

func firstTokenID(clobTokenIDsJSON string) string {
	var ids []string
	if err := json.Unmarshal([]byte(clobTokenIDsJSON), &ids); err == nil && len(ids) > 0 {
		return ids[0]
	}
	return ""
}

// HaveOpenMarkets is a cheap pre-check: does an event exist yet for
// (city, eventDay) with at least one non-closed market.
func (c *Client) HaveOpenMarkets(ctx context.Context, city string, eventDay time.Time) (bool, error) {
	ev, err := c.findEvent(ctx, city, eventDay)
	if err != nil {
		return false, err
	}
	if ev == nil {
		return false, nil
	}
	for _, m := range ev.Markets {
		if !m.Closed {
			return true, nil
		}
	}
	return false, nil
}

// FetchMarket returns the bracket set for (city, eventDay) parsed from each
// market's question text, and the current midpoint price for each.
func (c *Client) FetchMarket(ctx context.Context, city string, eventDay time.Time) ([]domain.Bracket, []*float64, error) {
	ev, err := c.findEvent(ctx, city, eventDay)
	if err != nil {
		return nil, nil, err
	}
	if ev == nil {
		return nil, nil, nil
	}

	var brackets []domain.Bracket
	for _, m := range ev.Markets {
		lo, hi, ok := parseBracketBounds(m.Question)
		if !ok {
			continue
		}
		tokenID := firstTokenID(m.ClobTokenIDs)
		b := domain.NewBracket(lo, hi, m.ID, tokenID)
		b.Closed = m.Closed
		brackets = append(brackets, b)
	}

	prices := make([]*float64, len(brackets))
	for i, b := range brackets {
		if b.TokenID == "" {
			continue
		}
		p, err := c.fetchMidpoint(ctx, b.TokenID)
		if err != nil {
			continue // per-bracket price failure does not abort the whole fetch
		}
		prices[i] = &p
	}

	return brackets, prices, nil
}

func (c *Client) fetchMidpoint(ctx context.Context, tokenID string) (float64, error) {
	q := url.Values{}
	q.Set("token_id", tokenID)
	reqURL := c.clobBase + "/midpoint?" + q.Encode()

	_, body, err := c.pricing.Do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	})
	if err != nil {
		return 0, fmt.Errorf("venueapi: midpoint: %w", err)
	}

	var out struct {
		Mid string `json:"mid"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("venueapi: decode midpoint: %w", err)
	}
	mid, err := strconv.ParseFloat(out.Mid, 64)
	if err != nil {
		return 0, fmt.Errorf("venueapi: parse midpoint %q: %w", out.Mid, err)
	}
	if mid < 0 {
		mid = 0
	}
	if mid > 1 {
		mid = 1
	}
	return mid, nil
}

// FetchDepth returns bid-side USD depth for each of the given market IDs,
// resolved to their token IDs via a fresh book lookup. Markets the venue
// has no book for are omitted from the result.
func (c *Client) FetchDepth(ctx context.Context, tokenIDs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(tokenIDs))
	for _, tokenID := range tokenIDs {
		book, err := c.fetchBook(ctx, tokenID)
		if err != nil {
			continue
		}
		out[tokenID] = book.BidDepthUSD()
	}
	return out, nil
}

func (c *Client) fetchBook(ctx context.Context, tokenID string) (domain.OrderBook, error) {
	q := url.Values{}
	q.Set("token_id", tokenID)
	reqURL := c.clobBase + "/book?" + q.Encode()

	_, body, err := c.books.Do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	})
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("venueapi: book: %w", err)
	}

	var raw struct {
		Bids []struct {
			Price string `json:"price"`
			Size  string `json:"size"`
		} `json:"bids"`
		Asks []struct {
			Price string `json:"price"`
			Size  string `json:"size"`
		} `json:"asks"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.OrderBook{}, fmt.Errorf("venueapi: decode book: %w", err)
	}

	book := domain.OrderBook{TokenID: tokenID}
	for _, b := range raw.Bids {
		book.Bids = append(book.Bids, domain.BookEntry{
			Price: domain.ParsePrice(b.Price),
			Size:  domain.ParsePrice(b.Size),
		})
	}
	for _, a := range raw.Asks {
		book.Asks = append(book.Asks, domain.BookEntry{
			Price: domain.ParsePrice(a.Price),
			Size:  domain.ParsePrice(a.Size),
		})
	}
	return book, nil
}

// FetchPriceHistory returns the hourly price series for a closed market,
// used by the backtester's price-priority chain.
func (c *Client) FetchPriceHistory(ctx context.Context, marketID string) ([]float64, error) {
	q := url.Values{}
	q.Set("market", marketID)
	q.Set("interval", "1h")
	q.Set("fidelity", "24")
	reqURL := c.clobBase + "/prices-history?" + q.Encode()

	_, body, err := c.pricing.Do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("venueapi: price history: %w", err)
	}

	var raw []struct {
		P string `json:"p"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("venueapi: decode price history: %w", err)
	}
	out := make([]float64, 0, len(raw))
	for _, pt := range raw {
		out = append(out, domain.ParsePrice(pt.P))
	}
	return out, nil
}

// ResolveEvent finds (city, eventDay)'s event and scans each market's
// outcome-price array for a "Yes" outcome whose current price reads exactly
// "1" — that market's own bracket (parsed from its question text, same as
// FetchMarket) is the winner, not the generic Yes/No label.
func (c *Client) ResolveEvent(ctx context.Context, city string, eventDay time.Time) (ports.EventResolution, error) {
	ev, err := c.findEvent(ctx, city, eventDay)
	if err != nil {
		return ports.EventResolution{}, err
	}
	if ev == nil {
		return ports.EventResolution{}, nil
	}

	for _, m := range ev.Markets {
		resolved := m.Resolved || m.Closed || m.Status == "resolved" || m.Status == "closed"
		if !resolved {
			continue
		}

		var prices, outcomes []string
		_ = json.Unmarshal([]byte(m.OutcomePrices), &prices)
		_ = json.Unmarshal([]byte(m.Outcomes), &outcomes)

		yesIdx := 0
		for i, o := range outcomes {
			if strings.EqualFold(strings.TrimSpace(o), "Yes") {
				yesIdx = i
				break
			}
		}
		if yesIdx >= len(prices) || strings.TrimSpace(prices[yesIdx]) != "1" {
			continue
		}

		lo, hi, ok := parseBracketBounds(m.Question)
		if !ok {
			continue
		}
		winner := domain.NewBracket(lo, hi, m.ID, "").Name
		return ports.EventResolution{Resolved: true, Winner: normalizeBracketName(winner)}, nil
	}

	return ports.EventResolution{}, nil
}

func normalizeBracketName(s string) string {
	s = strings.ReplaceAll(s, "°F", "")
	s = strings.ReplaceAll(s, "°", "")
	s = strings.ReplaceAll(s, "≤", "")
	s = strings.ReplaceAll(s, "≥", "")
	s = strings.Join(strings.Fields(s), "")
	return s
}
