package domain

import "strconv"

// OrderBook is the bid/ask book for one bracket's token, as returned by the
// venue's depth endpoint.
type OrderBook struct {
	TokenID string
	Bids    []BookEntry // sorted highest to lowest price
	Asks    []BookEntry // sorted lowest to highest price
}

// BookEntry is one price level in an OrderBook.
type BookEntry struct {
	Price float64
	Size  float64
}

// BestBid returns the highest bid price, or 0 if the book is empty.
func (ob OrderBook) BestBid() float64 {
	if len(ob.Bids) == 0 {
		return 0
	}
	return ob.Bids[0].Price
}

// BestAsk returns the lowest ask price, or 0 if the book is empty.
func (ob OrderBook) BestAsk() float64 {
	if len(ob.Asks) == 0 {
		return 0
	}
	return ob.Asks[0].Price
}

// Midpoint returns the midpoint between best bid and best ask, or 0 if
// either side is empty.
func (ob OrderBook) Midpoint() float64 {
	bid := ob.BestBid()
	ask := ob.BestAsk()
	if bid == 0 || ask == 0 {
		return 0
	}
	return (bid + ask) / 2
}

// SpreadBps returns the bid-ask spread in basis points relative to the
// midpoint, or 0 if either side is empty.
func (ob OrderBook) SpreadBps() float64 {
	mid := ob.Midpoint()
	if mid == 0 {
		return 0
	}
	return (ob.BestAsk() - ob.BestBid()) / mid * 10000
}

// BidDepthUSD returns the USD value (size × price) of all bid-side orders —
// the liquidity figure the sizer's liquidity cap (§4.5) compares against
// liquidityMin.
func (ob OrderBook) BidDepthUSD() float64 {
	var total float64
	for _, b := range ob.Bids {
		total += b.Size * b.Price
	}
	return total
}

// DepthUSD returns the total USD value (size × price) across both sides of
// the book.
func (ob OrderBook) DepthUSD() float64 {
	var total float64
	for _, b := range ob.Bids {
		total += b.Size * b.Price
	}
	for _, a := range ob.Asks {
		total += a.Size * a.Price
	}
	return total
}

// ParsePrice converts a venue price string to float64, returning 0 on a
// malformed value rather than erroring — callers treat 0 as "no price".
func ParsePrice(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
