package domain

import "fmt"

// Bracket is a half-open temperature interval [LowerF, UpperF) tradable as a
// binary market on the venue. Brackets within one event are disjoint and
// together cover the priced range. Immutable once constructed.
type Bracket struct {
	Name     string
	LowerF   int
	UpperF   int
	MarketID string // identifies the bracket for resolution lookup
	TokenID  string // identifies the bracket for price lookup; may differ from MarketID
	Closed   bool
}

// NewBracket builds a Bracket from explicit bounds, deriving the canonical
// name in the "{lo}-{hi}°F" form used by the venue and by the resolution
// normalizer.
func NewBracket(lowerF, upperF int, marketID, tokenID string) Bracket {
	return Bracket{
		Name:     fmt.Sprintf("%d-%d°F", lowerF, upperF),
		LowerF:   lowerF,
		UpperF:   upperF,
		MarketID: marketID,
		TokenID:  tokenID,
	}
}

// Contains reports whether wholeF falls within the bracket's half-open
// interval [LowerF, UpperF).
func (b Bracket) Contains(wholeF int) bool {
	return wholeF >= b.LowerF && wholeF < b.UpperF
}

// Valid reports whether the bracket's bounds are well-formed: LowerF < UpperF
// and both within the venue's plausible temperature range.
func (b Bracket) Valid() bool {
	return b.LowerF < b.UpperF && b.LowerF > -150 && b.UpperF < 150
}
