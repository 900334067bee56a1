package domain

import "time"

// Outcome is the resolution state of a paper trade: a tagged sum type with
// exactly three states.
type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeWin     Outcome = "win"
	OutcomeLoss    Outcome = "loss"
)

// TradeRecord is one row of the append-only paper ledger: a superset of an
// EdgeDecision plus provenance and resolution fields. Resolution fields
// start empty and are filled in place by the resolution engine, which is
// the only component allowed to rewrite a row.
type TradeRecord struct {
	ID            string
	Timestamp     time.Time
	StationCode   string
	BracketName   string
	BracketLowerF int
	BracketUpperF int
	MarketID      string
	Edge          float64
	FKelly        float64
	SizeUSD       float64
	PZeus         float64
	PMkt          float64
	SigmaZ        float64
	Reason        string

	Outcome       Outcome
	RealizedPnL   float64
	Venue         string
	ResolvedAt    *time.Time
	WinnerBracket string
}

// NewTradeRecord builds a pending TradeRecord from a sized decision.
func NewTradeRecord(id, stationCode string, d EdgeDecision) TradeRecord {
	return TradeRecord{
		ID:            id,
		Timestamp:     d.Timestamp,
		StationCode:   stationCode,
		BracketName:   d.Bracket.Name,
		BracketLowerF: d.Bracket.LowerF,
		BracketUpperF: d.Bracket.UpperF,
		MarketID:      d.Bracket.MarketID,
		Edge:          d.Edge,
		FKelly:        d.FKelly,
		SizeUSD:       d.SizeUSD,
		PZeus:         d.PZeus,
		PMkt:          d.PMkt,
		SigmaZ:        d.SigmaZ,
		Reason:        d.Reason,
		Outcome:       OutcomePending,
	}
}

// Resolved reports whether the resolution engine has already classified
// this row, making any further resolution pass against it a no-op.
func (t TradeRecord) Resolved() bool {
	return t.Outcome == OutcomeWin || t.Outcome == OutcomeLoss
}
