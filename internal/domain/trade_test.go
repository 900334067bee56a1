package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewTradeRecord_StartsPending(t *testing.T) {
	d := EdgeDecision{
		Bracket:   NewBracket(60, 65, "mkt-1", "tok-1"),
		Edge:      0.09,
		FKelly:    0.04,
		SizeUSD:   40,
		Reason:    "standard",
		Timestamp: time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC),
		PZeus:     0.6,
		PMkt:      0.5,
		SigmaZ:    2.0,
	}
	r := NewTradeRecord("id-1", "KNYC", d)

	assert.Equal(t, "id-1", r.ID)
	assert.Equal(t, "KNYC", r.StationCode)
	assert.Equal(t, "60-65°F", r.BracketName)
	assert.Equal(t, 60, r.BracketLowerF)
	assert.Equal(t, 65, r.BracketUpperF)
	assert.Equal(t, OutcomePending, r.Outcome)
	assert.False(t, r.Resolved())
}

func TestTradeRecord_ResolvedOnlyForWinOrLoss(t *testing.T) {
	r := TradeRecord{Outcome: OutcomePending}
	assert.False(t, r.Resolved())

	r.Outcome = OutcomeWin
	assert.True(t, r.Resolved())

	r.Outcome = OutcomeLoss
	assert.True(t, r.Resolved())
}
