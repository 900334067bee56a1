package ports

import (
	"time"

	"github.com/corwinb/skyedge/internal/domain"
)

// Ledger is the append-only paper-trade CSV store (C6). Append adds rows
// for a given calendar day without disturbing existing ones; RewriteDay is
// reserved for the resolution engine, which is the sole caller allowed to
// replace a day's file wholesale.
type Ledger interface {
	Append(day time.Time, rows []domain.TradeRecord) error
	ReadDay(day time.Time) ([]domain.TradeRecord, error)
	RewriteDay(day time.Time, rows []domain.TradeRecord) error
	DaysInRange(start, end time.Time) ([]time.Time, error)
}
