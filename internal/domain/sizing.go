package domain

import (
	"strings"
	"time"
)

// SizingConfig carries the cost and risk-limit constants the sizer applies.
// All fields mirror the SPEC_FULL configuration table.
type SizingConfig struct {
	EdgeMin       float64
	FeeBP         float64
	SlippageBP    float64
	KellyCap      float64
	PerMarketCap  float64
	LiquidityMin  float64
}

// EdgeDecision is a sized trading decision emitted by the sizer. Only
// emitted when edge ≥ EdgeMin and FKelly > 0; SizeUSD is post-cap and never
// exceeds any active cap.
type EdgeDecision struct {
	Bracket   Bracket
	Edge      float64
	FKelly    float64
	SizeUSD   float64
	Reason    string
	Timestamp time.Time
	PZeus     float64
	PMkt      float64
	SigmaZ    float64
}

// ComputeEdge returns the cost-adjusted edge of a forecast probability
// against a market price, after fee and slippage basis points.
func ComputeEdge(pZeus, pMkt, feeBP, slippageBP float64) float64 {
	return (pZeus - pMkt) - feeBP/1e4 - slippageBP/1e4
}

// ComputeKellyFraction returns the binary-outcome Kelly fraction for a true
// probability pZeus at market price pMkt. Returns 0 when pMkt is outside
// (0,1) or the raw fraction would be non-positive.
func ComputeKellyFraction(pZeus, pMkt float64) float64 {
	if pMkt <= 0 || pMkt >= 1 {
		return 0
	}
	b := 1/pMkt - 1
	f := (b*pZeus - (1 - pZeus)) / b
	if f <= 0 {
		return 0
	}
	return f
}

// Decide runs the edge-and-sizing engine over a set of bracket probabilities
// with merged market prices, against a bankroll and optional per-bracket
// liquidity depth. depthUSD may be nil when no depth data is available; in
// that case the liquidity cap is not applied. Output preserves input order
// and is deterministic given its inputs.
func Decide(probs []BracketProb, bankrollUSD float64, cfg SizingConfig, depthUSD map[string]float64, now time.Time) []EdgeDecision {
	var out []EdgeDecision
	for _, bp := range probs {
		if bp.PMkt == nil {
			continue
		}
		pMkt := *bp.PMkt

		edge := ComputeEdge(bp.PZeus, pMkt, cfg.FeeBP, cfg.SlippageBP)
		if edge < cfg.EdgeMin {
			continue
		}

		fKelly := ComputeKellyFraction(bp.PZeus, pMkt)
		if fKelly <= 0 {
			continue
		}

		raw := fKelly * bankrollUSD

		var reasons []string
		size := raw

		kellyCeil := cfg.KellyCap * bankrollUSD
		if size > kellyCeil {
			size = kellyCeil
			reasons = append(reasons, "kelly_capped")
		}

		if cfg.PerMarketCap > 0 && size > cfg.PerMarketCap {
			size = cfg.PerMarketCap
		}

		if depthUSD != nil {
			depth, ok := depthUSD[bp.Bracket.MarketID]
			if ok {
				if cfg.LiquidityMin > 0 && depth < cfg.LiquidityMin {
					continue
				}
				if size > depth {
					size = depth
					reasons = append(reasons, "liquidity_limited")
				}
			}
		}

		if edge >= cfg.EdgeMin*2 {
			reasons = append([]string{"strong_edge"}, reasons...)
		}
		if len(reasons) == 0 {
			reasons = []string{"standard"}
		}

		out = append(out, EdgeDecision{
			Bracket:   bp.Bracket,
			Edge:      edge,
			FKelly:    fKelly,
			SizeUSD:   size,
			Reason:    strings.Join(reasons, ", "),
			Timestamp: now,
			PZeus:     bp.PZeus,
			PMkt:      pMkt,
			SigmaZ:    bp.SigmaZ,
		})
	}
	return out
}
