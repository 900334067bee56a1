package domain

import (
	"errors"
	"math"
)

// Sigma bounds and defaults for the daily-high distribution, mirroring the
// venue's long-standing defaults: a single-point forecast uses SigmaDefault,
// and a spread-derived sigma is floored at max(SigmaDefault/2, SigmaMin).
const (
	SigmaDefault = 2.0
	SigmaMin     = 0.5
	SigmaMax     = 10.0

	z80 = 0.8416
	z95 = 1.6449
)

// ModelMode selects how the daily-high standard deviation is derived.
type ModelMode string

const (
	ModelSpread ModelMode = "spread"
	ModelBands  ModelMode = "bands"
)

// BracketProb is a bracket's probability under the forecast model, with an
// optional market price merged in once available. Invariant across the set
// for one event: the sum of PZeus is ≈1.0 after normalization.
type BracketProb struct {
	Bracket Bracket
	PZeus   float64
	PMkt    *float64
	SigmaZ  float64
}

// ErrEmptyForecast is a precondition error: the mapper requires at least one
// forecast point.
var ErrEmptyForecast = errors.New("probability mapper: forecast has no points")

// ErrEmptyBrackets is a precondition error: the mapper requires at least one
// bracket to distribute probability over.
var ErrEmptyBrackets = errors.New("probability mapper: bracket set is empty")

// MapDailyHigh converts a forecast series into a probability distribution
// over brackets for the forecast's daily high temperature.
//
// mode selects spread vs. bands for the standard deviation; bands falls back
// to the spread formula whenever the forecast carries no confidence bounds,
// regardless of the configured confidence levels (the venue's forecast
// provider never actually attaches them in practice, so this fallback path
// is the common one and is deliberately not shaped by zeusLikelyPct /
// zeusPossiblePct).
func MapDailyHigh(f Forecast, brackets []Bracket, mode ModelMode) ([]BracketProb, error) {
	if len(f.Points) == 0 {
		return nil, ErrEmptyForecast
	}
	if len(brackets) == 0 {
		return nil, ErrEmptyBrackets
	}

	tempsF := f.TempsF()
	mu := maxOf(tempsF)
	sigma := dailyHighSigma(f, tempsF, mu, mode)

	raw := make([]float64, len(brackets))
	var total float64
	for i, b := range brackets {
		p := normalCDF(float64(b.UpperF), mu, sigma) - normalCDF(float64(b.LowerF), mu, sigma)
		if p < 0 {
			p = 0
		}
		raw[i] = p
		total += p
	}

	out := make([]BracketProb, len(brackets))
	if total == 0 {
		uniform := 1.0 / float64(len(brackets))
		for i, b := range brackets {
			out[i] = BracketProb{Bracket: b, PZeus: uniform, SigmaZ: sigma}
		}
		return out, nil
	}
	for i, b := range brackets {
		out[i] = BracketProb{Bracket: b, PZeus: raw[i] / total, SigmaZ: sigma}
	}
	return out, nil
}

func dailyHighSigma(f Forecast, tempsF []float64, mu float64, mode ModelMode) float64 {
	if len(tempsF) == 1 {
		return SigmaDefault
	}

	if mode == ModelBands && f.HasBands {
		sigma1 := (f.LikelyUpperF - mu) / z80
		sigma2 := (f.PossibleUpperF - mu) / z95
		sigma := clamp((sigma1+sigma2)/2, SigmaMin, SigmaMax)
		return sigma
	}

	// Spread model (and the bands-absent fallback): population std-dev of
	// the hourly series, scaled by sqrt(2) because the daily high has
	// higher variance than any single hourly reading, floored and capped.
	sd := populationStdDev(tempsF) * math.Sqrt2
	floor := math.Max(SigmaDefault/2, SigmaMin)
	return math.Max(math.Min(sd, SigmaMax), floor)
}

func populationStdDev(xs []float64) float64 {
	n := float64(len(xs))
	if n == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= n
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / n)
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// normalCDF is the CDF of N(mu, sigma^2) evaluated at x, via the standard
// erf-based identity. No third-party statistics/distribution package
// appears anywhere in the reference corpus this module was grounded on;
// math.Erf is the stdlib primitive the formula needs.
func normalCDF(x, mu, sigma float64) float64 {
	if sigma <= 0 {
		if x >= mu {
			return 1
		}
		return 0
	}
	return 0.5 * (1 + math.Erf((x-mu)/(sigma*math.Sqrt2)))
}
