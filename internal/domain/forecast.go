package domain

import "time"

// ForecastPoint is one hourly sample of an absolute temperature forecast.
type ForecastPoint struct {
	TimeUTC     time.Time
	TempKelvin  float64
}

// Forecast is an ordered sequence of forecast points for one station,
// covering a contiguous window — typically 24 hourly points starting at
// local midnight of the target day. Immutable.
type Forecast struct {
	StationCode string
	Lat, Lon    float64
	Points      []ForecastPoint

	// LikelyUpperF and PossibleUpperF are one-sided confidence upper bounds
	// (80% and 95% respectively) for the daily high, in Fahrenheit, when the
	// provider supplies them. Absent in practice for this provider; the
	// bands probability model falls back to the spread formula when these
	// are zero/unset. Use HasBands to check.
	LikelyUpperF   float64
	PossibleUpperF float64
	HasBands       bool
}

// TempsF returns the forecast's temperature series converted to Fahrenheit.
func (f Forecast) TempsF() []float64 {
	out := make([]float64, len(f.Points))
	for i, p := range f.Points {
		out[i] = KelvinToFahrenheit(p.TempKelvin)
	}
	return out
}

// Timestamps returns the forecast's point timestamps in order.
func (f Forecast) Timestamps() []time.Time {
	out := make([]time.Time, len(f.Points))
	for i, p := range f.Points {
		out[i] = p.TimeUTC
	}
	return out
}

// WithTempsK returns a copy of the forecast with its Kelvin series replaced,
// leaving timestamps and metadata untouched. Used by calibration to produce
// a corrected series without mutating the input forecast.
func (f Forecast) WithTempsK(tempsK []float64) Forecast {
	if len(tempsK) != len(f.Points) {
		return f
	}
	out := f
	out.Points = make([]ForecastPoint, len(f.Points))
	for i, p := range f.Points {
		out.Points[i] = ForecastPoint{TimeUTC: p.TimeUTC, TempKelvin: tempsK[i]}
	}
	return out
}
