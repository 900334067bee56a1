// Package domain holds the pure value types and calculations shared across
// the trading engine: temperature brackets, forecasts, probability
// distributions, sizing decisions, and ledger/snapshot record shapes.
package domain

import (
	"time"
)

const (
	kelvinZeroC = 273.15
)

// KelvinToCelsius converts an absolute temperature in Kelvin to Celsius.
func KelvinToCelsius(k float64) float64 {
	return k - kelvinZeroC
}

// CelsiusToKelvin converts a Celsius temperature to Kelvin.
func CelsiusToKelvin(c float64) float64 {
	return c + kelvinZeroC
}

// CelsiusToFahrenheit converts Celsius to Fahrenheit.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9.0/5.0 + 32.0
}

// FahrenheitToCelsius converts Fahrenheit to Celsius.
func FahrenheitToCelsius(f float64) float64 {
	return (f - 32.0) * 5.0 / 9.0
}

// KelvinToFahrenheit converts Kelvin directly to Fahrenheit.
func KelvinToFahrenheit(k float64) float64 {
	return CelsiusToFahrenheit(KelvinToCelsius(k))
}

// FahrenheitToKelvin converts Fahrenheit directly to Kelvin.
func FahrenheitToKelvin(f float64) float64 {
	return CelsiusToKelvin(FahrenheitToCelsius(f))
}

// ResolveToWholeF rounds a fractional Fahrenheit reading to the venue's
// whole-degree resolution convention: a fractional part of 0.5 or more
// rounds up, matching how the venue resolves "highest temperature" markets.
func ResolveToWholeF(tempF float64) int {
	return int(tempF + 0.5)
}

// LocalDayWindowUTC returns the half-open [startUTC, endUTC) interval that
// covers the 24 local hours of dateLocal in the given IANA time zone.
//
// The end instant is local midnight of the *next* day translated to UTC,
// not a fixed 24h offset — this is what makes the window correct across
// DST transitions, where the local day is 23 or 25 hours long.
func LocalDayWindowUTC(dateLocal time.Time, zone *time.Location) (start, end time.Time, err error) {
	y, m, d := dateLocal.Date()
	startLocal := time.Date(y, m, d, 0, 0, 0, 0, zone)
	endLocal := startLocal.AddDate(0, 0, 1)
	return startLocal.UTC(), endLocal.UTC(), nil
}

// LoadZone is a small wrapper around time.LoadLocation kept here so callers
// needing a station's IANA zone never have to import "time" for just this.
func LoadZone(name string) (*time.Location, error) {
	return time.LoadLocation(name)
}
