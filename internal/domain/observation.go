package domain

import "time"

// Observation is a single station weather reading (METAR-shaped), carrying
// only the fields the trading engine consumes.
type Observation struct {
	StationCode string
	TimeUTC     time.Time
	TempC       float64
	TempF       float64
	DewpointC   *float64
	WindDirDeg  *int
	WindSpeedKt *float64
	RawText     string
}
