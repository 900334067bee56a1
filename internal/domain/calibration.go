package domain

// CalibrationModel is a per-station additive bias correction derived from
// reanalysis data: a 12 (month) × 24 (hour) matrix in °C plus a fixed
// elevation offset. Months are 1-indexed externally, 0-indexed into the
// matrix; hours are 0..23.
type CalibrationModel struct {
	StationCode        string
	Version            string
	ElevationOffsetC   float64
	BiasMatrixSmoothed [12][24]float64
}

// Correction returns the total correction (bias + elevation) in °C for the
// given 1-indexed month and 0-indexed hour. Callers must validate ranges
// before calling; out-of-range inputs are a programmer error, not a runtime
// precondition the model itself negotiates.
func (m CalibrationModel) Correction(month, hour int) float64 {
	return m.BiasMatrixSmoothed[month-1][hour] + m.ElevationOffsetC
}

// ValidMonthHour reports whether month (1-12) and hour (0-23) are in range.
func ValidMonthHour(month, hour int) bool {
	return month >= 1 && month <= 12 && hour >= 0 && hour <= 23
}

// ApplyCalibration applies a station's correction to a single Celsius
// reading at the given local month/hour. Returns the input unchanged if the
// month/hour pair is invalid.
func (m CalibrationModel) ApplyCalibration(tempC float64, month, hour int) float64 {
	if !ValidMonthHour(month, hour) {
		return tempC
	}
	return tempC + m.Correction(month, hour)
}

// ApplyToForecast returns a new Forecast with the calibration applied
// per-point (K→C, add correction, C→K using each point's local month/hour
// as reported by localMonthHour). The input forecast is never mutated.
func (m CalibrationModel) ApplyToForecast(f Forecast, localMonthHour func(pointIndex int) (month, hour int)) Forecast {
	tempsK := make([]float64, len(f.Points))
	for i, p := range f.Points {
		month, hour := localMonthHour(i)
		tempC := KelvinToCelsius(p.TempKelvin)
		corrected := m.ApplyCalibration(tempC, month, hour)
		tempsK[i] = CelsiusToKelvin(corrected)
	}
	return f.WithTempsK(tempsK)
}
