package domain

// Station is read-only weather-station metadata: the join key between a
// forecast point and a venue city.
type Station struct {
	City        string
	StationName string
	StationCode string
	Lat, Lon    float64
	NOAAStation string
	VenueHint   string
	TimeZone    string
}
