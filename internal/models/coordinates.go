package models

// Coordinates represents a geographical point defined by its longitude and latitude.
type Coordinates struct {
	Longitude float64 // Longitude of the geographical point.
	Latitude  float64 // Latitude of the geographical point.
}

// Valid reports whether the point lies on the WGS84 lat/lng rectangle.
// NaN values are never valid.
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}
