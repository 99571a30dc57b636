package domain

import "math"

// A geocoded point of an address, as resolved by the routing provider.
type Coordinates struct {
	Lon float64
	Lat float64
}

// CoordsToList returns [lon, lat], the order the directions API expects.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// Valid reports whether the point lies within WGS84 bounds.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lon) || math.IsNaN(c.Lat) {
		return false
	}
	return c.Lon >= -180 && c.Lon <= 180 && c.Lat >= -90 && c.Lat <= 90
}
