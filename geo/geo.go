// Package geo holds the distance and centroid helpers used to place members and
// events on the map.
package geo

import (
	"math"

	apperrors "github.com/MensaSverige/swagapp-sub001/internal/errors"
)

// EarthRadiusMeters is the mean Earth radius used by the Haversine formula.
const EarthRadiusMeters = 6_371_000.0

// ErrEmptyInput is returned when an operation needs at least one point.
var ErrEmptyInput = apperrors.ErrEmptyInput

type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Farthest is the result of FarthestFrom.
type Farthest struct {
	Index    int
	Point    Coordinate
	Distance float64
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// DistanceMeters returns the great-circle distance between a and b.
func DistanceMeters(a, b Coordinate) float64 {
	if a == b {
		return 0
	}
	lat1, lat2 := toRadians(a.Latitude), toRadians(b.Latitude)
	dLat := lat2 - lat1
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push h just past 1 for antipodal points
	h = math.Min(1, math.Max(0, h))
	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Centroid is the arithmetic mean of the latitudes and longitudes.
func Centroid(points []Coordinate) (Coordinate, error) {
	if len(points) == 0 {
		return Coordinate{}, apperrors.Wrapf(ErrEmptyInput, "[geo.Centroid]")
	}
	var lat, lon float64
	for _, p := range points {
		lat += p.Latitude
		lon += p.Longitude
	}
	n := float64(len(points))
	return Coordinate{Latitude: lat / n, Longitude: lon / n}, nil
}

// FarthestFrom scans points in order and returns the one farthest from center.
// Ties keep the first point encountered. ok is false when points is empty.
func FarthestFrom(center Coordinate, points []Coordinate) (Farthest, bool) {
	if len(points) == 0 {
		return Farthest{}, false
	}
	best := Farthest{Index: 0, Point: points[0], Distance: DistanceMeters(center, points[0])}
	for i := 1; i < len(points); i++ {
		if d := DistanceMeters(center, points[i]); d > best.Distance {
			best = Farthest{Index: i, Point: points[i], Distance: d}
		}
	}
	return best, true
}

// Within reports whether p lies within radiusMeters of center.
func Within(center, p Coordinate, radiusMeters float64) bool {
	return DistanceMeters(center, p) <= radiusMeters
}
