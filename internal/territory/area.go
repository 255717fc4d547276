package territory

import (
	"math"

	"geoclaim/internal/geo"
)

// EnclosedArea returns the area in square meters of the polygon traced by path, treating
// the last point as joined to the first. It uses the spherical-excess corrected shoelace
// sum, good for walkable claims of up to a few square kilometers away from the poles.
// The result is orientation independent.
func EnclosedArea(path []geo.GeoPoint) float64 {
	n := len(path)
	if n < 3 {
		return 0
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		cur, next := path[i], path[(i+1)%n]
		lon1, lon2 := geo.ToRadians(cur.Longitude), geo.ToRadians(next.Longitude)
		lat1, lat2 := geo.ToRadians(cur.Latitude), geo.ToRadians(next.Latitude)
		sum += (lon2 - lon1) * (2 + math.Sin(lat1) + math.Sin(lat2))
	}

	return math.Abs(sum * geo.EarthRadiusM * geo.EarthRadiusM / 2)
}
