package territory

import "geoclaim/internal/geo"

// seamSegments is how many segments at each end of a closed path are allowed to touch:
// the head and tail meet by construction when the walker returns to the start.
const seamSegments = 2

// HasSelfIntersection reports whether any two non-adjacent segments of path cross.
//
// Longitude is treated as X and latitude as Y, which is a fair plane at claim scale.
// Every segment pair is compared, so the cost is O(n²); paths are bounded by how long a
// person walks at one sample per 10 m, i.e. hundreds of points.
func HasSelfIntersection(path []geo.GeoPoint) bool {
	if len(path) < 4 {
		return false
	}
	segments := len(path) - 1
	if segments < 2 {
		return false
	}

	for i := 0; i < segments; i++ {
		a, b := path[i], path[i+1]
		for j := i + 2; j < segments; j++ {
			if i < seamSegments && j >= segments-seamSegments {
				continue
			}
			if segmentsIntersect(a, b, path[j], path[j+1]) {
				return true
			}
		}
	}
	return false
}

// segmentsIntersect tests AB against CD with the orientation predicate.
func segmentsIntersect(a, b, c, d geo.GeoPoint) bool {
	return ccw(a, c, d) != ccw(b, c, d) && ccw(a, b, c) != ccw(a, b, d)
}

// ccw is true when p, q, r turn counter-clockwise (strictly positive signed area).
func ccw(p, q, r geo.GeoPoint) bool {
	return (r.Latitude-p.Latitude)*(q.Longitude-p.Longitude) >
		(q.Latitude-p.Latitude)*(r.Longitude-p.Longitude)
}
