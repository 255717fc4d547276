package geo

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// ErrNotPolygon is returned when stored geometry does not decode to a polygon.
var ErrNotPolygon = errors.New("geometry is not a polygon")

// Bounds is a latitude/longitude bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// Contains reports whether p lies inside or on the edge of the box.
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Latitude >= b.MinLat && p.Latitude <= b.MaxLat &&
		p.Longitude >= b.MinLng && p.Longitude <= b.MaxLng
}

// RingContains reports whether p lies inside the ring, treating coordinates as planar.
// The ring may or may not repeat its first point at the end.
func RingContains(ring []GeoPoint, p GeoPoint) bool {
	if len(ring) < 3 {
		return false
	}
	b := Bounds{MinLat: ring[0].Latitude, MaxLat: ring[0].Latitude, MinLng: ring[0].Longitude, MaxLng: ring[0].Longitude}
	for _, q := range ring[1:] {
		b.MinLat = min(b.MinLat, q.Latitude)
		b.MaxLat = max(b.MaxLat, q.Latitude)
		b.MinLng = min(b.MinLng, q.Longitude)
		b.MaxLng = max(b.MaxLng, q.Longitude)
	}
	if !b.Contains(p) {
		return false
	}

	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		a, c := ring[i], ring[j]
		if (a.Latitude > p.Latitude) != (c.Latitude > p.Latitude) {
			x := (c.Longitude-a.Longitude)*(p.Latitude-a.Latitude)/(c.Latitude-a.Latitude) + a.Longitude
			if p.Longitude < x {
				inside = !inside
			}
		}
	}
	return inside
}

// Polygon builds a single-ring polygon from a path, closing the ring back to the first
// point when the path does not already end on it. Coordinates are X=longitude, Y=latitude.
func Polygon(path []GeoPoint) (*geom.Polygon, error) {
	if len(path) < 3 {
		return nil, fmt.Errorf("polygon needs at least 3 points, got %d", len(path))
	}
	ring := make([]geom.Coord, 0, len(path)+1)
	for _, p := range path {
		ring = append(ring, geom.Coord{p.Longitude, p.Latitude})
	}
	if path[0] != path[len(path)-1] {
		ring = append(ring, geom.Coord{path[0].Longitude, path[0].Latitude})
	}
	return geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{ring})
}

// PolygonBounds returns the bounding box of a polygon.
func PolygonBounds(p *geom.Polygon) Bounds {
	b := p.Bounds()
	return Bounds{
		MinLat: b.Min(1),
		MinLng: b.Min(0),
		MaxLat: b.Max(1),
		MaxLng: b.Max(0),
	}
}

// EncodeWKB marshals a claimed path as little-endian WKB for storage.
func EncodeWKB(path []GeoPoint) ([]byte, Bounds, error) {
	poly, err := Polygon(path)
	if err != nil {
		return nil, Bounds{}, err
	}
	raw, err := wkb.Marshal(poly, binary.LittleEndian)
	if err != nil {
		return nil, Bounds{}, fmt.Errorf("encode wkb: %w", err)
	}
	return raw, PolygonBounds(poly), nil
}

// DecodeWKB reads a stored polygon back into its ring of points (closing point included).
func DecodeWKB(raw []byte) ([]GeoPoint, error) {
	g, err := wkb.Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("decode wkb: %w", err)
	}
	poly, ok := g.(*geom.Polygon)
	if !ok || poly.NumLinearRings() == 0 {
		return nil, ErrNotPolygon
	}
	coords := poly.LinearRing(0).Coords()
	out := make([]GeoPoint, len(coords))
	for i, c := range coords {
		out[i] = GeoPoint{Latitude: c.Y(), Longitude: c.X()}
	}
	return out, nil
}

// WKBToGeoJSON converts stored WKB bytes into a GeoJSON geometry string.
func WKBToGeoJSON(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	g, err := wkb.Unmarshal(raw)
	if err != nil {
		return "", fmt.Errorf("decode wkb: %w", err)
	}
	b, err := gjson.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("encode geojson: %w", err)
	}
	return string(b), nil
}
