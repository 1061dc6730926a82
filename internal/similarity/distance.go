package similarity

import (
	"math"

	"github.com/openartmap/openartmap-backend/pkg/types"
)

const earthRadiusMeters = 6371000

// HaversineMeters computes the great-circle distance between two points.
func HaversineMeters(a, b types.GeographyPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
