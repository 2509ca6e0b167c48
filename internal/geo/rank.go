// Package geo ranks cinemas by great-circle distance from a point.
//
// Distances are computed with the haversine formula on a sphere of radius
// EarthRadius, rounded to the nearest metre and reported in kilometres, so
// every value carries at most three decimals.
package geo

import (
	"math"
	"sort"

	"cinema-tg-bot/internal/storage"
)

// EarthRadius is the WGS-84 equatorial radius in metres.
const EarthRadius = 6378137.0

// DistanceMeters returns the great-circle distance between a and b in whole
// metres. A non-finite coordinate yields math.MaxInt64 so the point ranks last.
func DistanceMeters(a, b storage.Location) int64 {
	if !finite(a) || !finite(b) {
		return math.MaxInt64
	}
	lat1 := toRad(a.Latitude)
	lat2 := toRad(b.Latitude)
	dLat := lat2 - lat1
	dLon := toRad(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	if h > 1 {
		h = 1
	}
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return int64(math.Round(EarthRadius * c))
}

// Distance returns the great-circle distance between a and b in kilometres.
func Distance(a, b storage.Location) float64 {
	return float64(DistanceMeters(a, b)) / 1000
}

// RankCinemas returns copies of cinemas annotated with their distance from
// origin, nearest first. Equal distances keep their input order.
func RankCinemas(origin storage.Location, cinemas []storage.Cinema) []storage.Cinema {
	ranked := make([]storage.Cinema, len(cinemas))
	for i, c := range cinemas {
		c.Distance = Distance(origin, c.Location)
		ranked[i] = c
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Distance < ranked[j].Distance
	})
	return ranked
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func finite(l storage.Location) bool {
	for _, v := range [...]float64{l.Latitude, l.Longitude} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
