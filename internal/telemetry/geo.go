package telemetry

import "math"

// MetersPerDegree converts meters to degrees with a flat-Earth approximation.
const MetersPerDegree = 111320.0

// Rand is the random source consumed by the synthesizer. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// uniform draws from [min, max).
func uniform(r Rand, min, max float64) float64 {
	return min + (max-min)*r.Float64()
}

// chance returns true with probability p.
func chance(r Rand, p float64) bool {
	return r.Float64() < p
}

// GeoSampler places points around a fixed center. When MinRadiusM equals
// MaxRadiusM only the bearing is randomized.
type GeoSampler struct {
	CenterLat  float64
	CenterLng  float64
	MinRadiusM float64
	MaxRadiusM float64
}

// FixedRadius returns a sampler that always stays radiusM meters from the center.
func FixedRadius(lat, lng, radiusM float64) GeoSampler {
	return GeoSampler{CenterLat: lat, CenterLng: lng, MinRadiusM: radiusM, MaxRadiusM: radiusM}
}

// Sample draws a coordinate. Longitude offsets are not scaled by latitude.
func (g GeoSampler) Sample(r Rand) (lat, lng float64) {
	distance := g.MinRadiusM
	if g.MaxRadiusM > g.MinRadiusM {
		distance = uniform(r, g.MinRadiusM, g.MaxRadiusM)
	}
	bearing := uniform(r, 0, 2*math.Pi)
	dx := (distance * math.Cos(bearing)) / MetersPerDegree
	dy := (distance * math.Sin(bearing)) / MetersPerDegree
	return g.CenterLat + dy, g.CenterLng + dx
}

// DistanceMeters calculates the haversine distance between two lat/lon points.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadius * c
}
