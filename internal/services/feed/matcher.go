package feed

import (
	"math"
	"strings"

	"github.com/google/uuid"
)

// Value-similarity tolerances: a candidate matches when it is within 30% of
// one of the viewer's own item values, or within $10 either way so that
// low-value items still pair up.
const (
	valueTolerancePct = 0.30
	valueToleranceAbs = 10.0
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// ValueCompatible reports whether a candidate item's value sits close enough
// to any of the viewer's own listed values. With no own values to compare
// against, everything matches.
func ValueCompatible(candidate float64, ownValues []float64) bool {
	if len(ownValues) == 0 {
		return true
	}
	for _, v := range ownValues {
		diff := math.Abs(candidate - v)
		if diff <= valueToleranceAbs {
			return true
		}
		if v > 0 && diff <= valueTolerancePct*v {
			return true
		}
	}
	return false
}

// HaversineKm returns the great-circle distance between two coordinates.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// ParseExcludeSet parses the caller's comma-separated list of already-seen
// item IDs. This set lives in the client session only; malformed entries are
// dropped.
func ParseExcludeSet(raw string) []uuid.UUID {
	if raw == "" {
		return nil
	}

	var out []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}
