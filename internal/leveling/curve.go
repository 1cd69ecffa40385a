package leveling

import "math"

// XPForNextLevel returns the XP a user at the given level must spend to
// advance: floor(100 * 1.2^level). Stored levels are only meaningful
// against this exact curve, so changing it retroactively reinterprets
// every persisted record.
//
// The relative nudge before flooring compensates for pow rounding error,
// which otherwise lands exact-integer thresholds (level 2 is exactly 144)
// a hair below the integer and floors them one too low.
func XPForNextLevel(level int) int {
	raw := 100 * math.Pow(1.2, float64(level))
	return int(math.Floor(raw + raw*1e-12))
}
