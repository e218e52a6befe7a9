package verify

import "math"

// Default tolerances used by Equivalent.
const (
	AbsoluteEpsilon = 1e-5
	RelativeEpsilon = 1e-5
)

// Equivalent reports whether actual matches expected within the default tolerances.
func Equivalent(actual, expected float64) bool {
	return EquivalentWithin(actual, expected, AbsoluteEpsilon, RelativeEpsilon)
}

// EquivalentWithin accepts the pair when it is exactly equal, absolutely closer than absEps,
// or relatively closer than relEps. Either criterion is enough: the absolute one covers
// values near zero, the relative one covers values up to 1e16 read from a rounded display.
func EquivalentWithin(actual, expected, absEps, relEps float64) bool {
	if actual == expected {
		return true
	}

	diff := math.Abs(actual - expected)
	if diff < absEps {
		return true
	}

	return diff/math.Max(math.Abs(actual), math.Abs(expected)) < relEps
}
