// Package dice provides the randomness abstraction used by the PvP combat
// engine. Every random draw in combat (initiative, evasion, crit, variance,
// flee, unranked opponent selection) goes through a Source so that battles
// can be replayed from a recorded or seeded stream.
package dice

// Source is the randomness provider for combat resolution.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
	// Float64 returns a random float in [0, 1).
	Float64() float64
}

// IntRange returns a uniform int in [lo, hi].
//
// Precondition: hi >= lo.
// Postcondition: lo <= result <= hi.
func IntRange(src Source, lo, hi int) int {
	return lo + src.Intn(hi-lo+1)
}

// Uniform returns a uniform float in [lo, hi).
//
// Precondition: hi >= lo.
func Uniform(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}

// Chance reports whether a single draw lands under p.
// p <= 0 never succeeds; p >= 1 always succeeds.
func Chance(src Source, p float64) bool {
	return src.Float64() < p
}
