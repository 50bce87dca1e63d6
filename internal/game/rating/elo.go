// Package rating applies Elo rating changes and win/loss bookkeeping once a battle ends.
package rating

import "math"

const (
	DefaultRating      = 1000
	DefaultKFactor     = 32.0
	DefaultFleePenalty = 10
)

// Expected returns the Elo expected score of self against opp.
//
// Postcondition: 0 < result < 1; Expected(a, b) + Expected(b, a) == 1.
func Expected(self, opp int) float64 {
	return 1 / (1 + math.Pow(10, float64(opp-self)/400))
}

// NewRating returns rating moved by k*(actual-expected), rounded to the nearest int.
// actual is 1 for a win, 0.5 for a draw and 0 for a loss.
func NewRating(rating, opp int, actual, k float64) int {
	return int(math.Round(float64(rating) + k*(actual-Expected(rating, opp))))
}

// Tier is the arena bracket derived from a rating.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
	TierDiamond  Tier = "diamond"
)

// TierFor returns the arena tier for rating.
func TierFor(rating int) Tier {
	switch {
	case rating < 1100:
		return TierBronze
	case rating < 1300:
		return TierSilver
	case rating < 1500:
		return TierGold
	case rating < 1700:
		return TierPlatinum
	default:
		return TierDiamond
	}
}
