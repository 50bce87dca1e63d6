package rating_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/pvp/internal/game/rating"
)

func TestExpected_EqualRatings(t *testing.T) {
	assert.InDelta(t, 0.5, rating.Expected(1000, 1000), 1e-12)
}

func TestExpected_FourHundredPointGap(t *testing.T) {
	assert.InDelta(t, 10.0/11.0, rating.Expected(1400, 1000), 1e-12)
}

func TestNewRating_EvenMatch(t *testing.T) {
	assert.Equal(t, 1016, rating.NewRating(1000, 1000, 1, rating.DefaultKFactor))
	assert.Equal(t, 984, rating.NewRating(1000, 1000, 0, rating.DefaultKFactor))
	assert.Equal(t, 1000, rating.NewRating(1000, 1000, 0.5, rating.DefaultKFactor))
}

func TestTierFor(t *testing.T) {
	cases := []struct {
		rating int
		want   rating.Tier
	}{
		{0, rating.TierBronze},
		{1099, rating.TierBronze},
		{1100, rating.TierSilver},
		{1300, rating.TierGold},
		{1500, rating.TierPlatinum},
		{1700, rating.TierDiamond},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, rating.TierFor(tc.rating), "rating %d", tc.rating)
	}
}

func TestProperty_Expected_Symmetric(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.IntRange(0, 3000).Draw(rt, "a")
		b := rapid.IntRange(0, 3000).Draw(rt, "b")
		sum := rating.Expected(a, b) + rating.Expected(b, a)
		if sum < 1-1e-9 || sum > 1+1e-9 {
			rt.Fatalf("expected scores sum to %f", sum)
		}
	})
}

func TestProperty_NewRating_WinnerNeverLoses(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.IntRange(0, 3000).Draw(rt, "a")
		b := rapid.IntRange(0, 3000).Draw(rt, "b")
		if got := rating.NewRating(a, b, 1, rating.DefaultKFactor); got < a {
			rt.Fatalf("winner went from %d to %d", a, got)
		}
		if got := rating.NewRating(a, b, 0, rating.DefaultKFactor); got > a {
			rt.Fatalf("loser went from %d to %d", a, got)
		}
	})
}
