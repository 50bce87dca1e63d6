package pvperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cory-johannsen/pvp/internal/game/pvperr"
)

func TestWrappedSentinel_MatchesWithErrorsIs(t *testing.T) {
	err := fmt.Errorf("%w: player %q acted out of turn", pvperr.ErrNotYourTurn, "p2")
	assert.ErrorIs(t, err, pvperr.ErrNotYourTurn)
	assert.NotErrorIs(t, err, pvperr.ErrAlreadyQueued)
}

func TestCategoryOf(t *testing.T) {
	cases := []struct {
		err  error
		want pvperr.Category
	}{
		{pvperr.ErrInvalidChallenge, pvperr.CategoryValidation},
		{fmt.Errorf("x: %w", pvperr.ErrNotYourTurn), pvperr.CategoryConflict},
		{pvperr.ErrBattleNotFound, pvperr.CategoryNotFound},
		{pvperr.ErrInsufficientPoints, pvperr.CategoryExhausted},
		{fmt.Errorf("accept: %w", pvperr.ErrForbidden), pvperr.CategoryForbidden},
		{errors.New("connection reset"), pvperr.CategoryUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, pvperr.CategoryOf(tc.err), tc.err.Error())
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, "not_your_turn", pvperr.CodeOf(fmt.Errorf("w: %w", pvperr.ErrNotYourTurn)))
	assert.Equal(t, "internal", pvperr.CodeOf(errors.New("boom")))
}
