// Package pvperr defines the typed failures returned by the PvP core.
//
// Every rejection carries a Category that tells the caller how to react:
// fix the request (Validation), resubmit with corrected intent (Conflict),
// stop looking (NotFound), wait (Exhausted) or give up (Forbidden). None of
// them is retried automatically and none leaves partial state behind.
package pvperr

import "errors"

// Category classifies a failure.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryValidation
	CategoryConflict
	CategoryNotFound
	CategoryExhausted
	CategoryForbidden
)

// String returns the category label.
func (c Category) String() string {
	switch c {
	case CategoryValidation:
		return "validation"
	case CategoryConflict:
		return "conflict"
	case CategoryNotFound:
		return "not_found"
	case CategoryExhausted:
		return "exhausted"
	case CategoryForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Error is a typed failure. Values are compared by Code, so a sentinel wrapped
// with fmt.Errorf("%w: ...") still matches with errors.Is.
type Error struct {
	Category Category
	Code     string
	Message  string
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Message }

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func newErr(cat Category, code, msg string) *Error {
	return &Error{Category: cat, Code: code, Message: msg}
}

var (
	ErrInvalidChallenge   = newErr(CategoryValidation, "invalid_challenge", "invalid challenge")
	ErrUnknownActionType  = newErr(CategoryValidation, "unknown_action_type", "unknown action type")
	ErrUnknownBattleType  = newErr(CategoryValidation, "unknown_battle_type", "unknown battle type")
	ErrInvalidTarget      = newErr(CategoryValidation, "invalid_target", "invalid target")
	ErrUnknownAbility     = newErr(CategoryValidation, "unknown_ability", "ability not equipped")
	ErrMissingField       = newErr(CategoryValidation, "missing_field", "missing required field")
	ErrNotYourTurn        = newErr(CategoryConflict, "not_your_turn", "not your turn")
	ErrAlreadyQueued      = newErr(CategoryConflict, "already_queued", "already queued")
	ErrBattleNotActive    = newErr(CategoryConflict, "battle_not_active", "battle is not active")
	ErrChallengeExpired   = newErr(CategoryConflict, "challenge_expired", "challenge expired")
	ErrInvalidState       = newErr(CategoryConflict, "invalid_state", "invalid state")
	ErrAlreadyInCombat    = newErr(CategoryConflict, "players_already_in_combat", "players already in combat")
	ErrNotCombatant       = newErr(CategoryConflict, "not_combatant", "player is not a combatant")
	ErrBattleNotFound     = newErr(CategoryNotFound, "battle_not_found", "battle not found")
	ErrChallengeNotFound  = newErr(CategoryNotFound, "challenge_not_found", "challenge not found")
	ErrPlayerNotFound     = newErr(CategoryNotFound, "player_not_found", "player not found")
	ErrNotQueued          = newErr(CategoryNotFound, "not_queued", "player is not queued")
	ErrInsufficientPoints = newErr(CategoryExhausted, "insufficient_action_points", "insufficient action points")
	ErrForbidden          = newErr(CategoryForbidden, "forbidden", "forbidden")
)

// CategoryOf returns the Category of the first *Error in err's chain, or
// CategoryUnknown for collaborator and infrastructure failures.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return CategoryUnknown
}

// CodeOf returns the Code of the first *Error in err's chain, or "internal".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}
