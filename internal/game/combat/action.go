package combat

import (
	"fmt"

	"github.com/cory-johannsen/pvp/internal/game/pvperr"
)

// ActionType identifies what a combatant does with an action.
// The zero value (ActionUnknown) is intentionally invalid.
type ActionType int

const (
	ActionUnknown     ActionType = iota // zero value; intentionally invalid
	ActionAttack                        // costs 1 AP
	ActionHeavyAttack                   // costs 2 AP; 1.5x base damage
	ActionDefend                        // costs 1 AP; applies the defend effect
	ActionUsePower                      // costs 2 AP; resolved by the ability resolver
	ActionUseItem                       // costs 1 AP; resolved by the ability resolver
	ActionFlee                          // costs 3 AP; may be attempted off-turn
)

var actionNames = map[ActionType]string{
	ActionAttack:      "attack",
	ActionHeavyAttack: "heavy_attack",
	ActionDefend:      "defend",
	ActionUsePower:    "use_power",
	ActionUseItem:     "use_item",
	ActionFlee:        "flee",
}

// ParseActionType converts a wire name into an ActionType.
//
// Postcondition: Returns pvperr.ErrUnknownActionType for any name outside the closed set.
func ParseActionType(s string) (ActionType, error) {
	for t, name := range actionNames {
		if name == s {
			return t, nil
		}
	}
	return ActionUnknown, fmt.Errorf("%w: %q", pvperr.ErrUnknownActionType, s)
}

// Cost returns the action point cost for the ActionType.
// Postcondition: returns 0 for ActionUnknown.
func (a ActionType) Cost() int {
	switch a {
	case ActionAttack, ActionDefend, ActionUseItem:
		return 1
	case ActionHeavyAttack, ActionUsePower:
		return 2
	case ActionFlee:
		return 3
	default:
		return 0
	}
}

// String returns the wire name of the ActionType, or "unknown".
func (a ActionType) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// Offensive reports whether the action needs an opposing target.
func (a ActionType) Offensive() bool {
	switch a {
	case ActionAttack, ActionHeavyAttack, ActionUsePower, ActionUseItem:
		return true
	}
	return false
}

// ActionRequest is one player's submitted action.
type ActionRequest struct {
	BattleID  string
	PlayerID  string
	Action    ActionType
	TargetID  string // optional; defaults to the sole living opponent
	AbilityID string // required for use_power and use_item
}

// CanPerformAction reports whether c has enough action points for a.
func CanPerformAction(c *Combatant, a ActionType) bool {
	return a != ActionUnknown && c.ActionPoints >= a.Cost()
}

// ConsumeActionPoints deducts the cost of a from c.
//
// Postcondition: on success ActionPoints is reduced by a.Cost(); on error c is unchanged.
func ConsumeActionPoints(c *Combatant, a ActionType) error {
	if a == ActionUnknown {
		return pvperr.ErrUnknownActionType
	}
	if !CanPerformAction(c, a) {
		return fmt.Errorf("%w: need %d, have %d", pvperr.ErrInsufficientPoints, a.Cost(), c.ActionPoints)
	}
	c.ActionPoints -= a.Cost()
	return nil
}
