package effect

// Status is one active effect on a combatant.
type Status struct {
	Type      Kind `json:"type"`
	Magnitude int  `json:"magnitude"`
	Remaining int  `json:"remaining_duration"`
}

// TickResult summarises the hp movement caused by one Tick.
type TickResult struct {
	Damage  int    `json:"damage,omitempty"`
	Healed  int    `json:"healed,omitempty"`
	Expired []Kind `json:"expired,omitempty"`
}

// Apply returns statuses with s added. An existing status of the same type is
// refreshed in place: magnitude and remaining duration each become the larger
// of the two, and list order is preserved.
//
// Postcondition: the returned slice holds at most one status per type.
func Apply(statuses []Status, s Status) []Status {
	for i := range statuses {
		if statuses[i].Type != s.Type {
			continue
		}
		if s.Magnitude > statuses[i].Magnitude {
			statuses[i].Magnitude = s.Magnitude
		}
		if s.Remaining > statuses[i].Remaining {
			statuses[i].Remaining = s.Remaining
		}
		return statuses
	}
	return append(statuses, s)
}

// Tick applies one turn of every status in order, then decrements durations
// and drops statuses that reach zero. Poison subtracts its magnitude from hp;
// regen adds its magnitude capped at maxHP.
//
// Precondition: 0 <= hp <= maxHP.
// Postcondition: 0 <= returned hp <= maxHP; every returned status has Remaining >= 1.
func Tick(statuses []Status, hp, maxHP int) ([]Status, int, TickResult) {
	var res TickResult
	var kept []Status
	for _, s := range statuses {
		switch s.Type {
		case Poison:
			dmg := min(s.Magnitude, hp)
			hp -= dmg
			res.Damage += dmg
		case Regen:
			heal := min(s.Magnitude, maxHP-hp)
			hp += heal
			res.Healed += heal
		}
		s.Remaining--
		if s.Remaining <= 0 {
			res.Expired = append(res.Expired, s.Type)
			continue
		}
		kept = append(kept, s)
	}
	return kept, hp, res
}

// DefenseBonus returns the sum of every active defense_up magnitude.
//
// Postcondition: Returns >= 0.
func DefenseBonus(statuses []Status) int {
	return sumOf(statuses, DefenseUp)
}

// AttackBonus returns the sum of every active attack_up magnitude.
//
// Postcondition: Returns >= 0.
func AttackBonus(statuses []Status) int {
	return sumOf(statuses, AttackUp)
}

func sumOf(statuses []Status, k Kind) int {
	total := 0
	for _, s := range statuses {
		if s.Type == k {
			total += s.Magnitude
		}
	}
	return total
}

// Clone returns an independent copy of statuses.
func Clone(statuses []Status) []Status {
	if statuses == nil {
		return nil
	}
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}
