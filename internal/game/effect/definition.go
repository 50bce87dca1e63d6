// Package effect models timed status effects carried by combatants.
package effect

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind names the mechanical behaviour of a status effect.
type Kind string

const (
	// DefenseUp raises effective defense by its magnitude.
	DefenseUp Kind = "defense_up"
	// AttackUp raises attack by its magnitude.
	AttackUp Kind = "attack_up"
	// Poison removes magnitude hp on every tick.
	Poison Kind = "poison"
	// Regen restores magnitude hp on every tick, capped at max hp.
	Regen Kind = "regen"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case DefenseUp, AttackUp, Poison, Regen:
		return true
	}
	return false
}

// DefendID is the definition applied by the defend action.
const DefendID = "defend"

// Def is the static definition of a status effect, loaded from YAML.
type Def struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Kind        Kind   `yaml:"kind"`
	Magnitude   int    `yaml:"magnitude"`
	Duration    int    `yaml:"duration"` // turns
}

// Validate reports the first structural problem with d.
func (d *Def) Validate() error {
	switch {
	case d.ID == "":
		return fmt.Errorf("effect id must not be empty")
	case !d.Kind.Valid():
		return fmt.Errorf("effect %q: unknown kind %q", d.ID, d.Kind)
	case d.Magnitude < 0:
		return fmt.Errorf("effect %q: magnitude must be >= 0", d.ID)
	case d.Duration < 1:
		return fmt.Errorf("effect %q: duration must be >= 1", d.ID)
	}
	return nil
}

// Status instantiates d as a fresh status with its full duration.
func (d *Def) Status() Status {
	return Status{Type: d.Kind, Magnitude: d.Magnitude, Remaining: d.Duration}
}

// Registry holds all known Defs keyed by ID.
// A Registry is populated at startup and read-only afterwards.
type Registry struct {
	defs map[string]*Def
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Def)}
}

// DefaultRegistry returns a Registry holding the built-in definitions.
//
// Postcondition: Get(DefendID) succeeds.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&Def{ID: DefendID, Name: "Guarded", Description: "Braced against the next blows.", Kind: DefenseUp, Magnitude: 10, Duration: 2})
	r.Register(&Def{ID: "venom", Name: "Venom", Description: "Poison seeps through the wound.", Kind: Poison, Magnitude: 5, Duration: 3})
	r.Register(&Def{ID: "mending", Name: "Mending", Description: "Wounds knit closed.", Kind: Regen, Magnitude: 8, Duration: 3})
	r.Register(&Def{ID: "fury", Name: "Fury", Description: "Strikes land harder.", Kind: AttackUp, Magnitude: 10, Duration: 2})
	return r
}

// Register adds def to the registry, overwriting any existing entry with the same ID.
// Precondition: def must not be nil and def.ID must not be empty.
func (r *Registry) Register(def *Def) {
	r.defs[def.ID] = def
}

// Get returns the Def for id, or (nil, false) if not found.
func (r *Registry) Get(id string) (*Def, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// All returns the registered Defs sorted by ID.
func (r *Registry) All() []*Def {
	out := make([]*Def, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadDirectory reads every *.yaml file in dir on top of the built-in
// definitions, so a file may override a default by reusing its ID.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error naming the first file that fails.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading effect dir %q: %w", dir, err)
	}
	reg := DefaultRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var def Def
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("validating %q: %w", path, err)
		}
		reg.Register(&def)
	}
	return reg, nil
}
