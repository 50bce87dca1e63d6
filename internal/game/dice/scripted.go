package dice

import "sync"

// ScriptedSource replays a fixed sequence of draws. Ints and Floats are
// consumed independently; once a sequence is exhausted the last value repeats,
// or zero is returned when the sequence was empty.
//
// Intn results are clamped into [0, n) so that scripted values never violate
// the Source contract.
type ScriptedSource struct {
	mu     sync.Mutex
	ints   []int
	floats []float64
	ii, fi int
}

// NewScriptedSource creates a ScriptedSource. ints are the raw Intn results
// (already zero-based); floats are the Float64 results.
func NewScriptedSource(ints []int, floats []float64) *ScriptedSource {
	return &ScriptedSource{ints: ints, floats: floats}
}

// Intn returns the next scripted int, clamped into [0, n).
func (s *ScriptedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := 0
	switch {
	case s.ii < len(s.ints):
		v = s.ints[s.ii]
		s.ii++
	case len(s.ints) > 0:
		v = s.ints[len(s.ints)-1]
	}
	if v < 0 {
		v = 0
	}
	if v >= n {
		v = n - 1
	}
	return v
}

// Float64 returns the next scripted float.
func (s *ScriptedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.fi < len(s.floats):
		v := s.floats[s.fi]
		s.fi++
		return v
	case len(s.floats) > 0:
		return s.floats[len(s.floats)-1]
	}
	return 0
}
