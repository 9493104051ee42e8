package command

import "sort"

// Step schedules a command at a simulation time.
type Step struct {
	At      float64 `yaml:"at"`
	Command Command `yaml:",inline"`
}

// Script replays a fixed command schedule against simulation time. It is
// the deterministic command source for offline runs and tests.
type Script struct {
	steps []Step
	next  int
}

// NewScript copies and time-sorts the given steps.
func NewScript(steps []Step) *Script {
	sorted := make([]Step, len(steps))
	copy(sorted, steps)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At < sorted[j].At })
	return &Script{steps: sorted}
}

// Advance returns the command that should be active at time t, if one
// became due since the previous call. Multiple due commands collapse to
// the latest one.
func (s *Script) Advance(t float64) (Command, bool) {
	var cmd Command
	due := false
	for s.next < len(s.steps) && s.steps[s.next].At <= t {
		cmd = s.steps[s.next].Command
		due = true
		s.next++
	}
	return cmd, due
}

// Reset rewinds the script to the beginning.
func (s *Script) Reset() { s.next = 0 }

// Len reports the number of scheduled steps.
func (s *Script) Len() int { return len(s.steps) }
