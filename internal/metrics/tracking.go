// Package metrics scores velocity-tracking runs.
package metrics

import (
	"math"

	"github.com/skysim/quadsim/internal/body"
	"github.com/skysim/quadsim/internal/sim"
)

// TrackingError is the RMS velocity error across the four controlled
// channels.
type TrackingError struct {
	sumSq   float64
	samples int
}

func NewTrackingError() *TrackingError {
	return &TrackingError{}
}

func (m *TrackingError) Name() string { return "tracking_rms" }

func (m *TrackingError) Observe(s sim.Snapshot) {
	ev := body.Vector{X: s.Setpoints.X, Y: s.Setpoints.Y, Z: s.Setpoints.Z}.Sub(s.LinVel)
	eyaw := s.Setpoints.Yaw - s.AngVel.Z

	m.sumSq += ev.X*ev.X + ev.Y*ev.Y + ev.Z*ev.Z + eyaw*eyaw
	m.samples++
}

func (m *TrackingError) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return math.Sqrt(m.sumSq / float64(4*m.samples))
}

func (m *TrackingError) Reset() {
	m.sumSq = 0
	m.samples = 0
}
