package metrics

import "github.com/skysim/quadsim/internal/sim"

// ControlEffort is the mean magnitude of the applied force plus torque.
type ControlEffort struct {
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{}
}

func (m *ControlEffort) Name() string { return "control_effort" }

func (m *ControlEffort) Observe(s sim.Snapshot) {
	m.sum += s.Force.Norm() + s.Torque.Norm()
	m.samples++
}

func (m *ControlEffort) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *ControlEffort) Reset() {
	m.sum = 0
	m.samples = 0
}
