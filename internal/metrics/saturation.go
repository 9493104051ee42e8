package metrics

import "github.com/skysim/quadsim/internal/sim"

// Saturation is the fraction of ticks on which at least one acceleration
// channel hit its clamp. A ratio near 1 means the gains are asking for
// more than the vehicle can deliver.
type Saturation struct {
	hits    int
	samples int
}

func NewSaturation() *Saturation {
	return &Saturation{}
}

func (m *Saturation) Name() string { return "saturation_ratio" }

func (m *Saturation) Observe(s sim.Snapshot) {
	if s.Saturated {
		m.hits++
	}
	m.samples++
}

func (m *Saturation) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return float64(m.hits) / float64(m.samples)
}

func (m *Saturation) Reset() {
	m.hits = 0
	m.samples = 0
}
