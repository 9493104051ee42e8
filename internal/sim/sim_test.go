package sim

import (
	"context"
	"math"
	"testing"

	"github.com/skysim/quadsim/internal/body"
	"github.com/skysim/quadsim/internal/command"
	"github.com/skysim/quadsim/internal/flight"
)

func newRunner(t *testing.T, script *command.Script) (*Runner, *body.Body) {
	t.Helper()

	b := body.New(1.5, body.Vector{X: 0.02, Y: 0.02, Z: 0.04})
	b.Gravity = 0

	ctrl, err := flight.New(b, flight.Config{
		Limits: flight.DefaultLimits(),
		X:      flight.DefaultGains(),
		Y:      flight.DefaultGains(),
		Z:      flight.DefaultGains(),
		Yaw:    flight.DefaultGains(),
	})
	if err != nil {
		t.Fatalf("controller setup failed: %v", err)
	}

	return NewRunner(b, ctrl, script), b
}

func TestRunSnapshotCount(t *testing.T) {
	r, _ := newRunner(t, nil)

	result, err := r.Run(context.Background(), Config{Dt: 0.1, Duration: 1.0})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(result.Snapshots) != 11 {
		t.Errorf("expected 11 snapshots, got %d", len(result.Snapshots))
	}
}

func TestRunInvalidConfig(t *testing.T) {
	r, _ := newRunner(t, nil)

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero dt", Config{Dt: 0, Duration: 1}},
		{"negative dt", Config{Dt: -0.1, Duration: 1}},
		{"zero duration", Config{Dt: 0.1, Duration: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Run(context.Background(), tt.cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestRunAppliesScriptedCommands(t *testing.T) {
	script := command.NewScript([]command.Step{
		{At: 0, Command: command.Command{X: 0.5}},
	})
	r, b := newRunner(t, script)

	result, err := r.Run(context.Background(), Config{Dt: 0.01, Duration: 5.0})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	last := result.Snapshots[len(result.Snapshots)-1]
	if last.Setpoints.X != 4.0 {
		t.Errorf("expected setpoint 4.0, got %f", last.Setpoints.X)
	}
	if math.Abs(b.LinVel.X-4.0) > 0.05 {
		t.Errorf("expected converged vx ~4.0, got %f", b.LinVel.X)
	}
}

func TestRunCancellation(t *testing.T) {
	r, _ := newRunner(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Run(ctx, Config{Dt: 0.01, Duration: 10}); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

type countMetric struct {
	ticks int
}

func (c *countMetric) Name() string       { return "ticks" }
func (c *countMetric) Observe(s Snapshot) { c.ticks++ }
func (c *countMetric) Value() float64     { return float64(c.ticks) }
func (c *countMetric) Reset()             { c.ticks = 0 }

func TestRunCollectsMetrics(t *testing.T) {
	r, _ := newRunner(t, nil)
	r.AddMetric(&countMetric{})

	result, err := r.Run(context.Background(), Config{Dt: 0.1, Duration: 1.0})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Metrics["ticks"] != 11 {
		t.Errorf("expected 11 observed ticks, got %f", result.Metrics["ticks"])
	}
}

func TestRunWithCallbackStopsEarly(t *testing.T) {
	r, _ := newRunner(t, nil)

	ticks := 0
	err := r.RunWithCallback(context.Background(), Config{Dt: 0.1, Duration: 10},
		func(s Snapshot) bool {
			ticks++
			return ticks < 5
		})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if ticks != 5 {
		t.Errorf("expected 5 ticks, got %d", ticks)
	}
}
