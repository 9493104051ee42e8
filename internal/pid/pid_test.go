package pid

import (
	"math"
	"testing"
)

func TestUpdateZeroDtIsProportional(t *testing.T) {
	c := New(false, 2.0, 0.5, 0.3)
	c.SetTarget(8.0)

	got := c.Update(0.0, 0)
	if got != 16.0 {
		t.Errorf("expected pure proportional output 16.0, got %f", got)
	}

	// A second zero-dt update must not have accumulated anything.
	got = c.Update(0.0, 0)
	if got != 16.0 {
		t.Errorf("expected 16.0 on repeat, got %f", got)
	}
}

func TestUpdateIntegral(t *testing.T) {
	c := New(false, 0, 1.0, 0)
	c.SetTarget(1.0)

	// error is constant 1.0, so after n steps the integral is n*dt
	var out float64
	for i := 0; i < 10; i++ {
		out = c.Update(0.0, 0.1)
	}
	if math.Abs(out-1.0) > 1e-12 {
		t.Errorf("expected integral term 1.0 after 10 steps, got %f", out)
	}
}

func TestUpdateDerivative(t *testing.T) {
	c := New(false, 0, 0, 1.0)
	c.SetTarget(0.0)

	c.Update(0.0, 0) // seed prevErr with zero error
	out := c.Update(-1.0, 0.5)
	// error went 0 -> 1 over 0.5s
	if math.Abs(out-2.0) > 1e-12 {
		t.Errorf("expected derivative term 2.0, got %f", out)
	}
}

func TestIntegralLimit(t *testing.T) {
	c := New(false, 0, 1.0, 0)
	c.SetIntegralLimit(0.5)
	c.SetTarget(1.0)

	var out float64
	for i := 0; i < 100; i++ {
		out = c.Update(0.0, 0.1)
	}
	if out != 0.5 {
		t.Errorf("expected integral clamped at 0.5, got %f", out)
	}
}

func TestAngularErrorTakesShortWay(t *testing.T) {
	c := New(true, 1.0, 0, 0)
	c.SetTarget(0.0)

	// measured just under a full turn: wrapped error must be tiny
	out := c.Update(2*math.Pi-0.01, 0)
	if math.Abs(out) > 0.011 {
		t.Errorf("expected wrapped error <= 0.01, got %f", out)
	}
}

func TestSetTargetLastWriteWins(t *testing.T) {
	c := New(false, 1.0, 0, 0)
	c.SetTarget(3.0)
	c.SetTarget(-2.0)

	if got := c.Target(); got != -2.0 {
		t.Errorf("expected target -2.0, got %f", got)
	}
	if out := c.Update(0, 0); out != -2.0 {
		t.Errorf("expected output -2.0, got %f", out)
	}
}

func TestReset(t *testing.T) {
	c := New(false, 0, 1.0, 0)
	c.SetTarget(1.0)
	c.Update(0, 1.0)
	c.Reset()

	if out := c.Update(0, 0); out != 0 {
		t.Errorf("expected zero output after reset with ki only, got %f", out)
	}
	if c.Target() != 1.0 {
		t.Error("reset must not touch the setpoint")
	}
}

func TestWrapAngle(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-3 * math.Pi / 2, math.Pi / 2},
		{2 * math.Pi, 0},
		{5 * math.Pi, math.Pi},
		{2*math.Pi - 0.01, -0.01},
	}

	for _, tt := range tests {
		if got := WrapAngle(tt.in); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("WrapAngle(%f) = %f, want %f", tt.in, got, tt.want)
		}
	}
}
