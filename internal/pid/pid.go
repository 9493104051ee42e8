// Package pid implements the single-channel velocity regulators used by
// the flight controller.
package pid

import (
	"math"
	"sync/atomic"
)

// Controller is a discrete PID regulator for one scalar channel. Update
// returns an acceleration demand; clamping is the caller's responsibility.
//
// SetTarget is safe to call from any goroutine. Every other method belongs
// to the tick loop.
type Controller struct {
	kp, ki, kd float64
	angular    bool

	target atomic.Uint64 // float64 bits

	integral      float64
	integralLimit float64
	prevErr       float64
}

// New returns a controller with the given gains. Angular channels wrap
// their error into (-pi, pi] so the loop always takes the short way around.
func New(angular bool, kp, ki, kd float64) *Controller {
	return &Controller{kp: kp, ki: ki, kd: kd, angular: angular}
}

// SetIntegralLimit bounds the integral accumulator to [-limit, limit].
// Zero leaves accumulation unbounded, which matches the reference tuning
// where ki is 0 anyway.
func (c *Controller) SetIntegralLimit(limit float64) {
	c.integralLimit = math.Abs(limit)
}

// SetTarget stores a new setpoint, replacing the previous one. It takes
// effect on the next Update.
func (c *Controller) SetTarget(v float64) {
	c.target.Store(math.Float64bits(v))
}

// Target returns the current setpoint.
func (c *Controller) Target() float64 {
	return math.Float64frombits(c.target.Load())
}

// Update advances the loop by dt seconds against the current measurement
// and returns the acceleration demand. dt must be non-negative; with
// dt == 0 the integral and derivative terms contribute nothing, so the
// output is the pure proportional term.
func (c *Controller) Update(measured, dt float64) float64 {
	err := c.Target() - measured
	if c.angular {
		err = WrapAngle(err)
	}

	derivative := 0.0
	if dt > 0 {
		c.integral += err * dt
		if c.integralLimit > 0 {
			c.integral = math.Min(c.integralLimit, math.Max(-c.integralLimit, c.integral))
		}
		derivative = (err - c.prevErr) / dt
	}
	c.prevErr = err

	return c.kp*err + c.ki*c.integral + c.kd*derivative
}

// Reset clears the integral accumulator and derivative history. The
// setpoint is left alone.
func (c *Controller) Reset() {
	c.integral = 0
	c.prevErr = 0
}

// WrapAngle maps an angle in radians onto (-pi, pi].
func WrapAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	switch {
	case a > math.Pi:
		a -= 2 * math.Pi
	case a <= -math.Pi:
		a += 2 * math.Pi
	}
	return a
}
