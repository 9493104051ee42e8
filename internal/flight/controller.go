// Package flight converts commanded body-frame velocities into the force
// and torque applied to the vehicle each simulation tick.
package flight

import (
	"errors"
	"fmt"
	"math"

	"github.com/skysim/quadsim/internal/body"
	"github.com/skysim/quadsim/internal/command"
	"github.com/skysim/quadsim/internal/pid"
)

// Limits holds the per-axis velocity command scales and the acceleration
// saturation bounds.
type Limits struct {
	MaxXYVel  float64
	MaxZVel   float64
	MaxYawVel float64

	MaxXYAccel  float64
	MaxZAccel   float64
	MaxYawAccel float64
}

// DefaultLimits matches the reference vehicle: 8 m/s and 8 m/s^2
// horizontal, 4 m/s and 4 m/s^2 vertical, pi rad/s and pi rad/s^2 yaw.
func DefaultLimits() Limits {
	return Limits{
		MaxXYVel:  8,
		MaxZVel:   4,
		MaxYawVel: math.Pi,

		MaxXYAccel:  8,
		MaxZAccel:   4,
		MaxYawAccel: math.Pi,
	}
}

// Gains configures one velocity channel. IntegralLimit of zero leaves the
// integral accumulator unbounded.
type Gains struct {
	Kp, Ki, Kd    float64
	IntegralLimit float64
}

// DefaultGains is pure proportional control with kp = 2, the reference
// tuning for all four channels.
func DefaultGains() Gains { return Gains{Kp: 2} }

// Config assembles a controller.
type Config struct {
	Limits       Limits
	X, Y, Z, Yaw Gains
	CenterOfMass body.Vector
}

// Setpoints are the current channel targets in velocity units.
type Setpoints struct {
	X, Y, Z, Yaw float64
}

// Output is what one tick applied to the body.
type Output struct {
	Force     body.Vector
	Torque    body.Vector
	Saturated bool
}

// Controller runs the four velocity channels against a rigid body. Step
// belongs to the simulation tick loop; SetCommand may be called from any
// goroutine.
type Controller struct {
	body   *body.Body
	limits Limits
	com    body.Vector

	x, y, z, yaw *pid.Controller

	lastTime float64
	primed   bool
}

// New validates the body and builds the channel controllers. A missing or
// degenerate body is a fatal precondition, not a per-tick error.
func New(b *body.Body, cfg Config) (*Controller, error) {
	if b == nil {
		return nil, errors.New("flight: nil body")
	}
	if b.Mass <= 0 {
		return nil, fmt.Errorf("flight: mass must be positive, got %f", b.Mass)
	}
	if b.Inertia.X <= 0 || b.Inertia.Y <= 0 || b.Inertia.Z <= 0 {
		return nil, fmt.Errorf("flight: inertia must be positive, got %+v", b.Inertia)
	}

	mk := func(angular bool, g Gains) *pid.Controller {
		c := pid.New(angular, g.Kp, g.Ki, g.Kd)
		c.SetIntegralLimit(g.IntegralLimit)
		return c
	}

	return &Controller{
		body:   b,
		limits: cfg.Limits,
		com:    cfg.CenterOfMass,
		x:      mk(false, cfg.X),
		y:      mk(false, cfg.Y),
		z:      mk(false, cfg.Z),
		yaw:    mk(true, cfg.Yaw),
	}, nil
}

// SetCommand scales a normalized twist by the per-axis maximum velocities
// and stores the results as the channel setpoints. The whole command takes
// effect on the next tick; successive commands overwrite each other.
func (c *Controller) SetCommand(cmd command.Command) {
	c.x.SetTarget(cmd.X * c.limits.MaxXYVel)
	c.y.SetTarget(cmd.Y * c.limits.MaxXYVel)
	c.z.SetTarget(cmd.Z * c.limits.MaxZVel)
	c.yaw.SetTarget(cmd.Yaw * c.limits.MaxYawVel)
}

// Setpoints returns the current channel targets.
func (c *Controller) Setpoints() Setpoints {
	return Setpoints{
		X:   c.x.Target(),
		Y:   c.y.Target(),
		Z:   c.z.Target(),
		Yaw: c.yaw.Target(),
	}
}

// Step runs one control tick at simulation time now (seconds): it updates
// the four channels against the measured velocities, clamps the
// acceleration demands, converts them to force and torque, zeroes the
// body's roll and pitch, and applies the result to the body.
//
// The first tick after construction runs with dt = 0 so the integral and
// derivative terms start from rest.
func (c *Controller) Step(now float64) Output {
	dt := 0.0
	if c.primed {
		dt = now - c.lastTime
		if dt < 0 {
			dt = 0
		}
	}
	c.primed = true
	c.lastTime = now

	lin := c.body.LinVel
	ang := c.body.AngVel

	ax := c.x.Update(lin.X, dt)
	ay := c.y.Update(lin.Y, dt)
	az := c.z.Update(lin.Z, dt)
	ayaw := c.yaw.Update(ang.Z, dt)

	// only yaw is torque-controlled; roll and pitch are pinned below
	cx := Clamp(ax, c.limits.MaxXYAccel)
	cy := Clamp(ay, c.limits.MaxXYAccel)
	cz := Clamp(az, c.limits.MaxZAccel)
	cyaw := Clamp(ayaw, c.limits.MaxYawAccel)

	out := Output{
		Force:     body.Vector{X: cx, Y: cy, Z: cz}.Scale(c.body.Mass),
		Torque:    body.Vector{Z: cyaw}.Mul(c.body.Inertia),
		Saturated: cx != ax || cy != ay || cz != az || cyaw != ayaw,
	}

	// hold the vehicle flat: overwrite roll and pitch, leave yaw alone
	rot := c.body.Rotation
	rot.Roll, rot.Pitch = 0, 0
	c.body.Rotation = rot

	c.body.AddForce(out.Force, c.com)
	c.body.AddTorque(out.Torque)

	return out
}

// Reset clears the channel accumulators and the tick clock. Setpoints
// survive a reset.
func (c *Controller) Reset() {
	c.x.Reset()
	c.y.Reset()
	c.z.Reset()
	c.yaw.Reset()
	c.primed = false
}

// Clamp saturates v to [-max, max], preserving sign.
func Clamp(v, max float64) float64 {
	if v > max {
		return max
	}
	if v < -max {
		return -max
	}
	return v
}
