// Package body provides the rigid body the flight controller acts on.
// It plays the role of the physics engine: it owns mass and inertia,
// accepts forces and torques, and integrates the state once per tick.
package body

import "math"

const DefaultGravity = 9.8

// Body is a six degree-of-freedom rigid body. Velocities are expressed in
// the body frame, position in the world frame. Forces and torques
// accumulate between Step calls and are consumed by Step.
//
// Gravity acts along the body -Z axis. That is only exact while roll and
// pitch are held at zero, which the flight controller guarantees.
type Body struct {
	Mass    float64
	Inertia Vector // principal moments about the body axes
	Gravity float64

	Position Vector
	Rotation Euler
	LinVel   Vector
	AngVel   Vector

	force  Vector
	torque Vector
}

// New returns a body at rest at the world origin.
func New(mass float64, inertia Vector) *Body {
	return &Body{Mass: mass, Inertia: inertia, Gravity: DefaultGravity}
}

// AddForce accumulates a body-frame force applied at a point relative to
// the center of mass. An off-center application point induces a torque.
func (b *Body) AddForce(f, at Vector) {
	b.force = b.force.Add(f)
	b.torque = b.torque.Add(at.Cross(f))
}

// AddTorque accumulates a body-frame torque about the center of mass.
func (b *Body) AddTorque(t Vector) {
	b.torque = b.torque.Add(t)
}

// Step integrates one timestep with semi-implicit Euler and clears the
// force and torque accumulators.
func (b *Body) Step(dt float64) {
	defer func() {
		b.force = Vector{}
		b.torque = Vector{}
	}()
	if dt <= 0 {
		return
	}

	accel := b.force.Scale(1 / b.Mass)
	accel.Z -= b.Gravity
	b.LinVel = b.LinVel.Add(accel.Scale(dt))

	alpha := Vector{
		X: b.torque.X / b.Inertia.X,
		Y: b.torque.Y / b.Inertia.Y,
		Z: b.torque.Z / b.Inertia.Z,
	}
	b.AngVel = b.AngVel.Add(alpha.Scale(dt))

	// body velocity rotated through yaw gives the world-frame track
	sin, cos := math.Sincos(b.Rotation.Yaw)
	b.Position.X += (b.LinVel.X*cos - b.LinVel.Y*sin) * dt
	b.Position.Y += (b.LinVel.X*sin + b.LinVel.Y*cos) * dt
	b.Position.Z += b.LinVel.Z * dt

	b.Rotation.Roll += b.AngVel.X * dt
	b.Rotation.Pitch += b.AngVel.Y * dt
	b.Rotation.Yaw = wrap(b.Rotation.Yaw + b.AngVel.Z*dt)
}

func wrap(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	switch {
	case a > math.Pi:
		a -= 2 * math.Pi
	case a <= -math.Pi:
		a += 2 * math.Pi
	}
	return a
}
