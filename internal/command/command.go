// Package command carries velocity setpoints to the flight controller.
// Sources are asynchronous and last-write-wins: each command replaces the
// previous one in full, there is no queueing or blending.
package command

// Command is a normalized body-frame velocity command. Each component is
// a joystick-style value in roughly [-1, 1]; the flight controller scales
// it by the per-axis maximum velocities.
type Command struct {
	X   float64 `json:"x" yaml:"x"`
	Y   float64 `json:"y" yaml:"y"`
	Z   float64 `json:"z" yaml:"z"`
	Yaw float64 `json:"yaw" yaml:"yaw"`
}

// Sink accepts commands. The flight controller implements it.
type Sink interface {
	SetCommand(Command)
}
