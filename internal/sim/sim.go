// Package sim drives the flight controller and the rigid body through
// fixed timesteps.
package sim

import (
	"context"
	"fmt"

	"github.com/skysim/quadsim/internal/body"
	"github.com/skysim/quadsim/internal/command"
	"github.com/skysim/quadsim/internal/flight"
)

// Snapshot captures one tick: the measured state the controller saw and
// what it applied in response.
type Snapshot struct {
	Time      float64
	LinVel    body.Vector
	AngVel    body.Vector
	Setpoints flight.Setpoints
	Force     body.Vector
	Torque    body.Vector
	Position  body.Vector
	Yaw       float64
	Saturated bool
}

// Observer sees every tick.
type Observer interface {
	OnTick(s Snapshot)
}

// Metric accumulates a scalar over a run.
type Metric interface {
	Name() string
	Observe(s Snapshot)
	Value() float64
	Reset()
}

// Config is a run definition.
type Config struct {
	Dt       float64
	Duration float64
}

// Result is the outcome of a run.
type Result struct {
	Snapshots []Snapshot
	Metrics   map[string]float64
}

// Runner owns one vehicle: a body, its flight controller and an optional
// scripted command source.
type Runner struct {
	body      *body.Body
	ctrl      *flight.Controller
	script    *command.Script
	metrics   []Metric
	observers []Observer
}

// NewRunner assembles a runner. script may be nil.
func NewRunner(b *body.Body, ctrl *flight.Controller, script *command.Script) *Runner {
	return &Runner{body: b, ctrl: ctrl, script: script}
}

func (r *Runner) AddMetric(m Metric)     { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o Observer) { r.observers = append(r.observers, o) }

// Tick advances the vehicle by one step at simulation time t: scripted
// commands due at t are applied, the controller runs, then the body
// integrates dt.
func (r *Runner) Tick(t, dt float64) Snapshot {
	if r.script != nil {
		if cmd, ok := r.script.Advance(t); ok {
			r.ctrl.SetCommand(cmd)
		}
	}

	lin := r.body.LinVel
	ang := r.body.AngVel
	out := r.ctrl.Step(t)

	snap := Snapshot{
		Time:      t,
		LinVel:    lin,
		AngVel:    ang,
		Setpoints: r.ctrl.Setpoints(),
		Force:     out.Force,
		Torque:    out.Torque,
		Position:  r.body.Position,
		Yaw:       r.body.Rotation.Yaw,
		Saturated: out.Saturated,
	}

	r.body.Step(dt)
	return snap
}

// Run executes a full scripted run and collects snapshots and metrics.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	steps := int(cfg.Duration / cfg.Dt)
	result := &Result{
		Snapshots: make([]Snapshot, 0, steps+1),
		Metrics:   make(map[string]float64),
	}

	if r.script != nil {
		r.script.Reset()
	}
	for _, m := range r.metrics {
		m.Reset()
	}

	for i := 0; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		snap := r.Tick(float64(i)*cfg.Dt, cfg.Dt)
		result.Snapshots = append(result.Snapshots, snap)

		for _, m := range r.metrics {
			m.Observe(snap)
		}
		for _, o := range r.observers {
			o.OnTick(snap)
		}
	}

	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

// RunWithCallback steps until the callback returns false, the duration
// elapses or ctx is cancelled. Used by the live view and the realtime
// serve loop.
func (r *Runner) RunWithCallback(ctx context.Context, cfg Config, callback func(Snapshot) bool) error {
	if err := validate(cfg); err != nil {
		return err
	}

	steps := int(cfg.Duration / cfg.Dt)
	for i := 0; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !callback(r.Tick(float64(i)*cfg.Dt, cfg.Dt)) {
			return nil
		}
	}
	return nil
}

func validate(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("sim: dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("sim: duration must be positive, got %f", cfg.Duration)
	}
	return nil
}
