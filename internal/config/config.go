// Package config loads vehicle and run configuration from YAML and maps
// it onto the domain types.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/skysim/quadsim/internal/body"
	"github.com/skysim/quadsim/internal/command"
	"github.com/skysim/quadsim/internal/flight"
	"github.com/skysim/quadsim/internal/sim"
)

const (
	DefaultDt       = 0.01
	DefaultDuration = 10.0
	DefaultMass     = 1.5
	DefaultKp       = 2.0

	DefaultTelemetryRate = 10.0 // Hz
)

type Config struct {
	Vehicle VehicleConfig  `yaml:"vehicle"`
	Gains   GainsConfig    `yaml:"gains"`
	Limits  LimitsConfig   `yaml:"limits"`
	Sim     SimConfig      `yaml:"sim"`
	Script  []command.Step `yaml:"script"`
	Serve   ServeConfig    `yaml:"serve"`
}

type VehicleConfig struct {
	Mass         float64     `yaml:"mass"`
	Inertia      body.Vector `yaml:"inertia"`
	CenterOfMass body.Vector `yaml:"center_of_mass"`
	Gravity      float64     `yaml:"gravity"`
}

type ChannelConfig struct {
	Kp            float64 `yaml:"kp"`
	Ki            float64 `yaml:"ki"`
	Kd            float64 `yaml:"kd"`
	IntegralLimit float64 `yaml:"integral_limit"`
}

type GainsConfig struct {
	X   ChannelConfig `yaml:"x"`
	Y   ChannelConfig `yaml:"y"`
	Z   ChannelConfig `yaml:"z"`
	Yaw ChannelConfig `yaml:"yaw"`
}

type LimitsConfig struct {
	MaxXYVel  float64 `yaml:"max_xy_vel"`
	MaxZVel   float64 `yaml:"max_z_vel"`
	MaxYawVel float64 `yaml:"max_yaw_vel"`

	MaxXYAccel  float64 `yaml:"max_xy_accel"`
	MaxZAccel   float64 `yaml:"max_z_accel"`
	MaxYawAccel float64 `yaml:"max_yaw_accel"`
}

type SimConfig struct {
	Dt       float64 `yaml:"dt"`
	Duration float64 `yaml:"duration"`
}

type ServeConfig struct {
	CommandAddr   string  `yaml:"command_addr"`
	CANInterface  string  `yaml:"can_interface"`
	TelemetryAddr string  `yaml:"telemetry_addr"`
	TelemetryRate float64 `yaml:"telemetry_rate"`
}

func DefaultConfig() *Config {
	limits := flight.DefaultLimits()
	ch := ChannelConfig{Kp: DefaultKp}
	return &Config{
		Vehicle: VehicleConfig{
			Mass:    DefaultMass,
			Inertia: body.Vector{X: 0.02, Y: 0.02, Z: 0.04},
			Gravity: body.DefaultGravity,
		},
		Gains: GainsConfig{X: ch, Y: ch, Z: ch, Yaw: ch},
		Limits: LimitsConfig{
			MaxXYVel:    limits.MaxXYVel,
			MaxZVel:     limits.MaxZVel,
			MaxYawVel:   limits.MaxYawVel,
			MaxXYAccel:  limits.MaxXYAccel,
			MaxZAccel:   limits.MaxZAccel,
			MaxYawAccel: limits.MaxYawAccel,
		},
		Sim: SimConfig{Dt: DefaultDt, Duration: DefaultDuration},
		Serve: ServeConfig{
			CommandAddr:   ":8890",
			TelemetryAddr: "127.0.0.1:8891",
			TelemetryRate: DefaultTelemetryRate,
		},
	}
}

// Load reads a YAML config on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Body builds the rigid body described by the vehicle section.
func (c *Config) Body() *body.Body {
	b := body.New(c.Vehicle.Mass, c.Vehicle.Inertia)
	b.Gravity = c.Vehicle.Gravity
	return b
}

// FlightConfig maps the gains and limits sections onto the controller
// configuration.
func (c *Config) FlightConfig() flight.Config {
	gains := func(ch ChannelConfig) flight.Gains {
		return flight.Gains{Kp: ch.Kp, Ki: ch.Ki, Kd: ch.Kd, IntegralLimit: ch.IntegralLimit}
	}
	return flight.Config{
		Limits: flight.Limits{
			MaxXYVel:    c.Limits.MaxXYVel,
			MaxZVel:     c.Limits.MaxZVel,
			MaxYawVel:   c.Limits.MaxYawVel,
			MaxXYAccel:  c.Limits.MaxXYAccel,
			MaxZAccel:   c.Limits.MaxZAccel,
			MaxYawAccel: c.Limits.MaxYawAccel,
		},
		X:            gains(c.Gains.X),
		Y:            gains(c.Gains.Y),
		Z:            gains(c.Gains.Z),
		Yaw:          gains(c.Gains.Yaw),
		CenterOfMass: c.Vehicle.CenterOfMass,
	}
}

// CommandScript builds the scripted command source, which may be empty.
func (c *Config) CommandScript() *command.Script {
	return command.NewScript(c.Script)
}

// RunConfig maps the sim section onto a run definition.
func (c *Config) RunConfig() sim.Config {
	return sim.Config{Dt: c.Sim.Dt, Duration: c.Sim.Duration}
}
