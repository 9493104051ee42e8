package config

import (
	"sort"

	"github.com/skysim/quadsim/internal/command"
)

func preset(duration float64, script []command.Step) *Config {
	cfg := DefaultConfig()
	cfg.Sim.Duration = duration
	cfg.Script = script
	return cfg
}

var Presets = map[string]*Config{
	// no command: the z channel holds the gravity-driven descent at the
	// proportional steady state, it cannot zero it
	"hover": preset(5, nil),

	"cruise": preset(10, []command.Step{
		{At: 0, Command: command.Command{X: 1.0}},
	}),

	"climb": preset(8, []command.Step{
		{At: 0, Command: command.Command{Z: 0.5}},
		{At: 5, Command: command.Command{}},
	}),

	"yaw_spin": preset(10, []command.Step{
		{At: 0, Command: command.Command{Yaw: 1.0}},
	}),

	"square": preset(12, []command.Step{
		{At: 0, Command: command.Command{X: 0.5}},
		{At: 3, Command: command.Command{Y: 0.5}},
		{At: 6, Command: command.Command{X: -0.5}},
		{At: 9, Command: command.Command{Y: -0.5}},
	}),

	"stop_and_go": preset(15, []command.Step{
		{At: 0, Command: command.Command{X: 1.0}},
		{At: 5, Command: command.Command{}},
		{At: 10, Command: command.Command{X: -1.0}},
	}),
}

// GetPreset returns a copy of the named preset, or nil. Callers may
// overlay flag values without touching the registry.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// ListPresets returns the preset names sorted.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
