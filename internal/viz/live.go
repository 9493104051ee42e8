// Package viz is the interactive terminal flight view: keyboard twist
// input on the left stick model, live velocity readout and a speed
// sparkline.
package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"

	"github.com/skysim/quadsim/internal/command"
	"github.com/skysim/quadsim/internal/sim"
)

const (
	historyCapacity = 240
	frameRate       = 30
	cmdStep         = 0.1
)

type TickMsg time.Time

// Model steps the simulation from the Bubble Tea event loop.
type Model struct {
	runner *sim.Runner
	sink   command.Sink
	dt     float64

	cmd     command.Command
	t       float64
	last    sim.Snapshot
	running bool

	speedHist []float64
}

// NewModel wires the live view to a runner. sink receives the keyboard
// commands; in practice it is the flight controller.
func NewModel(runner *sim.Runner, sink command.Sink, dt float64) Model {
	return Model{
		runner:    runner,
		sink:      sink,
		dt:        dt,
		running:   true,
		speedHist: make([]float64, 0, historyCapacity),
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "up":
			m.nudge(&m.cmd.X, cmdStep)
		case "down":
			m.nudge(&m.cmd.X, -cmdStep)
		case "left":
			m.nudge(&m.cmd.Y, cmdStep)
		case "right":
			m.nudge(&m.cmd.Y, -cmdStep)
		case "k":
			m.nudge(&m.cmd.Z, cmdStep)
		case "j":
			m.nudge(&m.cmd.Z, -cmdStep)
		case "h":
			m.nudge(&m.cmd.Yaw, cmdStep)
		case "l":
			m.nudge(&m.cmd.Yaw, -cmdStep)
		case "0":
			m.cmd = command.Command{}
			m.sink.SetCommand(m.cmd)
		}

	case TickMsg:
		if m.running {
			// several physics steps per frame keeps dt small
			steps := int(1.0/float64(frameRate)/m.dt + 0.5)
			if steps < 1 {
				steps = 1
			}
			for i := 0; i < steps; i++ {
				m.last = m.runner.Tick(m.t, m.dt)
				m.t += m.dt
			}

			m.speedHist = append(m.speedHist, m.last.LinVel.Norm())
			if len(m.speedHist) > historyCapacity {
				m.speedHist = m.speedHist[1:]
			}
		}
		return m, tick()
	}

	return m, nil
}

func (m *Model) nudge(axis *float64, delta float64) {
	*axis += delta
	if *axis > 1 {
		*axis = 1
	}
	if *axis < -1 {
		*axis = -1
	}
	m.sink.SetCommand(m.cmd)
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("quadsim live"))
	b.WriteString("\n")

	status := statusRunning.Render("running")
	if !m.running {
		status = statusPaused.Render("paused")
	}
	b.WriteString(fmt.Sprintf("t = %.2fs  %s\n\n", m.t, status))

	b.WriteString(panelStyle.Render(m.channels()))
	b.WriteString("\n")

	if len(m.speedHist) > 1 {
		graph := asciigraph.Plot(m.speedHist,
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.Caption("speed m/s"),
		)
		b.WriteString(graphStyle.Render(graph))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(
		"arrows surge/sway · k/j climb · h/l yaw · 0 stop · space pause · q quit"))
	b.WriteString("\n")

	return b.String()
}

func (m Model) channels() string {
	rows := []struct {
		name             string
		cmd, sp, measure float64
	}{
		{"surge", m.cmd.X, m.last.Setpoints.X, m.last.LinVel.X},
		{"sway", m.cmd.Y, m.last.Setpoints.Y, m.last.LinVel.Y},
		{"heave", m.cmd.Z, m.last.Setpoints.Z, m.last.LinVel.Z},
		{"yaw", m.cmd.Yaw, m.last.Setpoints.Yaw, m.last.AngVel.Z},
	}

	var b strings.Builder
	b.WriteString(labelStyle.Render("channel"))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%8s %10s %10s", "stick", "target", "measured")))
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString(labelStyle.Render(r.name))
		b.WriteString(valueStyle.Render(fmt.Sprintf("%8.2f %10.3f %10.3f", r.cmd, r.sp, r.measure)))
		b.WriteString("\n")
	}

	if m.last.Saturated {
		b.WriteString(saturatedStyle.Render("SAT"))
	} else {
		b.WriteString(" ")
	}
	b.WriteString(valueStyle.Render(fmt.Sprintf("  alt %7.2fm  yaw %6.2frad", m.last.Position.Z, m.last.Yaw)))

	return b.String()
}
