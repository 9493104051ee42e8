package flight_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skysim/quadsim/internal/body"
	"github.com/skysim/quadsim/internal/command"
	"github.com/skysim/quadsim/internal/flight"
)

const (
	mass = 1.5
	izz  = 0.04
)

func newBody() *body.Body {
	b := body.New(mass, body.Vector{X: 0.02, Y: 0.02, Z: izz})
	b.Gravity = 0
	return b
}

func defaultConfig() flight.Config {
	return flight.Config{
		Limits: flight.DefaultLimits(),
		X:      flight.DefaultGains(),
		Y:      flight.DefaultGains(),
		Z:      flight.DefaultGains(),
		Yaw:    flight.DefaultGains(),
	}
}

var _ = Describe("Controller", func() {
	var (
		b    *body.Body
		ctrl *flight.Controller
	)

	BeforeEach(func() {
		b = newBody()
		var err error
		ctrl, err = flight.New(b, defaultConfig())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("construction", func() {
		It("rejects a missing body", func() {
			_, err := flight.New(nil, defaultConfig())
			Expect(err).To(HaveOccurred())
		})

		It("rejects a non-positive mass", func() {
			bad := newBody()
			bad.Mass = 0
			_, err := flight.New(bad, defaultConfig())
			Expect(err).To(HaveOccurred())
		})

		It("rejects a degenerate inertia", func() {
			bad := newBody()
			bad.Inertia.Z = 0
			_, err := flight.New(bad, defaultConfig())
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("commands", func() {
		It("scales a full-stick command to the maximum velocity", func() {
			ctrl.SetCommand(command.Command{X: 1.0})
			Expect(ctrl.Setpoints().X).To(Equal(8.0))
		})

		It("scales each axis by its own limit", func() {
			ctrl.SetCommand(command.Command{X: 0.5, Y: -1, Z: 1, Yaw: -0.5})
			sp := ctrl.Setpoints()
			Expect(sp.X).To(Equal(4.0))
			Expect(sp.Y).To(Equal(-8.0))
			Expect(sp.Z).To(Equal(4.0))
			Expect(sp.Yaw).To(BeNumerically("~", -math.Pi/2, 1e-12))
		})

		It("lets the last command win before a tick runs", func() {
			ctrl.SetCommand(command.Command{X: 1.0})
			ctrl.SetCommand(command.Command{X: -0.25})
			Expect(ctrl.Setpoints().X).To(Equal(-2.0))

			// kp 2 against setpoint -2 from rest
			out := ctrl.Step(0)
			Expect(out.Force.X).To(Equal(-4.0 * mass))
		})
	})

	Describe("ticks", func() {
		It("runs the first tick with only the proportional term", func() {
			withID, err := flight.New(b, flight.Config{
				Limits: flight.DefaultLimits(),
				X:      flight.Gains{Kp: 0.5, Ki: 10, Kd: 10},
				Y:      flight.DefaultGains(),
				Z:      flight.DefaultGains(),
				Yaw:    flight.DefaultGains(),
			})
			Expect(err).NotTo(HaveOccurred())

			withID.SetCommand(command.Command{X: 1.0})
			out := withID.Step(5.0) // arbitrary start time, dt must be 0
			Expect(out.Force.X).To(Equal(0.5 * 8.0 * mass))
		})

		It("clamps the acceleration demand and reports saturation", func() {
			// setpoint 8, measured 0, kp 2: demand 16 saturates at 8
			ctrl.SetCommand(command.Command{X: 1.0})
			ctrl.Step(0)
			out := ctrl.Step(0.1)

			Expect(out.Saturated).To(BeTrue())
			Expect(out.Force.X).To(Equal(8.0 * mass))
		})

		It("does not report saturation inside the bounds", func() {
			ctrl.SetCommand(command.Command{X: 0.25}) // demand 4
			out := ctrl.Step(0)
			Expect(out.Saturated).To(BeFalse())
			Expect(out.Force.X).To(Equal(4.0 * mass))
		})

		It("converts yaw acceleration to torque through the z inertia", func() {
			ctrl.SetCommand(command.Command{Yaw: 1.0}) // setpoint pi, demand 2*pi, clamp pi
			out := ctrl.Step(0)

			Expect(out.Torque.Z).To(BeNumerically("~", math.Pi*izz, 1e-12))
			Expect(out.Torque.X).To(BeZero())
			Expect(out.Torque.Y).To(BeZero())
		})

		It("zeroes roll and pitch and leaves yaw untouched", func() {
			b.Rotation = body.Euler{Roll: 0.3, Pitch: -0.2, Yaw: 1.0}
			ctrl.Step(0)

			Expect(b.Rotation.Roll).To(BeZero())
			Expect(b.Rotation.Pitch).To(BeZero())
			Expect(b.Rotation.Yaw).To(Equal(1.0))
		})

		It("applies the force at the configured center-of-mass offset", func() {
			cfg := defaultConfig()
			cfg.CenterOfMass = body.Vector{Y: 0.1}
			offCenter, err := flight.New(b, cfg)
			Expect(err).NotTo(HaveOccurred())

			offCenter.SetCommand(command.Command{X: 0.25})
			out := offCenter.Step(0)
			b.Step(0.01)

			// at x F = (0, 0.1, 0) x (fx, 0, 0) = (0, 0, -0.1*fx)
			wantAlpha := -0.1 * out.Force.X / izz
			Expect(b.AngVel.Z).To(BeNumerically("~", wantAlpha*0.01, 1e-12))
		})

		It("tracks the setpoint over repeated ticks", func() {
			ctrl.SetCommand(command.Command{X: 0.5}) // 4 m/s
			dt := 0.01
			for i := 0; i <= 500; i++ {
				t := float64(i) * dt
				ctrl.Step(t)
				b.Step(dt)
			}
			Expect(b.LinVel.X).To(BeNumerically("~", 4.0, 0.05))
		})
	})
})

var _ = Describe("Clamp", func() {
	It("is idempotent", func() {
		for _, v := range []float64{-20, -8, -1, 0, 3, 8, 100} {
			once := flight.Clamp(v, 8)
			Expect(flight.Clamp(once, 8)).To(Equal(once))
		}
	})

	It("is symmetric", func() {
		for _, v := range []float64{-20, -0.5, 0, 7.9, 12} {
			Expect(flight.Clamp(v, 4)).To(Equal(-flight.Clamp(-v, 4)))
		}
	})

	It("sets out-of-bound values exactly to the bound", func() {
		Expect(flight.Clamp(16, 8)).To(Equal(8.0))
		Expect(flight.Clamp(-16, 8)).To(Equal(-8.0))
		Expect(flight.Clamp(3, 8)).To(Equal(3.0))
	})
})
