package command

import (
	"math"
	"testing"

	"go.einride.tech/can"
)

func TestFrameRoundTrip(t *testing.T) {
	in := Command{X: 1.0, Y: -0.25, Z: 0.5, Yaw: -1.0}

	out, err := UnmarshalFrame(MarshalFrame(in))
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, pair := range [][2]float64{
		{in.X, out.X}, {in.Y, out.Y}, {in.Z, out.Z}, {in.Yaw, out.Yaw},
	} {
		if math.Abs(pair[0]-pair[1]) > 1.0/frameScale {
			t.Errorf("component %f decoded as %f", pair[0], pair[1])
		}
	}
}

func TestFrameSaturatesOutOfRange(t *testing.T) {
	out, err := UnmarshalFrame(MarshalFrame(Command{X: 100}))
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if out.X > 3.3 {
		t.Errorf("expected saturated encoding, got %f", out.X)
	}
}

func TestUnmarshalRejectsWrongID(t *testing.T) {
	f := MarshalFrame(Command{})
	f.ID = 0x100
	if _, err := UnmarshalFrame(f); err == nil {
		t.Error("expected error for wrong frame id")
	}
}

func TestUnmarshalRejectsShortFrame(t *testing.T) {
	if _, err := UnmarshalFrame(can.Frame{ID: FrameID, Length: 4}); err == nil {
		t.Error("expected error for short frame")
	}
}
