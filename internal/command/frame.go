package command

import (
	"encoding/binary"
	"fmt"
	"math"

	"go.einride.tech/can"
)

// Velocity commands travel on the bus as one classical CAN frame: four
// little-endian int16 values (x, y, z, yaw), each the normalized command
// scaled by 1e4.
const (
	FrameID    = 0x220
	frameScale = 1e4
)

// MarshalFrame packs a command into a CAN frame. Components outside the
// representable range are saturated.
func MarshalFrame(cmd Command) can.Frame {
	f := can.Frame{ID: FrameID, Length: 8}
	putAxis(&f, 0, cmd.X)
	putAxis(&f, 2, cmd.Y)
	putAxis(&f, 4, cmd.Z)
	putAxis(&f, 6, cmd.Yaw)
	return f
}

// UnmarshalFrame decodes a command frame.
func UnmarshalFrame(f can.Frame) (Command, error) {
	if f.ID != FrameID {
		return Command{}, fmt.Errorf("command: unexpected frame id 0x%X", f.ID)
	}
	if f.Length < 8 {
		return Command{}, fmt.Errorf("command: short frame: %d bytes", f.Length)
	}
	return Command{
		X:   axis(f, 0),
		Y:   axis(f, 2),
		Z:   axis(f, 4),
		Yaw: axis(f, 6),
	}, nil
}

func putAxis(f *can.Frame, off int, v float64) {
	scaled := math.Round(v * frameScale)
	if scaled > math.MaxInt16 {
		scaled = math.MaxInt16
	} else if scaled < math.MinInt16 {
		scaled = math.MinInt16
	}
	binary.LittleEndian.PutUint16(f.Data[off:], uint16(int16(scaled)))
}

func axis(f can.Frame, off int) float64 {
	return float64(int16(binary.LittleEndian.Uint16(f.Data[off:]))) / frameScale
}
