//go:build linux

package command

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"go.einride.tech/can/pkg/socketcan"
)

// CANSource reads velocity command frames from a SocketCAN interface.
type CANSource struct {
	conn net.Conn
	recv *socketcan.Receiver
	log  *slog.Logger
}

// DialCAN opens the given interface, e.g. "can0" or "vcan0".
func DialCAN(ctx context.Context, ifname string, log *slog.Logger) (*CANSource, error) {
	conn, err := socketcan.DialContext(ctx, "can", ifname)
	if err != nil {
		return nil, fmt.Errorf("command: socketcan dial %s: %w", ifname, err)
	}
	return &CANSource{
		conn: conn,
		recv: socketcan.NewReceiver(conn),
		log:  log,
	}, nil
}

// Serve forwards decoded command frames to the sink until ctx is
// cancelled or the bus fails. Frames with other IDs are ignored.
func (s *CANSource) Serve(ctx context.Context, sink Sink) error {
	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	for s.recv.Receive() {
		frame := s.recv.Frame()
		if frame.ID != FrameID {
			continue
		}
		cmd, err := UnmarshalFrame(frame)
		if err != nil {
			s.log.Warn("dropping malformed frame", "error", err)
			continue
		}
		sink.SetCommand(cmd)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return s.recv.Err()
}

// Close releases the socket.
func (s *CANSource) Close() error { return s.conn.Close() }
