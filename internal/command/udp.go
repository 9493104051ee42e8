package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
)

// UDPSource listens for JSON twist datagrams, one command per datagram,
// and forwards each decoded command to a sink. Malformed datagrams are
// logged and dropped; the stream keeps going.
type UDPSource struct {
	conn net.PacketConn
	log  *slog.Logger
}

// ListenUDP binds the command socket.
func ListenUDP(addr string, log *slog.Logger) (*UDPSource, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("command: listen %s: %w", addr, err)
	}
	return &UDPSource{conn: conn, log: log}, nil
}

// Addr returns the bound local address.
func (s *UDPSource) Addr() net.Addr { return s.conn.LocalAddr() }

// Serve decodes datagrams into the sink until ctx is cancelled or the
// socket fails.
func (s *UDPSource) Serve(ctx context.Context, sink Sink) error {
	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	buf := make([]byte, 512)
	for {
		n, from, err := s.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("command: read: %w", err)
		}

		var cmd Command
		if err := json.Unmarshal(bytes.TrimSpace(buf[:n]), &cmd); err != nil {
			s.log.Warn("dropping malformed command", "from", from.String(), "error", err)
			continue
		}

		sink.SetCommand(cmd)
		s.log.Debug("command received",
			"x", cmd.X, "y", cmd.Y, "z", cmd.Z, "yaw", cmd.Yaw)
	}
}

// Close releases the socket.
func (s *UDPSource) Close() error { return s.conn.Close() }
