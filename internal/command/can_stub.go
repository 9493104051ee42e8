//go:build !linux

package command

import (
	"context"
	"errors"
	"log/slog"
)

// CANSource is only available on Linux, where SocketCAN lives.
type CANSource struct{}

func DialCAN(ctx context.Context, ifname string, log *slog.Logger) (*CANSource, error) {
	return nil, errors.New("command: socketcan requires linux")
}

func (s *CANSource) Serve(ctx context.Context, sink Sink) error {
	return errors.New("command: socketcan requires linux")
}

func (s *CANSource) Close() error { return nil }
