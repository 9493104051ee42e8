// Package telemetry publishes low-rate flight status. It is independent
// of the control loop and deliberately carries no controller internals.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// BatteryStub is reported as the charge level; the simulation has no
// battery model.
const BatteryStub = 80

// FlightData is one status report.
type FlightData struct {
	Time    float64 `json:"time"`
	Battery int     `json:"battery"`
	Yaw     float64 `json:"yaw"`
}

// Publisher sends JSON flight-data datagrams at a fixed rate.
type Publisher struct {
	conn net.Conn
	rate time.Duration
	log  *slog.Logger
}

// Dial connects the telemetry socket. rate is reports per second.
func Dial(addr string, rate float64, log *slog.Logger) (*Publisher, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("telemetry: rate must be positive, got %f", rate)
	}
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("telemetry: dial %s: %w", addr, err)
	}
	return &Publisher{
		conn: conn,
		rate: time.Duration(float64(time.Second) / rate),
		log:  log,
	}, nil
}

// Run publishes until ctx is cancelled. src supplies the current time and
// yaw; the battery level is stubbed.
func (p *Publisher) Run(ctx context.Context, src func() FlightData) error {
	ticker := time.NewTicker(p.rate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fd := src()
			fd.Battery = BatteryStub
			data, err := json.Marshal(fd)
			if err != nil {
				return fmt.Errorf("telemetry: marshal: %w", err)
			}
			if _, err := p.conn.Write(append(data, '\n')); err != nil {
				p.log.Warn("telemetry send failed", "error", err)
			}
		}
	}
}

// Close releases the socket.
func (p *Publisher) Close() error { return p.conn.Close() }
