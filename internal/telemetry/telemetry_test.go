package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"
)

func TestPublisherSendsFlightData(t *testing.T) {
	listener, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer listener.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	pub, err := Dial(listener.LocalAddr().String(), 100, log)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pub.Run(ctx, func() FlightData {
		return FlightData{Time: 1.5, Yaw: 0.25}
	})

	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	n, _, err := listener.ReadFrom(buf)
	if err != nil {
		t.Fatalf("no telemetry received: %v", err)
	}

	var fd FlightData
	if err := json.Unmarshal(buf[:n], &fd); err != nil {
		t.Fatalf("bad telemetry payload: %v", err)
	}
	if fd.Battery != BatteryStub {
		t.Errorf("expected stubbed battery %d, got %d", BatteryStub, fd.Battery)
	}
	if fd.Time != 1.5 || fd.Yaw != 0.25 {
		t.Errorf("unexpected payload: %+v", fd)
	}
}

func TestDialRejectsBadRate(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := Dial("127.0.0.1:9", 0, log); err == nil {
		t.Error("expected error for zero rate")
	}
}
