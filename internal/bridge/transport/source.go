package transport

import (
	"context"
	"fmt"
)

// Stats is implemented by the bridge's packet statistics collector.
type Stats interface {
	AddPacket(bytes int)
	AddDropped()
}

// noopStats is a safe default when no collector is supplied.
type noopStats struct{}

func (noopStats) AddPacket(bytes int) {}
func (noopStats) AddDropped()         {}

// Source is a running packet subscription. Closing it releases the socket;
// the source's goroutine exits shortly after.
type Source interface {
	Close() error
}

// SourceConfig configures a packet source.
type SourceConfig struct {
	// Address is the UDP listen address or the TCP dial address.
	Address string

	// Topic filters incoming frames; frames for other topics are ignored.
	Topic string

	// Out receives frame payloads. Delivery never blocks: when the
	// channel is full the frame is dropped and counted, matching the
	// queue-depth drop policy of the underlying middleware.
	Out chan<- []byte

	// RcvBuf is the UDP socket receive buffer size; 0 keeps the OS
	// default.
	RcvBuf int

	Stats Stats
}

func (c *SourceConfig) stats() Stats {
	if c.Stats != nil {
		return c.Stats
	}
	return noopStats{}
}

// Open starts a packet source for the given transport type. "udp" listens
// for best-effort datagrams; "tcp" dials the reliable stream. The context
// bounds the source's lifetime alongside Close.
func Open(ctx context.Context, transportType string, cfg SourceConfig) (Source, error) {
	switch transportType {
	case "udp":
		return openUDP(ctx, cfg)
	case "tcp":
		return openTCP(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown transport type: %s", transportType)
	}
}

// deliver pushes a payload to the output channel without blocking.
func deliver(cfg *SourceConfig, payload []byte) {
	select {
	case cfg.Out <- payload:
	default:
		cfg.stats().AddDropped()
	}
}
