package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/banshee-data/velodyne.bridge/internal/monitoring"
)

// udpSource receives one encoded frame per datagram on a bound socket.
type udpSource struct {
	conn   *net.UDPConn
	cancel context.CancelFunc
	done   chan struct{}
}

func openUDP(ctx context.Context, cfg SourceConfig) (Source, error) {
	addr, err := net.ResolveUDPAddr("udp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on UDP address: %w", err)
	}

	if cfg.RcvBuf > 0 {
		if err := conn.SetReadBuffer(cfg.RcvBuf); err != nil {
			monitoring.Logf("Warning: failed to set UDP receive buffer to %d: %v", cfg.RcvBuf, err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &udpSource{
		conn:   conn,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.readLoop(ctx, cfg)

	monitoring.Logf("UDP packet source listening on %s (topic %s)", cfg.Address, cfg.Topic)
	return s, nil
}

func (s *udpSource) readLoop(ctx context.Context, cfg SourceConfig) {
	defer close(s.done)

	// Frames are one datagram each; the buffer leaves headroom over the
	// encoded packet message size.
	buffer := make([]byte, 65536)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Read deadline so context cancellation is noticed promptly. A
		// deadline failure means the socket is unusable, so stop reading
		// rather than spin.
		if err := s.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond)); err != nil {
			if ctx.Err() == nil {
				monitoring.Logf("UDP read deadline error, stopping reader: %v", err)
			}
			return
		}
		n, _, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			monitoring.Logf("UDP read error: %v", err)
			continue
		}

		frame, err := DecodeFrame(buffer[:n])
		if err != nil {
			monitoring.Logf("Dropping malformed UDP frame: %v", err)
			continue
		}
		if frame.Topic != cfg.Topic {
			continue
		}

		cfg.stats().AddPacket(len(frame.Payload))
		deliver(&cfg, frame.Payload)
	}
}

// LocalAddr reports the bound socket address, useful when listening on
// an ephemeral port.
func (s *udpSource) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// Close releases the socket and waits for the read loop to exit.
func (s *udpSource) Close() error {
	s.cancel()
	err := s.conn.Close()
	<-s.done
	return err
}
