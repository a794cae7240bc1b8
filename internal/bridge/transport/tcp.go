package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/banshee-data/velodyne.bridge/internal/monitoring"
)

// tcpSource dials the packet stream and reads length-prefixed frames.
// There is no reconnect: a broken stream ends the source, and the
// subscription updater opens a fresh one on its next activation.
type tcpSource struct {
	conn   net.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

const tcpDialTimeout = 5 * time.Second

func openTCP(ctx context.Context, cfg SourceConfig) (Source, error) {
	dialer := net.Dialer{Timeout: tcpDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial packet stream: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &tcpSource{
		conn:   conn,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	// Closing the connection is what unblocks the frame reader; a
	// mid-frame read deadline would desync the stream.
	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()
	go s.readLoop(ctx, cfg)

	monitoring.Logf("TCP packet source connected to %s (topic %s)", cfg.Address, cfg.Topic)
	return s, nil
}

func (s *tcpSource) readLoop(ctx context.Context, cfg SourceConfig) {
	defer close(s.done)

	reader := bufio.NewReaderSize(s.conn, 64*1024)
	for {
		frame, err := ReadFrame(reader)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				monitoring.Logf("TCP packet stream closed by peer")
			} else {
				monitoring.Logf("TCP packet stream error: %v", err)
			}
			return
		}
		if frame.Topic != cfg.Topic {
			continue
		}

		cfg.stats().AddPacket(len(frame.Payload))
		deliver(&cfg, frame.Payload)
	}
}

// Close releases the connection and waits for the read loop to exit.
func (s *tcpSource) Close() error {
	s.cancel()
	<-s.done
	return nil
}
