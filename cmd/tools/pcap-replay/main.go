// pcap-replay feeds a capture of raw Velodyne UDP packets to a running
// bridge, re-encoding each 1206-byte payload as a packet stream message.
// Build with -tags=pcap to enable capture reading.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
)

var (
	pcapFile  = flag.String("pcap", "", "Path to the capture file (required)")
	udpPort   = flag.Int("udp-port", 2368, "Sensor UDP port to filter on")
	target    = flag.String("target", "127.0.0.1:2368", "Bridge packet stream address")
	useSnappy = flag.Bool("snappy", true, "Send Snappy-compressed binary messages")
	rateHz    = flag.Float64("rate", 1808, "Packets per second (HDL-32E emits ~1808)")
	loop      = flag.Bool("loop", false, "Restart from the beginning when the capture ends")
)

func main() {
	flag.Parse()
	if *pcapFile == "" {
		log.Fatal("-pcap is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := replay(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Replay failed: %v", err)
	}
}
