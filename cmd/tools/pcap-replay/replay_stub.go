//go:build !pcap
// +build !pcap

package main

import (
	"context"
	"fmt"
)

// replay is a stub implementation when PCAP support is disabled.
// Build with -tags=pcap to enable capture reading.
func replay(ctx context.Context) error {
	return fmt.Errorf("PCAP support not enabled: rebuild with -tags=pcap to enable capture replay")
}
