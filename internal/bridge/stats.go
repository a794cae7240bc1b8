package bridge

import (
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PacketStats tracks packet statistics with thread-safe operations
type PacketStats struct {
	mu           sync.Mutex
	packetCount  int64
	byteCount    int64
	droppedCount int64
	decodeFailed int64
	spinCount    int64
	pointCount   int64
	skippedSpins int64
	lastReset    time.Time
}

// NewPacketStats creates a new PacketStats instance
func NewPacketStats() *PacketStats {
	return &PacketStats{
		lastReset: time.Now(),
	}
}

// AddPacket increments packet count and byte count
func (ps *PacketStats) AddPacket(bytes int) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.packetCount++
	ps.byteCount += int64(bytes)
}

// AddDropped increments dropped packet count
func (ps *PacketStats) AddDropped() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.droppedCount++
}

// AddDecodeFailure increments the count of packets that could not be
// decoded or decompressed
func (ps *PacketStats) AddDecodeFailure() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.decodeFailed++
}

// AddSpin records one published point cloud and its point count
func (ps *PacketStats) AddSpin(points int) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.spinCount++
	ps.pointCount += int64(points)
}

// AddSkippedSpin records a spin that completed with no subscribers
func (ps *PacketStats) AddSkippedSpin() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.skippedSpins++
}

// GetAndReset returns current stats and resets counters
func (ps *PacketStats) GetAndReset() (s StatsSnapshot) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	now := time.Now()
	s = StatsSnapshot{
		Packets:        ps.packetCount,
		Bytes:          ps.byteCount,
		Dropped:        ps.droppedCount,
		DecodeFailures: ps.decodeFailed,
		Spins:          ps.spinCount,
		Points:         ps.pointCount,
		SkippedSpins:   ps.skippedSpins,
		Duration:       now.Sub(ps.lastReset),
	}

	ps.packetCount = 0
	ps.byteCount = 0
	ps.droppedCount = 0
	ps.decodeFailed = 0
	ps.spinCount = 0
	ps.pointCount = 0
	ps.skippedSpins = 0
	ps.lastReset = now

	return
}

// StatsSnapshot is one interval's worth of counters.
type StatsSnapshot struct {
	Packets        int64
	Bytes          int64
	Dropped        int64
	DecodeFailures int64
	Spins          int64
	Points         int64
	SkippedSpins   int64
	Duration       time.Duration
}

// LogStats logs formatted statistics for the last interval
func (ps *PacketStats) LogStats() {
	s := ps.GetAndReset()
	if s.Packets == 0 && s.Dropped == 0 && s.DecodeFailures == 0 {
		return
	}

	packetsPerSec := float64(s.Packets) / s.Duration.Seconds()
	mbPerSec := float64(s.Bytes) / s.Duration.Seconds() / (1024 * 1024)

	logMsg := fmt.Sprintf("Bridge stats (/sec): %.2f MB, %.1f packets", mbPerSec, packetsPerSec)
	if s.Spins > 0 {
		logMsg += fmt.Sprintf(", %d clouds (%s points)", s.Spins, FormatWithCommas(s.Points))
	}
	if s.SkippedSpins > 0 {
		logMsg += fmt.Sprintf(", %d clouds skipped", s.SkippedSpins)
	}
	if s.Dropped > 0 {
		logMsg += fmt.Sprintf(", %d dropped on ingest", s.Dropped)
	}
	if s.DecodeFailures > 0 {
		logMsg += fmt.Sprintf(", %d decode failures", s.DecodeFailures)
	}

	log.Print(logMsg)
}

var statsPrinter = message.NewPrinter(language.English)

// FormatWithCommas formats a number with thousands separators
func FormatWithCommas(n int64) string {
	return statsPrinter.Sprintf("%d", n)
}
