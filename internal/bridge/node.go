// Package bridge connects a raw Velodyne packet stream to point cloud
// subscribers. The node buffers one spin's worth of packets, converts
// them through the sensor calibration, and publishes the resulting
// cloud; the packet subscription itself is demand-driven, held only
// while cloud subscribers exist.
package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/klauspost/compress/snappy"

	"github.com/banshee-data/velodyne.bridge/internal/bridge/pb"
	"github.com/banshee-data/velodyne.bridge/internal/bridge/transport"
	"github.com/banshee-data/velodyne.bridge/internal/monitoring"
	"github.com/banshee-data/velodyne.bridge/internal/velodyne"
)

// CloudPublisher is the node's view of the output side. *Publisher
// implements it; tests substitute fakes.
type CloudPublisher interface {
	SubscriberCount() int
	Publish(*pb.PointCloud2)
}

// SpinRecorder persists per-spin summaries. Optional.
type SpinRecorder interface {
	RecordSpin(ctx context.Context, s SpinSummary) error
}

// Node is the bridge's dispatch loop. All ingestion, conversion,
// publishing and subscription management run sequentially on the
// goroutine that calls Run, so the packet buffer needs no locking.
type Node struct {
	cfg       *Config
	converter *velodyne.Converter
	publisher CloudPublisher
	recorder  SpinRecorder
	stats     *PacketStats

	packets chan []byte
	buffer  []*velodyne.DataPacket
	target  int

	subscribed bool
	source     transport.Source

	// lastFrameID is the frame id of the most recent packet message,
	// carried into the published cloud header.
	lastFrameID string

	// openSource is swapped out by tests.
	openSource func(ctx context.Context, transportType string, cfg transport.SourceConfig) (transport.Source, error)

	warnedNoTarget bool
}

// NewNode builds a node from configuration. The calibration may be
// empty when loading failed upstream; conversion then produces no
// points but the node still runs.
func NewNode(cfg *Config, cal *velodyne.Calibration, publisher CloudPublisher) *Node {
	n := &Node{
		cfg:        cfg,
		converter:  velodyne.NewConverter(cal, cfg.GetMinDistance(), cfg.GetMaxDistance()),
		publisher:  publisher,
		stats:      NewPacketStats(),
		packets:    make(chan []byte, cfg.GetQueueDepth()),
		target:     cfg.GetPacketsPerSpin(),
		openSource: transport.Open,
	}
	n.lastFrameID = cfg.GetFrameID()
	if n.target > 0 {
		n.buffer = make([]*velodyne.DataPacket, 0, n.target)
	}
	if t := cfg.Stream.TransportType; t != nil {
		switch *t {
		case "udp", "tcp":
		default:
			monitoring.Logf("Warning: unknown transport type %q, using %s", *t, cfg.GetTransportType())
		}
	}
	return n
}

// SetRecorder attaches an optional spin recorder.
func (n *Node) SetRecorder(r SpinRecorder) {
	n.recorder = r
}

// Stats returns the node's packet statistics collector.
func (n *Node) Stats() *PacketStats {
	return n.stats
}

// Run drives the node until the context is cancelled. The subscription
// poll ticker is the only thing that starts or stops the packet
// subscription; subscriber-count changes between ticks have no effect.
func (n *Node) Run(ctx context.Context) error {
	poll := time.NewTicker(n.cfg.GetPollInterval())
	defer poll.Stop()
	defer n.stopSubscription()

	monitoring.Logf("Bridge node running: device %q, %d packets per spin, topic %s over %s",
		n.cfg.GetDeviceType(), n.target, n.cfg.PacketTopic(), n.cfg.GetTransportType())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-poll.C:
			n.updateSubscription(ctx)
		case payload := <-n.packets:
			n.ingest(ctx, payload)
		}
	}
}

// updateSubscription applies the two-state toggle on a poll tick.
func (n *Node) updateSubscription(ctx context.Context) {
	subscribers := n.publisher.SubscriberCount()
	switch {
	case subscribers > 0 && !n.subscribed:
		src, err := n.openSource(ctx, n.cfg.GetTransportType(), transport.SourceConfig{
			Address: n.cfg.GetPacketStreamAddress(),
			Topic:   n.cfg.PacketTopic(),
			Out:     n.packets,
			Stats:   n.stats,
		})
		if err != nil {
			monitoring.Logf("Failed to open packet subscription: %v", err)
			return
		}
		n.source = src
		n.subscribed = true
		monitoring.Logf("Packet subscription started (%d cloud subscribers)", subscribers)
	case subscribers == 0 && n.subscribed:
		n.stopSubscription()
		monitoring.Logf("Packet subscription stopped (no cloud subscribers)")
	}
}

func (n *Node) stopSubscription() {
	if n.source != nil {
		if err := n.source.Close(); err != nil {
			monitoring.Logf("Error closing packet source: %v", err)
		}
		n.source = nil
	}
	n.subscribed = false
}

// ingest decodes one packet message and appends it to the spin buffer,
// publishing when the buffer reaches the per-spin packet count.
func (n *Node) ingest(ctx context.Context, payload []byte) {
	if n.target == 0 {
		if !n.warnedNoTarget {
			monitoring.Logf("Warning: no packets per spin configured for device %q, dropping packets", n.cfg.GetDeviceType())
			n.warnedNoTarget = true
		}
		n.stats.AddDropped()
		return
	}

	var (
		pkt     *velodyne.DataPacket
		frameID string
		err     error
	)
	if n.cfg.GetUseBinarySnappy() {
		pkt, frameID, err = decodeBinarySnappy(payload)
	} else {
		pkt, frameID, err = decodeDataPacket(payload)
	}
	if err != nil {
		monitoring.Logf("Dropping undecodable packet: %v", err)
		n.stats.AddDecodeFailure()
		return
	}
	if frameID != "" {
		n.lastFrameID = frameID
	}

	n.buffer = append(n.buffer, pkt)
	if len(n.buffer) == n.target {
		n.publishSpin(ctx)
		n.buffer = n.buffer[:0]
	}
}

// publishSpin converts the buffered spin and publishes it. With zero
// subscribers the conversion is skipped entirely; the caller clears the
// buffer either way.
func (n *Node) publishSpin(ctx context.Context) {
	if n.publisher.SubscriberCount() == 0 {
		n.stats.AddSkippedSpin()
		return
	}

	cloud := &velodyne.PointCloud{}
	cloud.Reserve(n.target * velodyne.ChunksPerPacket * velodyne.LasersPerChunk)
	for _, pkt := range n.buffer {
		n.converter.AppendToCloud(pkt, cloud)
	}

	stamp := midpointStamp(n.buffer[0].Timestamp, n.buffer[len(n.buffer)-1].Timestamp)
	n.publisher.Publish(PackCloud(cloud, stamp, n.lastFrameID))
	n.stats.AddSpin(cloud.Size())

	if n.recorder != nil {
		summary := SummarizeSpin(stamp, n.lastFrameID, len(n.buffer), cloud)
		if err := n.recorder.RecordSpin(ctx, summary); err != nil {
			monitoring.Logf("Failed to record spin summary: %v", err)
		}
	}
}

// midpointStamp is the rounded midpoint between the first and last
// packet timestamps of a spin.
func midpointStamp(first, last uint64) int64 {
	if last < first {
		first, last = last, first
	}
	return int64(first + (last-first+1)/2)
}

// decodeDataPacket copies an uncompressed packet message field by field
// into the internal packet record.
func decodeDataPacket(payload []byte) (*velodyne.DataPacket, string, error) {
	var msg pb.DataPacketMessage
	if err := pb.Unmarshal(payload, &msg); err != nil {
		return nil, "", fmt.Errorf("failed to decode packet message: %w", err)
	}
	if len(msg.DataChunks) != velodyne.ChunksPerPacket {
		return nil, "", fmt.Errorf("packet message has %d chunks, want %d",
			len(msg.DataChunks), velodyne.ChunksPerPacket)
	}

	pkt := &velodyne.DataPacket{
		SpinCount: uint16(msg.SpinCount),
		Reserved:  msg.Reserved,
	}
	var frameID string
	if msg.Header != nil {
		pkt.Timestamp = uint64(msg.Header.StampNs)
		frameID = msg.Header.FrameId
	}
	for i, chunk := range msg.DataChunks {
		if len(chunk.LaserData) != velodyne.LasersPerChunk {
			return nil, "", fmt.Errorf("chunk %d has %d lasers, want %d",
				i, len(chunk.LaserData), velodyne.LasersPerChunk)
		}
		pkt.Chunks[i].HeaderInfo = uint16(chunk.HeaderInfo)
		pkt.Chunks[i].RotationalInfo = uint16(chunk.RotationalInfo)
		for j, laser := range chunk.LaserData {
			pkt.Chunks[i].Lasers[j].Distance = uint16(laser.Distance)
			pkt.Chunks[i].Lasers[j].Intensity = uint8(laser.Intensity)
		}
	}
	return pkt, frameID, nil
}

// decodeBinarySnappy decompresses a binary snappy message and parses the
// contained binary packet record. The message header timestamp wins over
// the record's own.
func decodeBinarySnappy(payload []byte) (*velodyne.DataPacket, string, error) {
	var msg pb.BinarySnappyMessage
	if err := pb.Unmarshal(payload, &msg); err != nil {
		return nil, "", fmt.Errorf("failed to decode snappy message: %w", err)
	}

	raw, err := snappy.Decode(nil, msg.Data)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decompress packet: %w", err)
	}

	pkt := &velodyne.DataPacket{}
	if err := pkt.ReadBinary(raw); err != nil {
		return nil, "", fmt.Errorf("failed to parse binary packet: %w", err)
	}
	var frameID string
	if msg.Header != nil {
		pkt.Timestamp = uint64(msg.Header.StampNs)
		frameID = msg.Header.FrameId
	}
	return pkt, frameID, nil
}
