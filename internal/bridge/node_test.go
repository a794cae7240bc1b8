package bridge

import (
	"context"
	"testing"

	"github.com/klauspost/compress/snappy"

	"github.com/banshee-data/velodyne.bridge/internal/bridge/pb"
	"github.com/banshee-data/velodyne.bridge/internal/bridge/transport"
	"github.com/banshee-data/velodyne.bridge/internal/velodyne"
)

// fakePublisher counts publish attempts without a gRPC server.
type fakePublisher struct {
	subscribers int
	published   []*pb.PointCloud2
}

func (f *fakePublisher) SubscriberCount() int      { return f.subscribers }
func (f *fakePublisher) Publish(c *pb.PointCloud2) { f.published = append(f.published, c) }

// fakeSource records open/close calls in place of a real socket.
type fakeSource struct {
	closed bool
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

func testConfig(packets int) *Config {
	device := velodyne.DeviceHDL32E
	snappyOn := false
	return &Config{
		Sensor: SensorConfig{
			DeviceType:     &device,
			PacketsPerSpin: &packets,
		},
		Stream: StreamConfig{
			UseBinarySnappy: &snappyOn,
		},
	}
}

// testNode builds a node with an empty 32-laser calibration and a fake
// publisher.
func testNode(t *testing.T, cfg *Config, pub CloudPublisher) *Node {
	t.Helper()
	return NewNode(cfg, velodyne.NewCalibration(32), pub)
}

func packetPayload(t *testing.T, stampNs int64) []byte {
	t.Helper()
	msg := &pb.DataPacketMessage{
		Header: &pb.Header{StampNs: stampNs},
	}
	for i := 0; i < velodyne.ChunksPerPacket; i++ {
		chunk := &pb.DataChunk{HeaderInfo: velodyne.UpperBankHeader, RotationalInfo: 0}
		for j := 0; j < velodyne.LasersPerChunk; j++ {
			chunk.LaserData = append(chunk.LaserData, &pb.LaserData{Distance: 5000, Intensity: 42})
		}
		msg.DataChunks = append(msg.DataChunks, chunk)
	}
	payload, err := pb.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal packet message: %v", err)
	}
	return payload
}

func snappyPayload(t *testing.T, stampNs int64) []byte {
	t.Helper()
	pkt := &velodyne.DataPacket{Timestamp: 1} // overridden by the header stamp
	for i := range pkt.Chunks {
		pkt.Chunks[i].HeaderInfo = velodyne.UpperBankHeader
		for j := range pkt.Chunks[i].Lasers {
			pkt.Chunks[i].Lasers[j] = velodyne.LaserData{Distance: 5000, Intensity: 42}
		}
	}
	msg := &pb.BinarySnappyMessage{
		Header: &pb.Header{StampNs: stampNs},
		Data:   snappy.Encode(nil, pkt.WriteBinary()),
	}
	payload, err := pb.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal snappy message: %v", err)
	}
	return payload
}

func TestSpinTriggerAtExactCount(t *testing.T) {
	const target = 5
	pub := &fakePublisher{subscribers: 1}
	n := testNode(t, testConfig(target), pub)
	ctx := context.Background()

	for i := 0; i < target-1; i++ {
		n.ingest(ctx, packetPayload(t, int64(i)))
	}
	if len(pub.published) != 0 {
		t.Fatalf("published %d clouds before reaching target", len(pub.published))
	}
	if len(n.buffer) != target-1 {
		t.Fatalf("buffer has %d packets, want %d", len(n.buffer), target-1)
	}

	n.ingest(ctx, packetPayload(t, int64(target-1)))
	if len(pub.published) != 1 {
		t.Fatalf("published %d clouds at target, want 1", len(pub.published))
	}
	if len(n.buffer) != 0 {
		t.Fatalf("buffer has %d packets after publish, want 0", len(n.buffer))
	}

	// The next spin starts fresh.
	for i := 0; i < target; i++ {
		n.ingest(ctx, packetPayload(t, int64(100+i)))
	}
	if len(pub.published) != 2 {
		t.Fatalf("published %d clouds after two spins, want 2", len(pub.published))
	}
}

func TestPublishSkippedWithoutSubscribers(t *testing.T) {
	const target = 3
	pub := &fakePublisher{subscribers: 0}
	n := testNode(t, testConfig(target), pub)
	ctx := context.Background()

	for i := 0; i < target; i++ {
		n.ingest(ctx, packetPayload(t, int64(i)))
	}

	if len(pub.published) != 0 {
		t.Fatalf("published %d clouds with zero subscribers", len(pub.published))
	}
	// The buffer still clears at the target count.
	if len(n.buffer) != 0 {
		t.Fatalf("buffer has %d packets, want 0", len(n.buffer))
	}
	if s := n.stats.GetAndReset(); s.SkippedSpins != 1 {
		t.Fatalf("skipped spins = %d, want 1", s.SkippedSpins)
	}
}

func TestMidpointStamp(t *testing.T) {
	cases := []struct {
		first, last uint64
		want        int64
	}{
		{100, 200, 150},
		{100, 201, 151}, // rounds up from 150.5
		{100, 100, 100},
		{0, 1, 1},
		{200, 100, 150}, // out-of-order stamps still give the midpoint
	}
	for _, tc := range cases {
		if got := midpointStamp(tc.first, tc.last); got != tc.want {
			t.Errorf("midpointStamp(%d, %d) = %d, want %d", tc.first, tc.last, got, tc.want)
		}
	}
}

func TestPublishedStampIsSpinMidpoint(t *testing.T) {
	const target = 4
	pub := &fakePublisher{subscribers: 1}
	n := testNode(t, testConfig(target), pub)
	ctx := context.Background()

	stamps := []int64{1000, 1500, 2000, 2501}
	for _, s := range stamps {
		n.ingest(ctx, packetPayload(t, s))
	}

	if len(pub.published) != 1 {
		t.Fatalf("published %d clouds, want 1", len(pub.published))
	}
	want := int64(1000 + (2501-1000+1)/2)
	if got := pub.published[0].Header.StampNs; got != want {
		t.Errorf("published stamp = %d, want %d", got, want)
	}
}

func TestPublishedFrameIDFollowsMessages(t *testing.T) {
	const target = 2
	pub := &fakePublisher{subscribers: 1}
	n := testNode(t, testConfig(target), pub)
	ctx := context.Background()

	msg := &pb.DataPacketMessage{
		Header: &pb.Header{StampNs: 1, FrameId: "hdl32_link"},
	}
	for i := 0; i < velodyne.ChunksPerPacket; i++ {
		chunk := &pb.DataChunk{HeaderInfo: velodyne.UpperBankHeader}
		for j := 0; j < velodyne.LasersPerChunk; j++ {
			chunk.LaserData = append(chunk.LaserData, &pb.LaserData{})
		}
		msg.DataChunks = append(msg.DataChunks, chunk)
	}
	payload, err := pb.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal packet message: %v", err)
	}

	n.ingest(ctx, payload)
	n.ingest(ctx, payload)

	if len(pub.published) != 1 {
		t.Fatalf("published %d clouds, want 1", len(pub.published))
	}
	if got := pub.published[0].Header.FrameId; got != "hdl32_link" {
		t.Errorf("published frame id = %q, want hdl32_link", got)
	}
}

func TestSnappyPathDecodes(t *testing.T) {
	const target = 2
	cfg := testConfig(target)
	snappyOn := true
	cfg.Stream.UseBinarySnappy = &snappyOn

	pub := &fakePublisher{subscribers: 1}
	n := testNode(t, cfg, pub)
	ctx := context.Background()

	n.ingest(ctx, snappyPayload(t, 7000))
	n.ingest(ctx, snappyPayload(t, 9000))

	if len(pub.published) != 1 {
		t.Fatalf("published %d clouds, want 1", len(pub.published))
	}
	// The message header stamp wins over the embedded record stamp.
	if got := pub.published[0].Header.StampNs; got != 8000 {
		t.Errorf("published stamp = %d, want 8000", got)
	}
}

func TestUndecodablePacketsAreDropped(t *testing.T) {
	pub := &fakePublisher{subscribers: 1}
	n := testNode(t, testConfig(2), pub)
	ctx := context.Background()

	n.ingest(ctx, []byte{0xFF, 0xFF, 0xFF})
	if len(n.buffer) != 0 {
		t.Fatalf("buffer has %d packets after garbage, want 0", len(n.buffer))
	}
	if s := n.stats.GetAndReset(); s.DecodeFailures != 1 {
		t.Fatalf("decode failures = %d, want 1", s.DecodeFailures)
	}
}

func TestUnknownDeviceDropsWithoutFault(t *testing.T) {
	device := "Velodyne VLP-16"
	cfg := testConfig(0)
	cfg.Sensor.DeviceType = &device
	cfg.Sensor.PacketsPerSpin = nil

	pub := &fakePublisher{subscribers: 1}
	n := testNode(t, cfg, pub)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		n.ingest(ctx, packetPayload(t, int64(i)))
	}
	if len(pub.published) != 0 {
		t.Fatalf("published %d clouds for unknown device", len(pub.published))
	}
	if s := n.stats.GetAndReset(); s.Dropped != 10 {
		t.Fatalf("dropped = %d, want 10", s.Dropped)
	}
}

func TestSubscriptionTogglesOnPollTicksOnly(t *testing.T) {
	pub := &fakePublisher{}
	n := testNode(t, testConfig(174), pub)

	var opened []*fakeSource
	n.openSource = func(ctx context.Context, transportType string, cfg transport.SourceConfig) (transport.Source, error) {
		src := &fakeSource{}
		opened = append(opened, src)
		return src, nil
	}
	ctx := context.Background()

	// No subscribers: the tick leaves the node inactive.
	n.updateSubscription(ctx)
	if n.subscribed || len(opened) != 0 {
		t.Fatal("node subscribed with zero subscribers")
	}

	// A subscriber appears between ticks; nothing happens until the tick.
	pub.subscribers = 1
	if n.subscribed {
		t.Fatal("node subscribed without a poll tick")
	}
	n.updateSubscription(ctx)
	if !n.subscribed || len(opened) != 1 {
		t.Fatalf("node not subscribed after tick (opened %d sources)", len(opened))
	}

	// Count bounces 1 -> 0 -> 1 between ticks; the tick sees 1 and the
	// subscription must stay up with the same source.
	pub.subscribers = 0
	pub.subscribers = 1
	n.updateSubscription(ctx)
	if !n.subscribed || len(opened) != 1 || opened[0].closed {
		t.Fatal("subscription churned on an intermediate count change")
	}

	// Subscriber goes away: the next tick tears the subscription down.
	pub.subscribers = 0
	n.updateSubscription(ctx)
	if n.subscribed || !opened[0].closed {
		t.Fatal("node still subscribed after losing all subscribers")
	}

	// And it comes back up on a later tick.
	pub.subscribers = 2
	n.updateSubscription(ctx)
	if !n.subscribed || len(opened) != 2 {
		t.Fatalf("node did not resubscribe (opened %d sources)", len(opened))
	}
}

func TestSubscriptionOpenFailureRetriesNextTick(t *testing.T) {
	pub := &fakePublisher{subscribers: 1}
	n := testNode(t, testConfig(174), pub)

	fail := true
	var opened int
	n.openSource = func(ctx context.Context, transportType string, cfg transport.SourceConfig) (transport.Source, error) {
		if fail {
			return nil, context.DeadlineExceeded
		}
		opened++
		return &fakeSource{}, nil
	}
	ctx := context.Background()

	n.updateSubscription(ctx)
	if n.subscribed {
		t.Fatal("node subscribed despite open failure")
	}

	fail = false
	n.updateSubscription(ctx)
	if !n.subscribed || opened != 1 {
		t.Fatal("node did not recover on the next tick")
	}
}

func TestRecorderReceivesSpinSummaries(t *testing.T) {
	const target = 2
	pub := &fakePublisher{subscribers: 1}
	n := testNode(t, testConfig(target), pub)

	var recorded []SpinSummary
	n.SetRecorder(recorderFunc(func(ctx context.Context, s SpinSummary) error {
		recorded = append(recorded, s)
		return nil
	}))
	ctx := context.Background()

	n.ingest(ctx, packetPayload(t, 100))
	n.ingest(ctx, packetPayload(t, 300))

	if len(recorded) != 1 {
		t.Fatalf("recorded %d summaries, want 1", len(recorded))
	}
	if recorded[0].Packets != target {
		t.Errorf("summary packets = %d, want %d", recorded[0].Packets, target)
	}
	if recorded[0].StampNs != 200 {
		t.Errorf("summary stamp = %d, want 200", recorded[0].StampNs)
	}
}

type recorderFunc func(ctx context.Context, s SpinSummary) error

func (f recorderFunc) RecordSpin(ctx context.Context, s SpinSummary) error { return f(ctx, s) }
