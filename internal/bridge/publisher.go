package bridge

import (
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc"

	"github.com/banshee-data/velodyne.bridge/internal/bridge/pb"
)

// Publisher manages the point cloud gRPC server and cloud streaming.
// Its live subscriber count is what drives the node's demand-driven
// packet subscription.
type Publisher struct {
	listenAddr string
	server     *grpc.Server
	listener   net.Listener

	// Cloud broadcasting
	cloudChan chan *pb.PointCloud2
	clients   map[string]*clientStream
	clientsMu sync.RWMutex

	// Stats
	cloudCount    atomic.Uint64
	clientCount   atomic.Int32
	droppedClouds atomic.Uint64

	// Lifecycle
	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// clientStream represents a connected streaming client.
type clientStream struct {
	id      string
	request *pb.StreamRequest
	cloudCh chan *pb.PointCloud2
	doneCh  chan struct{}
}

// NewPublisher creates a new Publisher listening on the given address.
func NewPublisher(listenAddr string) *Publisher {
	return &Publisher{
		listenAddr: listenAddr,
		cloudChan:  make(chan *pb.PointCloud2, 16),
		clients:    make(map[string]*clientStream),
		stopCh:     make(chan struct{}),
	}
}

// Start starts the gRPC server.
func (p *Publisher) Start() error {
	if p.running.Load() {
		return fmt.Errorf("publisher already running")
	}

	lis, err := net.Listen("tcp", p.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	p.listener = lis

	// A full HDL-64E spin is ~220k points at 16 bytes each; leave
	// headroom over the default 4MB message cap.
	const maxMsgSize = 16 * 1024 * 1024
	p.server = grpc.NewServer(
		grpc.MaxRecvMsgSize(maxMsgSize),
		grpc.MaxSendMsgSize(maxMsgSize),
	)
	pb.RegisterPointCloudServiceServer(p.server, &cloudServer{publisher: p})

	p.running.Store(true)

	p.wg.Add(1)
	go p.broadcastLoop()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Printf("Point cloud server listening on %s", lis.Addr())
		if err := p.server.Serve(lis); err != nil && p.running.Load() {
			log.Printf("Point cloud server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully stops the gRPC server.
func (p *Publisher) Stop() {
	if !p.running.Load() {
		return
	}
	p.running.Store(false)
	close(p.stopCh)

	if p.server != nil {
		p.server.GracefulStop()
	}
	p.wg.Wait()
	log.Printf("Point cloud server stopped")
}

// Addr returns the bound listen address, useful when listening on an
// ephemeral port. Only valid after Start.
func (p *Publisher) Addr() net.Addr {
	if p.listener == nil {
		return nil
	}
	return p.listener.Addr()
}

// SubscriberCount reports the number of connected streaming clients.
func (p *Publisher) SubscriberCount() int {
	return int(p.clientCount.Load())
}

// Publish sends a cloud to all connected clients. Delivery never blocks;
// when the broadcast queue is full the cloud is dropped and counted.
func (p *Publisher) Publish(cloud *pb.PointCloud2) {
	if !p.running.Load() || cloud == nil {
		return
	}

	select {
	case p.cloudChan <- cloud:
		p.cloudCount.Add(1)
	default:
		dropped := p.droppedClouds.Add(1)
		log.Printf("Dropped cloud (total dropped: %d), broadcast queue full", dropped)
	}
}

// broadcastLoop distributes clouds to all connected clients.
func (p *Publisher) broadcastLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case cloud := <-p.cloudChan:
			p.clientsMu.RLock()
			for _, client := range p.clients {
				select {
				case client.cloudCh <- cloud:
				default:
					// Client is slow, drop this cloud for it.
					p.droppedClouds.Add(1)
				}
			}
			p.clientsMu.RUnlock()
		}
	}
}

// addClient registers a new streaming client.
func (p *Publisher) addClient(id string, req *pb.StreamRequest) *clientStream {
	client := &clientStream{
		id:      id,
		request: req,
		cloudCh: make(chan *pb.PointCloud2, 10),
		doneCh:  make(chan struct{}),
	}

	p.clientsMu.Lock()
	p.clients[id] = client
	p.clientsMu.Unlock()

	p.clientCount.Add(1)
	log.Printf("Cloud client connected: %s (total: %d)", id, p.clientCount.Load())
	return client
}

// removeClient unregisters a streaming client.
func (p *Publisher) removeClient(id string) {
	p.clientsMu.Lock()
	client, ok := p.clients[id]
	if ok {
		close(client.doneCh)
		delete(p.clients, id)
	}
	p.clientsMu.Unlock()

	if ok {
		p.clientCount.Add(-1)
		log.Printf("Cloud client disconnected: %s (remaining: %d)", id, p.clientCount.Load())
	}
}

// Stats returns current publisher statistics.
func (p *Publisher) Stats() PublisherStats {
	return PublisherStats{
		CloudCount:    p.cloudCount.Load(),
		ClientCount:   p.clientCount.Load(),
		DroppedClouds: p.droppedClouds.Load(),
		Running:       p.running.Load(),
	}
}

// PublisherStats contains publisher statistics.
type PublisherStats struct {
	CloudCount    uint64
	ClientCount   int32
	DroppedClouds uint64
	Running       bool
}
