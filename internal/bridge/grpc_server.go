package bridge

import (
	"log"

	"github.com/google/uuid"

	"github.com/banshee-data/velodyne.bridge/internal/bridge/pb"
)

// Ensure cloudServer implements the gRPC interface.
var _ pb.PointCloudServiceServer = (*cloudServer)(nil)

// cloudServer implements the PointCloudService gRPC server.
type cloudServer struct {
	publisher *Publisher
}

// StreamClouds registers the caller as a subscriber and forwards
// published clouds until the client goes away or the publisher stops.
func (s *cloudServer) StreamClouds(req *pb.StreamRequest, stream pb.PointCloudService_StreamCloudsServer) error {
	clientID := uuid.NewString()
	if req.ClientName != "" {
		clientID = req.ClientName + "-" + clientID
	}

	client := s.publisher.addClient(clientID, req)
	defer s.publisher.removeClient(clientID)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.publisher.stopCh:
			return nil
		case cloud := <-client.cloudCh:
			if err := stream.Send(cloud); err != nil {
				log.Printf("Cloud stream send to %s failed: %v", clientID, err)
				return err
			}
		}
	}
}
