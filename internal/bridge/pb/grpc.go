package pb

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "velodyne.bridge.v1.PointCloudService"

const streamCloudsMethod = "/" + ServiceName + "/StreamClouds"

// PointCloudServiceServer is the server API for the cloud stream service.
type PointCloudServiceServer interface {
	StreamClouds(*StreamRequest, PointCloudService_StreamCloudsServer) error
}

// PointCloudService_StreamCloudsServer is the server side of a cloud stream.
type PointCloudService_StreamCloudsServer interface {
	Send(*PointCloud2) error
	grpc.ServerStream
}

type streamCloudsServer struct {
	grpc.ServerStream
}

func (x *streamCloudsServer) Send(m *PointCloud2) error {
	return x.ServerStream.SendMsg(m)
}

func streamCloudsHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(StreamRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(PointCloudServiceServer).StreamClouds(req, &streamCloudsServer{stream})
}

var pointCloudServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PointCloudServiceServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamClouds",
			Handler:       streamCloudsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "internal/bridge/pb/pointcloud.proto",
}

// RegisterPointCloudServiceServer registers the service implementation.
func RegisterPointCloudServiceServer(s grpc.ServiceRegistrar, srv PointCloudServiceServer) {
	s.RegisterService(&pointCloudServiceDesc, srv)
}

// PointCloudServiceClient is the client API for the cloud stream service.
type PointCloudServiceClient interface {
	StreamClouds(ctx context.Context, in *StreamRequest, opts ...grpc.CallOption) (PointCloudService_StreamCloudsClient, error)
}

// PointCloudService_StreamCloudsClient is the client side of a cloud stream.
type PointCloudService_StreamCloudsClient interface {
	Recv() (*PointCloud2, error)
	grpc.ClientStream
}

type pointCloudServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewPointCloudServiceClient creates a client over an existing connection.
func NewPointCloudServiceClient(cc grpc.ClientConnInterface) PointCloudServiceClient {
	return &pointCloudServiceClient{cc}
}

func (c *pointCloudServiceClient) StreamClouds(ctx context.Context, in *StreamRequest, opts ...grpc.CallOption) (PointCloudService_StreamCloudsClient, error) {
	stream, err := c.cc.NewStream(ctx, &pointCloudServiceDesc.Streams[0], streamCloudsMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &streamCloudsClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type streamCloudsClient struct {
	grpc.ClientStream
}

func (x *streamCloudsClient) Recv() (*PointCloud2, error) {
	m := new(PointCloud2)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
