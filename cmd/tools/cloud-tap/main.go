// cloud-tap subscribes to a running bridge's point cloud stream and
// prints a one-line summary per cloud. Holding it open is what makes
// the bridge start its packet subscription.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/banshee-data/velodyne.bridge/internal/bridge"
	"github.com/banshee-data/velodyne.bridge/internal/bridge/pb"
)

var (
	addr = flag.String("addr", "127.0.0.1:9040", "Bridge point cloud address")
	name = flag.String("name", "cloud-tap", "Client name reported to the bridge")
)

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("Failed to dial bridge: %v", err)
	}
	defer conn.Close()

	client := pb.NewPointCloudServiceClient(conn)
	stream, err := client.StreamClouds(ctx, &pb.StreamRequest{ClientName: *name})
	if err != nil {
		log.Fatalf("Failed to open cloud stream: %v", err)
	}
	log.Printf("Streaming clouds from %s", *addr)

	for {
		msg, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			log.Fatalf("Stream error: %v", err)
		}

		cloud := bridge.UnpackCloud(msg)
		stamp := time.Unix(0, msg.Header.StampNs).UTC().Format(time.RFC3339Nano)
		log.Printf("Cloud %s frame=%s points=%d", stamp, msg.Header.FrameId, cloud.Size())
	}
}
