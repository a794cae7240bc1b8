package bridge

import (
	"encoding/binary"
	"math"

	"github.com/banshee-data/velodyne.bridge/internal/bridge/pb"
	"github.com/banshee-data/velodyne.bridge/internal/velodyne"
)

// Point layout of the published clouds: four packed float32 channels.
const (
	cloudPointStep  = 16
	offsetX         = 0
	offsetY         = 4
	offsetZ         = 8
	offsetIntensity = 12
)

func cloudFields() []*pb.PointField {
	return []*pb.PointField{
		{Name: "x", Offset: offsetX, Datatype: pb.PointFieldFloat32, Count: 1},
		{Name: "y", Offset: offsetY, Datatype: pb.PointFieldFloat32, Count: 1},
		{Name: "z", Offset: offsetZ, Datatype: pb.PointFieldFloat32, Count: 1},
		{Name: "intensity", Offset: offsetIntensity, Datatype: pb.PointFieldFloat32, Count: 1},
	}
}

// PackCloud converts a converted point cloud into the published wire
// message. The cloud is a single unorganized row; stampNs is the spin
// timestamp.
func PackCloud(cloud *velodyne.PointCloud, stampNs int64, frameID string) *pb.PointCloud2 {
	n := cloud.Size()
	data := make([]byte, n*cloudPointStep)
	for i, p := range cloud.Points {
		base := i * cloudPointStep
		binary.LittleEndian.PutUint32(data[base+offsetX:], math.Float32bits(float32(p.X)))
		binary.LittleEndian.PutUint32(data[base+offsetY:], math.Float32bits(float32(p.Y)))
		binary.LittleEndian.PutUint32(data[base+offsetZ:], math.Float32bits(float32(p.Z)))
		binary.LittleEndian.PutUint32(data[base+offsetIntensity:], math.Float32bits(float32(p.Intensity)))
	}

	return &pb.PointCloud2{
		Header:      &pb.Header{StampNs: stampNs, FrameId: frameID},
		Height:      1,
		Width:       uint32(n),
		Fields:      cloudFields(),
		IsBigendian: false,
		PointStep:   cloudPointStep,
		RowStep:     uint32(n * cloudPointStep),
		Data:        data,
		IsDense:     true,
	}
}

// UnpackCloud recovers the points from a published cloud message. Used by
// subscribers and tests.
func UnpackCloud(msg *pb.PointCloud2) *velodyne.PointCloud {
	cloud := &velodyne.PointCloud{}
	if msg.PointStep < cloudPointStep {
		return cloud
	}
	n := len(msg.Data) / int(msg.PointStep)
	cloud.Reserve(n)
	for i := 0; i < n; i++ {
		base := i * int(msg.PointStep)
		cloud.Append(velodyne.Point{
			X:         float64(math.Float32frombits(binary.LittleEndian.Uint32(msg.Data[base+offsetX:]))),
			Y:         float64(math.Float32frombits(binary.LittleEndian.Uint32(msg.Data[base+offsetY:]))),
			Z:         float64(math.Float32frombits(binary.LittleEndian.Uint32(msg.Data[base+offsetZ:]))),
			Intensity: float64(math.Float32frombits(binary.LittleEndian.Uint32(msg.Data[base+offsetIntensity:]))),
		})
	}
	return cloud
}
