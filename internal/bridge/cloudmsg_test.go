package bridge

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/velodyne.bridge/internal/velodyne"
)

func TestPackCloudLayout(t *testing.T) {
	cloud := &velodyne.PointCloud{}
	cloud.Append(velodyne.Point{X: 1, Y: 2, Z: 3, Intensity: 40})
	cloud.Append(velodyne.Point{X: -1.5, Y: 0, Z: 0.25, Intensity: 255})

	msg := PackCloud(cloud, 12345, "velodyne")

	if msg.Header.StampNs != 12345 {
		t.Errorf("stamp = %d, want 12345", msg.Header.StampNs)
	}
	if msg.Header.FrameId != "velodyne" {
		t.Errorf("frame id = %q, want velodyne", msg.Header.FrameId)
	}
	if msg.Height != 1 || msg.Width != 2 {
		t.Errorf("dimensions = %dx%d, want 1x2", msg.Height, msg.Width)
	}
	if msg.PointStep != 16 || msg.RowStep != 32 {
		t.Errorf("steps = %d/%d, want 16/32", msg.PointStep, msg.RowStep)
	}
	if msg.IsBigendian {
		t.Error("cloud marked big-endian")
	}
	if len(msg.Fields) != 4 {
		t.Fatalf("got %d fields, want 4", len(msg.Fields))
	}
	wantFields := []struct {
		name   string
		offset uint32
	}{
		{"x", 0}, {"y", 4}, {"z", 8}, {"intensity", 12},
	}
	for i, want := range wantFields {
		f := msg.Fields[i]
		if f.Name != want.name || f.Offset != want.offset || f.Datatype != 7 || f.Count != 1 {
			t.Errorf("field %d = %s/%d/%d/%d, want %s/%d/7/1",
				i, f.Name, f.Offset, f.Datatype, f.Count, want.name, want.offset)
		}
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	cloud := &velodyne.PointCloud{}
	cloud.Append(velodyne.Point{X: 10.5, Y: -0.5, Z: 2, Intensity: 17})
	cloud.Append(velodyne.Point{X: 0, Y: 100, Z: -3.25, Intensity: 0})

	got := UnpackCloud(PackCloud(cloud, 1, "f"))
	if diff := cmp.Diff(cloud.Points, got.Points); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestPackCloudEmpty(t *testing.T) {
	msg := PackCloud(&velodyne.PointCloud{}, 0, "f")
	if msg.Width != 0 || len(msg.Data) != 0 {
		t.Errorf("empty cloud packed to width %d, %d bytes", msg.Width, len(msg.Data))
	}
}
