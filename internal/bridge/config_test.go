package bridge

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/velodyne.bridge/internal/velodyne"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.GetDeviceType() != velodyne.DeviceHDL32E {
		t.Errorf("GetDeviceType() = %q, want %q", cfg.GetDeviceType(), velodyne.DeviceHDL32E)
	}
	if cfg.GetPacketsPerSpin() != 174 {
		t.Errorf("GetPacketsPerSpin() = %d, want 174", cfg.GetPacketsPerSpin())
	}
	if cfg.GetCalibrationFile() != "conf/calib-HDL-32E.dat" {
		t.Errorf("GetCalibrationFile() = %q, want conf/calib-HDL-32E.dat", cfg.GetCalibrationFile())
	}
	if cfg.GetMinDistance() != 0.9 {
		t.Errorf("GetMinDistance() = %f, want 0.9", cfg.GetMinDistance())
	}
	if cfg.GetMaxDistance() != 120.0 {
		t.Errorf("GetMaxDistance() = %f, want 120.0", cfg.GetMaxDistance())
	}
	if cfg.GetTransportType() != "udp" {
		t.Errorf("GetTransportType() = %q, want udp", cfg.GetTransportType())
	}
	if !cfg.GetUseBinarySnappy() {
		t.Error("GetUseBinarySnappy() = false, want true")
	}
	if cfg.GetQueueDepth() != 100 {
		t.Errorf("GetQueueDepth() = %d, want 100", cfg.GetQueueDepth())
	}
	if cfg.GetPollInterval() != time.Second {
		t.Errorf("GetPollInterval() = %v, want 1s", cfg.GetPollInterval())
	}
	if cfg.PacketTopic() != TopicBinarySnappy {
		t.Errorf("PacketTopic() = %q, want %q", cfg.PacketTopic(), TopicBinarySnappy)
	}
}

func TestDeviceDependentDefaults(t *testing.T) {
	device := velodyne.DeviceHDL64ES2
	cfg := &Config{Sensor: SensorConfig{DeviceType: &device}}

	if cfg.GetPacketsPerSpin() != 348 {
		t.Errorf("GetPacketsPerSpin() = %d, want 348", cfg.GetPacketsPerSpin())
	}
	if cfg.GetCalibrationFile() != "conf/calib-HDL-64E.dat" {
		t.Errorf("GetCalibrationFile() = %q, want conf/calib-HDL-64E.dat", cfg.GetCalibrationFile())
	}
}

func TestUnknownDeviceDefaults(t *testing.T) {
	device := "Velodyne VLP-16"
	cfg := &Config{Sensor: SensorConfig{DeviceType: &device}}

	if cfg.GetPacketsPerSpin() != 0 {
		t.Errorf("GetPacketsPerSpin() = %d, want 0 for unknown device", cfg.GetPacketsPerSpin())
	}
	if cfg.GetCalibrationFile() != "" {
		t.Errorf("GetCalibrationFile() = %q, want empty for unknown device", cfg.GetCalibrationFile())
	}

	// An explicit packet count and calibration file still win.
	packets := 754
	file := "conf/custom.dat"
	cfg.Sensor.PacketsPerSpin = &packets
	cfg.Sensor.CalibrationFile = &file
	if cfg.GetPacketsPerSpin() != 754 {
		t.Errorf("GetPacketsPerSpin() = %d, want 754", cfg.GetPacketsPerSpin())
	}
	if cfg.GetCalibrationFile() != "conf/custom.dat" {
		t.Errorf("GetCalibrationFile() = %q, want conf/custom.dat", cfg.GetCalibrationFile())
	}
}

func TestTopicOverrides(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.GetDataPacketTopic() != TopicDataPacket {
		t.Errorf("GetDataPacketTopic() = %q, want %q", cfg.GetDataPacketTopic(), TopicDataPacket)
	}
	if cfg.GetBinarySnappyTopic() != TopicBinarySnappy {
		t.Errorf("GetBinarySnappyTopic() = %q, want %q", cfg.GetBinarySnappyTopic(), TopicBinarySnappy)
	}

	topic := "/sensors/front/binary_snappy"
	cfg.Stream.BinarySnappyTopic = &topic
	if cfg.PacketTopic() != topic {
		t.Errorf("PacketTopic() = %q, want %q", cfg.PacketTopic(), topic)
	}

	snappyOff := false
	other := "/sensors/front/data_packet"
	cfg.Stream.UseBinarySnappy = &snappyOff
	cfg.Stream.DataPacketTopic = &other
	if cfg.PacketTopic() != other {
		t.Errorf("PacketTopic() = %q, want %q", cfg.PacketTopic(), other)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.json")
	content := `{
		"sensor": {
			"device_type": "Velodyne HDL-64E S2",
			"min_distance": 1.5
		},
		"stream": {
			"transport_type": "tcp",
			"use_binary_snappy": false,
			"queue_depth": 50,
			"poll_interval": "250ms"
		}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.GetDeviceType() != velodyne.DeviceHDL64ES2 {
		t.Errorf("GetDeviceType() = %q, want %q", cfg.GetDeviceType(), velodyne.DeviceHDL64ES2)
	}
	if cfg.GetMinDistance() != 1.5 {
		t.Errorf("GetMinDistance() = %f, want 1.5", cfg.GetMinDistance())
	}
	// Omitted fields keep their defaults.
	if cfg.GetMaxDistance() != 120.0 {
		t.Errorf("GetMaxDistance() = %f, want 120.0", cfg.GetMaxDistance())
	}
	if cfg.GetTransportType() != "tcp" {
		t.Errorf("GetTransportType() = %q, want tcp", cfg.GetTransportType())
	}
	if cfg.GetQueueDepth() != 50 {
		t.Errorf("GetQueueDepth() = %d, want 50", cfg.GetQueueDepth())
	}
	if cfg.GetPollInterval() != 250*time.Millisecond {
		t.Errorf("GetPollInterval() = %v, want 250ms", cfg.GetPollInterval())
	}
	if cfg.PacketTopic() != TopicDataPacket {
		t.Errorf("PacketTopic() = %q, want %q", cfg.PacketTopic(), TopicDataPacket)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name    string
		content string
	}{
		{"zero queue depth", `{"stream": {"queue_depth": 0}}`},
		{"negative min distance", `{"sensor": {"min_distance": -1}}`},
		{"inverted bounds", `{"sensor": {"min_distance": 10, "max_distance": 5}}`},
		{"bad poll interval", `{"stream": {"poll_interval": "fast"}}`},
	}
	for _, tc := range cases {
		path := filepath.Join(dir, "bad.json")
		if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Errorf("%s: expected LoadConfig to fail", tc.name)
		}
	}
}

// An unrecognised transport type must not stop the node from starting;
// the stream degrades to the udp default instead.
func TestUnknownTransportFallsBackToUDP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.json")
	content := `{"stream": {"transport_type": "multicast"}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got := cfg.GetTransportType(); got != "udp" {
		t.Errorf("GetTransportType() = %q, want udp", got)
	}
}

func TestLoadConfigRejectsNonJSON(t *testing.T) {
	if _, err := LoadConfig("bridge.yaml"); err == nil {
		t.Error("expected error for non-JSON extension")
	}
}
