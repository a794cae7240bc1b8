package bridge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/velodyne.bridge/internal/velodyne"
)

// DefaultConfigPath is the path to the canonical bridge defaults file.
const DefaultConfigPath = "config/bridge.defaults.json"

// SensorConfig holds the sensor-side parameters. Fields omitted from the
// JSON fall back to device-dependent defaults, so partial configs are safe.
type SensorConfig struct {
	// DeviceType selects the packet count per spin and the calibration
	// file. Recognised values are the Velodyne model strings, e.g.
	// "Velodyne HDL-32E".
	DeviceType      *string  `json:"device_type,omitempty"`
	CalibrationFile *string  `json:"calibration_file,omitempty"`
	PacketsPerSpin  *int     `json:"packets_per_spin,omitempty"`
	MinDistance     *float64 `json:"min_distance,omitempty"` // metres
	MaxDistance     *float64 `json:"max_distance,omitempty"` // metres
}

// StreamConfig holds the packet-stream and publishing parameters.
type StreamConfig struct {
	// TransportType selects how packets arrive: "udp" or "tcp".
	TransportType   *string `json:"transport_type,omitempty"`
	UseBinarySnappy *bool   `json:"use_binary_snappy,omitempty"`
	QueueDepth      *int    `json:"queue_depth,omitempty"`

	// PacketStreamAddress is the UDP listen address or TCP dial address
	// for the incoming packet stream.
	PacketStreamAddress *string `json:"packet_stream_address,omitempty"`

	// PointCloudListenAddress is the gRPC listen address for point
	// cloud subscribers.
	PointCloudListenAddress *string `json:"point_cloud_listen_address,omitempty"`

	// PollInterval is how often the subscriber count is checked,
	// a duration string like "1s".
	PollInterval *string `json:"poll_interval,omitempty"`

	// Topic overrides for the two packet encodings.
	DataPacketTopic   *string `json:"data_packet_topic,omitempty"`
	BinarySnappyTopic *string `json:"binary_snappy_topic,omitempty"`

	FrameID *string `json:"frame_id,omitempty"`
}

// Config is the root bridge configuration.
type Config struct {
	Sensor SensorConfig `json:"sensor"`
	Stream StreamConfig `json:"stream"`
}

// DefaultConfig returns a Config with all fields unset; the Get* methods
// supply the defaults.
func DefaultConfig() *Config {
	return &Config{}
}

// LoadConfig loads a Config from a JSON file. Fields omitted from the
// file retain their defaults.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are usable. Unknown
// device or transport types are not errors here: the bridge starts
// anyway, warns, and runs with the unresolved defaults.
func (c *Config) Validate() error {
	if c.Sensor.MinDistance != nil && *c.Sensor.MinDistance < 0 {
		return fmt.Errorf("min_distance must be non-negative, got %f", *c.Sensor.MinDistance)
	}
	if c.Sensor.MaxDistance != nil && c.Sensor.MinDistance != nil &&
		*c.Sensor.MaxDistance < *c.Sensor.MinDistance {
		return fmt.Errorf("max_distance %f is below min_distance %f",
			*c.Sensor.MaxDistance, *c.Sensor.MinDistance)
	}
	if c.Sensor.PacketsPerSpin != nil && *c.Sensor.PacketsPerSpin < 0 {
		return fmt.Errorf("packets_per_spin must be non-negative, got %d", *c.Sensor.PacketsPerSpin)
	}
	if c.Stream.QueueDepth != nil && *c.Stream.QueueDepth < 1 {
		return fmt.Errorf("queue_depth must be positive, got %d", *c.Stream.QueueDepth)
	}
	if c.Stream.PollInterval != nil && *c.Stream.PollInterval != "" {
		if _, err := time.ParseDuration(*c.Stream.PollInterval); err != nil {
			return fmt.Errorf("invalid poll_interval '%s': %w", *c.Stream.PollInterval, err)
		}
	}
	return nil
}

// GetDeviceType returns the device_type value or the default.
func (c *Config) GetDeviceType() string {
	if c.Sensor.DeviceType == nil {
		return velodyne.DeviceHDL32E
	}
	return *c.Sensor.DeviceType
}

// GetCalibrationFile returns the calibration file path, falling back to
// the device profile's shipped file. Empty when the device is unknown
// and no explicit file is configured.
func (c *Config) GetCalibrationFile() string {
	if c.Sensor.CalibrationFile != nil && *c.Sensor.CalibrationFile != "" {
		return *c.Sensor.CalibrationFile
	}
	if profile, ok := velodyne.LookupDevice(c.GetDeviceType()); ok {
		return profile.CalibrationFile
	}
	return ""
}

// GetPacketsPerSpin returns the configured spin packet count, falling
// back to the device profile. Zero when the device is unknown.
func (c *Config) GetPacketsPerSpin() int {
	if c.Sensor.PacketsPerSpin != nil {
		return *c.Sensor.PacketsPerSpin
	}
	if profile, ok := velodyne.LookupDevice(c.GetDeviceType()); ok {
		return profile.PacketsPerSpin
	}
	return 0
}

// GetMinDistance returns the min_distance value or the default.
func (c *Config) GetMinDistance() float64 {
	if c.Sensor.MinDistance == nil {
		return 0.9
	}
	return *c.Sensor.MinDistance
}

// GetMaxDistance returns the max_distance value or the default.
func (c *Config) GetMaxDistance() float64 {
	if c.Sensor.MaxDistance == nil {
		return 120.0
	}
	return *c.Sensor.MaxDistance
}

// GetTransportType returns the transport_type value or the default. An
// unrecognised value degrades to best-effort delivery rather than
// stopping the node; the warning is logged once at node construction.
func (c *Config) GetTransportType() string {
	if c.Stream.TransportType == nil {
		return "udp"
	}
	switch *c.Stream.TransportType {
	case "udp", "tcp":
		return *c.Stream.TransportType
	}
	return "udp"
}

// GetUseBinarySnappy returns the use_binary_snappy value or the default.
func (c *Config) GetUseBinarySnappy() bool {
	if c.Stream.UseBinarySnappy == nil {
		return true
	}
	return *c.Stream.UseBinarySnappy
}

// GetQueueDepth returns the queue_depth value or the default.
func (c *Config) GetQueueDepth() int {
	if c.Stream.QueueDepth == nil {
		return 100
	}
	return *c.Stream.QueueDepth
}

// GetPacketStreamAddress returns the packet stream address or the default.
func (c *Config) GetPacketStreamAddress() string {
	if c.Stream.PacketStreamAddress == nil || *c.Stream.PacketStreamAddress == "" {
		return ":2368"
	}
	return *c.Stream.PacketStreamAddress
}

// GetPointCloudListenAddress returns the gRPC listen address or the default.
func (c *Config) GetPointCloudListenAddress() string {
	if c.Stream.PointCloudListenAddress == nil || *c.Stream.PointCloudListenAddress == "" {
		return ":9040"
	}
	return *c.Stream.PointCloudListenAddress
}

// GetPollInterval parses and returns the PollInterval as a time.Duration.
func (c *Config) GetPollInterval() time.Duration {
	if c.Stream.PollInterval == nil || *c.Stream.PollInterval == "" {
		return time.Second // default: poll subscribers at 1 Hz
	}
	d, err := time.ParseDuration(*c.Stream.PollInterval)
	if err != nil {
		return time.Second
	}
	return d
}

// GetFrameID returns the frame_id value or the default.
func (c *Config) GetFrameID() string {
	if c.Stream.FrameID == nil || *c.Stream.FrameID == "" {
		return "velodyne"
	}
	return *c.Stream.FrameID
}

// GetDataPacketTopic returns the uncompressed packet topic or the default.
func (c *Config) GetDataPacketTopic() string {
	if c.Stream.DataPacketTopic == nil || *c.Stream.DataPacketTopic == "" {
		return TopicDataPacket
	}
	return *c.Stream.DataPacketTopic
}

// GetBinarySnappyTopic returns the compressed packet topic or the default.
func (c *Config) GetBinarySnappyTopic() string {
	if c.Stream.BinarySnappyTopic == nil || *c.Stream.BinarySnappyTopic == "" {
		return TopicBinarySnappy
	}
	return *c.Stream.BinarySnappyTopic
}

// PacketTopic returns the topic the bridge subscribes to given the
// compression setting.
func (c *Config) PacketTopic() string {
	if c.GetUseBinarySnappy() {
		return c.GetBinarySnappyTopic()
	}
	return c.GetDataPacketTopic()
}

// Topic names on the packet stream.
const (
	TopicDataPacket   = "/velodyne/data_packet"
	TopicBinarySnappy = "/velodyne/binary_snappy"
)
