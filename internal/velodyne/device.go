package velodyne

// Supported device model names.
const (
	DeviceHDL32E   = "Velodyne HDL-32E"
	DeviceHDL64ES2 = "Velodyne HDL-64E S2"
)

// DeviceProfile carries the per-model defaults resolved from the device
// name: how many lasers the unit has, how many packets make up one full
// rotation, and where its calibration file lives.
type DeviceProfile struct {
	Name            string
	LaserCount      int
	PacketsPerSpin  int
	CalibrationFile string
}

var deviceProfiles = map[string]DeviceProfile{
	DeviceHDL32E: {
		Name:            DeviceHDL32E,
		LaserCount:      32,
		PacketsPerSpin:  174,
		CalibrationFile: "conf/calib-HDL-32E.dat",
	},
	DeviceHDL64ES2: {
		Name:            DeviceHDL64ES2,
		LaserCount:      64,
		PacketsPerSpin:  348,
		CalibrationFile: "conf/calib-HDL-64E.dat",
	},
}

// LookupDevice resolves a device model name to its profile. The second
// return is false for unknown models; callers log and carry on with
// unresolved defaults rather than failing.
func LookupDevice(name string) (DeviceProfile, bool) {
	profile, ok := deviceProfiles[name]
	return profile, ok
}
