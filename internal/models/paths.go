package models

// Logical State Store paths.
const (
	PathDevices    = "status/devices"
	PathModeManual = "status/mode_manual"
	PathSchedules  = "schedules"
	PathSensorData = "sensor/data"
)

// DevicePath is the boolean on/off status of d.
func DevicePath(d Device) string { return PathDevices + "/" + string(d) }

// ManualModePath is the manual-override flag of d (true = automatic control suspended).
func ManualModePath(d Device) string { return PathModeManual + "/" + string(d) }

// SchedulePath is the whole schedule record of kind.
func SchedulePath(kind ScheduleKind) string { return PathSchedules + "/" + string(kind) }
