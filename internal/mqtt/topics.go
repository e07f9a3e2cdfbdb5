package mqtt

import (
	"strings"

	"greenhouse_control/internal/models"
)

const (
	payloadOn  = "ON"
	payloadOff = "OFF"

	availabilityOnline  = "online"
	availabilityOffline = "offline"
)

// Topics builds topic names under a configurable prefix.
type Topics struct {
	prefix string
}

func NewTopics(prefix string) Topics {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = "greenhouse"
	}
	return Topics{prefix: prefix}
}

// DeviceStatus is the retained on/off state topic of one device.
func (t Topics) DeviceStatus(d models.Device) string {
	return t.prefix + "/" + models.DevicePath(d)
}

// SensorData is where field controllers publish readings.
func (t Topics) SensorData() string {
	return t.prefix + "/" + models.PathSensorData
}

func (t Topics) Availability() string {
	return t.prefix + "/availability"
}

func powerPayload(on bool) string {
	if on {
		return payloadOn
	}
	return payloadOff
}
