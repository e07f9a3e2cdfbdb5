package models

import (
	"errors"
	"strings"
)

// Device is one of the controllable actuators.
type Device string

const (
	DeviceWater      Device = "water"
	DeviceFertilizer Device = "fertilizer"
	DeviceCooler     Device = "cooler"
)

// ErrUnknownDevice is returned when a name does not map to a known actuator.
var ErrUnknownDevice = errors.New("unknown device")

// Devices lists every actuator in display order.
func Devices() []Device {
	return []Device{DeviceWater, DeviceFertilizer, DeviceCooler}
}

// ParseDevice maps a case-insensitive name to a Device.
func ParseDevice(s string) (Device, error) {
	switch d := Device(strings.ToLower(strings.TrimSpace(s))); d {
	case DeviceWater, DeviceFertilizer, DeviceCooler:
		return d, nil
	default:
		return "", ErrUnknownDevice
	}
}

// SupportsAutoMode reports whether the device has an external automatic control loop.
func (d Device) SupportsAutoMode() bool {
	return d == DeviceCooler
}

// DeviceStatus is the operator-facing projection of one device.
type DeviceStatus struct {
	Device   Device `json:"device"`
	On       bool   `json:"on"`
	AutoMode *bool  `json:"auto_mode,omitempty"` // cooler only
}
