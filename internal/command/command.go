// Package command turns inbound chat text into a typed Command.
//
// Command is a closed set: only the types in this file implement it, so the
// dispatcher's type switch is the single place every variant is handled.
package command

import "greenhouse_control/internal/models"

// Command is one parsed inbound message.
type Command interface {
	isCommand()
}

// Greeting is a literal salutation such as "halo".
type Greeting struct{}

// MenuRequest is "menu", "help" or "start".
type MenuRequest struct{}

// ScheduleDefinition replaces the schedule of Kind.
type ScheduleDefinition struct {
	Kind     models.ScheduleKind
	Times    []string // unique HH:MM in first-seen order
	Duration int      // minutes, > 0
}

// DeviceToggle switches a device on or off.
type DeviceToggle struct {
	Device models.Device
	On     bool
}

// AutoModeToggle enables or disables automatic control of a device.
type AutoModeToggle struct {
	Device models.Device
	On     bool
}

// SensorQuery asks for the latest sensor readings.
type SensorQuery struct{}

// Unrecognized is anything else. FormatError marks a "jadwal" message whose
// arguments were invalid; those get a usage hint instead of the fallback.
type Unrecognized struct {
	RawText     string
	FormatError bool
}

func (Greeting) isCommand()           {}
func (MenuRequest) isCommand()        {}
func (ScheduleDefinition) isCommand() {}
func (DeviceToggle) isCommand()       {}
func (AutoModeToggle) isCommand()     {}
func (SensorQuery) isCommand()        {}
func (Unrecognized) isCommand()       {}
