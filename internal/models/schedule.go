package models

import "slices"

// ScheduleKind names one of the two schedule records.
type ScheduleKind string

const (
	ScheduleWatering    ScheduleKind = "watering"
	ScheduleFertilizing ScheduleKind = "fertilizing"
)

// DefaultScheduleDuration is used when a schedule omits or zeroes its duration (minutes).
const DefaultScheduleDuration = 5

// MaxScheduleDuration caps a run at one day (minutes).
const MaxScheduleDuration = 24 * 60

// ScheduleKinds lists the kinds in evaluation order.
func ScheduleKinds() []ScheduleKind {
	return []ScheduleKind{ScheduleWatering, ScheduleFertilizing}
}

// Device returns the actuator driven by the schedule kind.
func (k ScheduleKind) Device() Device {
	if k == ScheduleFertilizing {
		return DeviceFertilizer
	}
	return DeviceWater
}

// Schedule is stored whole at schedules/<kind>.
type Schedule struct {
	Enabled  bool     `json:"enabled"`
	Times    []string `json:"times"`    // zero-padded HH:MM
	Duration int      `json:"duration"` // minutes
}

// Matches reports whether an enabled schedule fires at the given HH:MM.
func (s Schedule) Matches(hhmm string) bool {
	return s.Enabled && slices.Contains(s.Times, hhmm)
}

// EffectiveDuration falls back to DefaultScheduleDuration for non-positive
// values and caps at MaxScheduleDuration.
func (s Schedule) EffectiveDuration() int {
	switch {
	case s.Duration <= 0:
		return DefaultScheduleDuration
	case s.Duration > MaxScheduleDuration:
		return MaxScheduleDuration
	}
	return s.Duration
}

// ScheduleSet is the snapshot read from the schedules parent path.
type ScheduleSet struct {
	Watering    *Schedule `json:"watering,omitempty"`
	Fertilizing *Schedule `json:"fertilizing,omitempty"`
}

// Get returns the schedule for kind, or nil when none was defined.
func (s ScheduleSet) Get(kind ScheduleKind) *Schedule {
	switch kind {
	case ScheduleWatering:
		return s.Watering
	case ScheduleFertilizing:
		return s.Fertilizing
	}
	return nil
}
