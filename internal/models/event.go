package models

import "time"

// Event types recorded for every state mutation.
const (
	EventDeviceOn      = "DEVICE_ON"
	EventDeviceOff     = "DEVICE_OFF"
	EventAutoMode      = "AUTO_MODE"
	EventScheduleSaved = "SCHEDULE_SAVED"
)

// Event sources.
const (
	SourceChat     = "chat"
	SourceAPI      = "api"
	SourceSchedule = "schedule"
	SourceShutoff  = "shutoff"
	SourceAuto     = "auto"
)

// Event is a single audit log entry.
type Event struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`             // DEVICE_ON | DEVICE_OFF | AUTO_MODE | SCHEDULE_SAVED
	Device      string    `json:"device,omitempty"` // empty for schedule events
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}
