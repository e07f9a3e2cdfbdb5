package models

import "time"

// PendingShutoff is an in-memory deferred "device off" registered by a schedule firing.
type PendingShutoff struct {
	ID       uint64        `json:"id"`
	Device   Device        `json:"device"`
	FireAt   time.Time     `json:"fire_at"`
	Duration time.Duration `json:"duration"`
}
