package mqtt

import "errors"

var (
	ErrNotConnected   = errors.New("mqtt: client not connected")
	ErrConnectTimeout = errors.New("mqtt: connect timed out")
	ErrPublishFailed  = errors.New("mqtt: publish failed")
	ErrInvalidSensor  = errors.New("mqtt: invalid sensor payload")
)
