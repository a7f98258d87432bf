package events

import "time"

// PayloadReceived is published after a webhook payload has been validated and
// stored for a device.
type PayloadReceived struct {
	DeviceID   string    `json:"device_id"`
	DeviceName string    `json:"device_name"`
	ReceivedAt time.Time `json:"received_at"`
	Sections   []string  `json:"sections"`
	LastError  string    `json:"last_error,omitempty"`
}
