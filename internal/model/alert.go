package model

import (
	"encoding/json"
	"time"
)

// AlertMessage is the fixed text carried by every fire alert.
const AlertMessage = "SPARKVISION ALERT: Fire Detected!"

// AlertEvent is the payload published on the alert topic.
type AlertEvent struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// NewAlertEvent builds an alert stamped with the given time in ISO-8601.
func NewAlertEvent(at time.Time) AlertEvent {
	return AlertEvent{
		Message:   AlertMessage,
		Timestamp: at.Format(time.RFC3339Nano),
	}
}

// ToJSON serializes the event for publishing.
func (e AlertEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// StoredAlert is an alert received by the tracker and kept in the journal.
type StoredAlert struct {
	ID         int64     `json:"id"`
	Topic      string    `json:"topic"`
	Message    string    `json:"message"`
	Timestamp  string    `json:"timestamp"` // As sent by the detector
	Payload    string    `json:"payload"`
	ReceivedAt time.Time `json:"received_at"`
	SMSSid     string    `json:"sms_sid,omitempty"`
}
