package dto

import (
	"encoding/json"
	"time"

	"sparkvision/internal/model"
)

// AlertInfo is an alert as shown to tracker viewers.
type AlertInfo struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Timestamp string    `json:"timestamp"` // As sent by the detector
	Date      time.Time `json:"date"`
	TimeOfDay time.Time `json:"timeOfDay"`
	SMSSent   bool      `json:"smsSent"`
}

// NewAlertInfo converts a stored alert. Date and time of day come from the
// moment the tracker received it.
func NewAlertInfo(alert model.StoredAlert) AlertInfo {
	return AlertInfo{
		ID:        alert.ID,
		Message:   alert.Message,
		Timestamp: alert.Timestamp,
		Date:      alert.ReceivedAt,
		TimeOfDay: alert.ReceivedAt,
		SMSSent:   alert.SMSSid != "",
	}
}

// MarshalJSON customizes JSON output for AlertInfo to format date and time-of-day.
func (a AlertInfo) MarshalJSON() ([]byte, error) {
	type Alias AlertInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      a.Date.Format("02-01-2006"),
		TimeOfDay: a.TimeOfDay.Format("15:04:05"),
		Alias:     (Alias)(a),
	})
}
