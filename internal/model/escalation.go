package model

import "time"

// Escalation records one frame that passed the colour prefilter and was
// sent on for confirmation.
type Escalation struct {
	ID           int64         `json:"id"`
	Timestamp    time.Time     `json:"timestamp"`
	FirePixels   int           `json:"fire_pixels"`
	Response     string        `json:"response"`
	Verdict      bool          `json:"verdict"`
	Error        string        `json:"error,omitempty"`
	Latency      time.Duration `json:"latency"`
	CounterAfter int           `json:"counter_after"`
	AlertFired   bool          `json:"alert_fired"`
}

// Snapshot represents a stored JPEG of a frame that fired an alert.
type Snapshot struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	FilePath  string    `json:"filepath"`
	FileSize  int64     `json:"filesize"`
}

// JournalFilter contains filtering options for querying the journal.
type JournalFilter struct {
	Since      time.Time
	OnlyAlerts bool // Escalations: only those that fired an alert
	Limit      int
	Offset     int
}
