package repository

import (
	"sparkvision/internal/model"
	"time"
)

// EscalationRepository stores classifier escalations made by the detector.
type EscalationRepository interface {
	Insert(esc *model.Escalation) (int64, error)
	GetAll(filter *model.JournalFilter) ([]model.Escalation, error)
	GetTotalCount(filter *model.JournalFilter) (int, error)
	DeleteBefore(cutoff time.Time) (int64, error)
}

// SnapshotRepository stores alert snapshot records.
type SnapshotRepository interface {
	Insert(snap *model.Snapshot) (int64, error)
	GetByFilename(filename string) (*model.Snapshot, error)
	GetAll(filter *model.JournalFilter) ([]model.Snapshot, error)
}

// AlertRepository stores alerts received by the tracker.
type AlertRepository interface {
	Insert(alert *model.StoredAlert) (int64, error)
	UpdateSMSSid(id int64, sid string) error
	GetAll(filter *model.JournalFilter) ([]model.StoredAlert, error)
	GetTotalCount(filter *model.JournalFilter) (int, error)
}
