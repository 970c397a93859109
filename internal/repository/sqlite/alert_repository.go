package sqlite

import (
	"fmt"

	"sparkvision/internal/model"
)

// AlertRepository implements repository.AlertRepository for SQLite.
type AlertRepository struct {
	db *DB
}

// NewAlertRepository creates a new SQLite alert repository.
func NewAlertRepository(db *DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Insert adds a received alert to the database.
func (r *AlertRepository) Insert(alert *model.StoredAlert) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO alerts (topic, message, timestamp, payload, received_at, sms_sid)
		VALUES (?, ?, ?, ?, ?, ?)
	`, alert.Topic, alert.Message, alert.Timestamp, alert.Payload, alert.ReceivedAt, alert.SMSSid)
	if err != nil {
		return 0, fmt.Errorf("failed to insert alert: %w", err)
	}

	return result.LastInsertId()
}

// UpdateSMSSid records the SMS message id sent for an alert.
func (r *AlertRepository) UpdateSMSSid(id int64, sid string) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`UPDATE alerts SET sms_sid = ? WHERE id = ?`, sid, id); err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	return nil
}

// GetAll retrieves alerts, most recently received first.
func (r *AlertRepository) GetAll(filter *model.JournalFilter) ([]model.StoredAlert, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := alertConditions(filter)
	query := `
		SELECT id, topic, message, timestamp, payload, received_at, sms_sid
		FROM alerts
		WHERE 1=1` + where + " ORDER BY received_at DESC, id DESC"
	query, args = paginate(query, args, filter)

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.StoredAlert
	for rows.Next() {
		var a model.StoredAlert
		if err := rows.Scan(&a.ID, &a.Topic, &a.Message, &a.Timestamp, &a.Payload, &a.ReceivedAt, &a.SMSSid); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}

// GetTotalCount returns the number of alerts matching the filter.
func (r *AlertRepository) GetTotalCount(filter *model.JournalFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := alertConditions(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM alerts WHERE 1=1`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return count, nil
}

func alertConditions(filter *model.JournalFilter) (string, []interface{}) {
	if filter == nil || filter.Since.IsZero() {
		return "", []interface{}{}
	}
	return " AND received_at >= ?", []interface{}{filter.Since}
}
