package sqlite

import (
	"fmt"
	"time"

	"sparkvision/internal/model"
)

// EscalationRepository implements repository.EscalationRepository for SQLite.
type EscalationRepository struct {
	db *DB
}

// NewEscalationRepository creates a new SQLite escalation repository.
func NewEscalationRepository(db *DB) *EscalationRepository {
	return &EscalationRepository{db: db}
}

// Insert adds a new escalation record to the database.
func (r *EscalationRepository) Insert(esc *model.Escalation) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO escalations (timestamp, fire_pixels, response, verdict, error, latency_ms, counter_after, alert_fired)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, esc.Timestamp, esc.FirePixels, esc.Response, esc.Verdict, esc.Error,
		esc.Latency.Milliseconds(), esc.CounterAfter, esc.AlertFired)
	if err != nil {
		return 0, fmt.Errorf("failed to insert escalation: %w", err)
	}

	return result.LastInsertId()
}

// GetAll retrieves escalations, newest first, based on filter criteria.
func (r *EscalationRepository) GetAll(filter *model.JournalFilter) ([]model.Escalation, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `
		SELECT id, timestamp, fire_pixels, response, verdict, error, latency_ms, counter_after, alert_fired
		FROM escalations
		WHERE 1=1
	`
	where, args := escalationConditions(filter)
	query += where + " ORDER BY timestamp DESC, id DESC"
	query, args = paginate(query, args, filter)

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query escalations: %w", err)
	}
	defer rows.Close()

	var escalations []model.Escalation
	for rows.Next() {
		var esc model.Escalation
		var latencyMs int64
		if err := rows.Scan(&esc.ID, &esc.Timestamp, &esc.FirePixels, &esc.Response, &esc.Verdict,
			&esc.Error, &latencyMs, &esc.CounterAfter, &esc.AlertFired); err != nil {
			return nil, fmt.Errorf("failed to scan escalation: %w", err)
		}
		esc.Latency = time.Duration(latencyMs) * time.Millisecond
		escalations = append(escalations, esc)
	}

	return escalations, rows.Err()
}

// GetTotalCount returns the number of escalations matching the filter.
func (r *EscalationRepository) GetTotalCount(filter *model.JournalFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := escalationConditions(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM escalations WHERE 1=1`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count escalations: %w", err)
	}
	return count, nil
}

// DeleteBefore removes escalations older than cutoff and returns how many were removed.
func (r *EscalationRepository) DeleteBefore(cutoff time.Time) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`DELETE FROM escalations WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete escalations: %w", err)
	}
	return result.RowsAffected()
}

func escalationConditions(filter *model.JournalFilter) (string, []interface{}) {
	where := ""
	args := []interface{}{}
	if filter == nil {
		return where, args
	}

	if !filter.Since.IsZero() {
		where += " AND timestamp >= ?"
		args = append(args, filter.Since)
	}
	if filter.OnlyAlerts {
		where += " AND alert_fired = 1"
	}
	return where, args
}

// paginate appends LIMIT/OFFSET clauses for the filter.
func paginate(query string, args []interface{}, filter *model.JournalFilter) (string, []interface{}) {
	if filter == nil {
		return query, args
	}

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += " LIMIT -1"
	}

	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}
	return query, args
}
