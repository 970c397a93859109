package sqlite

import (
	"database/sql"
	"fmt"

	"sparkvision/internal/model"
)

// SnapshotRepository implements repository.SnapshotRepository for SQLite.
type SnapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new SQLite snapshot repository.
func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Insert adds a new snapshot record to the database.
func (r *SnapshotRepository) Insert(snap *model.Snapshot) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO snapshots (filename, timestamp, filepath, filesize)
		VALUES (?, ?, ?, ?)
	`, snap.Filename, snap.Timestamp, snap.FilePath, snap.FileSize)
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return result.LastInsertId()
}

// GetByFilename retrieves a snapshot by its filename.
func (r *SnapshotRepository) GetByFilename(filename string) (*model.Snapshot, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var snap model.Snapshot
	err := r.db.Conn().QueryRow(`
		SELECT id, filename, timestamp, filepath, filesize
		FROM snapshots WHERE filename = ?
	`, filename).Scan(&snap.ID, &snap.Filename, &snap.Timestamp, &snap.FilePath, &snap.FileSize)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return &snap, nil
}

// GetAll retrieves snapshots, newest first.
func (r *SnapshotRepository) GetAll(filter *model.JournalFilter) ([]model.Snapshot, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `SELECT id, filename, timestamp, filepath, filesize FROM snapshots WHERE 1=1`
	args := []interface{}{}
	if filter != nil && !filter.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.Since)
	}
	query += " ORDER BY timestamp DESC, id DESC"
	query, args = paginate(query, args, filter)

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []model.Snapshot
	for rows.Next() {
		var snap model.Snapshot
		if err := rows.Scan(&snap.ID, &snap.Filename, &snap.Timestamp, &snap.FilePath, &snap.FileSize); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, rows.Err()
}
