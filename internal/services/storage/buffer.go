package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sparkvision/internal/config"
	"sparkvision/internal/logger"
	"sparkvision/internal/model"
	"sparkvision/internal/repository"
)

const snapshotTimeFormat = "2006-01-02_15-04-05.000"

type bufferedSnapshot struct {
	Timestamp time.Time
	Data      []byte
}

// SnapshotBuffer keeps JPEGs of alerting frames in memory and periodically
// flushes them to disk and the journal.
type SnapshotBuffer struct {
	dir           string
	limit         int
	flushInterval time.Duration
	snapshots     []bufferedSnapshot
	dropped       int
	mu            sync.Mutex
	logger        *logger.Logger
	repo          repository.SnapshotRepository
}

// NewSnapshotBuffer creates a buffer writing into config.SnapshotDirectory.
// repo may be nil, then files are written without a journal record.
func NewSnapshotBuffer(config *config.Config, logger *logger.Logger, repo repository.SnapshotRepository) *SnapshotBuffer {
	limit := config.SnapshotBufferLimit
	if limit <= 0 {
		limit = 10
	}
	interval := time.Duration(config.SnapshotFlushInterval) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &SnapshotBuffer{
		dir:           config.SnapshotDirectory,
		limit:         limit,
		flushInterval: interval,
		snapshots:     make([]bufferedSnapshot, 0, limit),
		logger:        logger,
		repo:          repo,
	}
}

// Run flushes the buffer on every tick until ctx is done, then flushes
// whatever is left.
func (s *SnapshotBuffer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.FlushSnapshots()
			return
		case <-ticker.C:
			s.FlushSnapshots()
		}
	}
}

// AddSnapshot queues a JPEG. Snapshots above the buffer limit are dropped
// until the next flush.
func (s *SnapshotBuffer) AddSnapshot(data []byte, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.snapshots) >= s.limit {
		s.dropped++
		s.logger.Warning("Snapshot buffer full (%d/%d), dropping snapshot", len(s.snapshots), s.limit)
		return
	}

	s.snapshots = append(s.snapshots, bufferedSnapshot{Timestamp: at, Data: data})
	s.logger.Info("Snapshot buffer size: %d/%d", len(s.snapshots), s.limit)
}

// Pending returns the number of snapshots waiting to be flushed.
func (s *SnapshotBuffer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

// FlushSnapshots writes buffered snapshots to disk, records them and
// clears the buffer. It returns the number of files written.
func (s *SnapshotBuffer) FlushSnapshots() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.snapshots) == 0 {
		return 0
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return 0
	}

	savedCount := 0
	for i, snap := range s.snapshots {
		filename := fmt.Sprintf("%s_fire_%d.jpg", snap.Timestamp.Format(snapshotTimeFormat), i)
		fullpath := filepath.Join(s.dir, filename)

		if err := os.WriteFile(fullpath, snap.Data, 0644); err != nil {
			s.logger.Error("Error saving snapshot %s: %v", filename, err)
			continue
		}

		if s.repo != nil {
			record := &model.Snapshot{
				Filename:  filename,
				Timestamp: snap.Timestamp,
				FilePath:  fullpath,
				FileSize:  int64(len(snap.Data)),
			}
			if _, err := s.repo.Insert(record); err != nil {
				s.logger.Error("Error saving snapshot to database %s: %v", filename, err)
			}
		}

		savedCount++
	}

	if s.dropped > 0 {
		s.logger.Warning("%d snapshot(s) dropped since last flush", s.dropped)
	}
	s.logger.Info("Flushed %d snapshots to disk", savedCount)
	s.snapshots = s.snapshots[:0]
	s.dropped = 0
	return savedCount
}
