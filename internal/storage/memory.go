package storage

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryRepository keeps records in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []SessionRecord
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) SaveSession(_ context.Context, record *SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	return nil
}

func (r *MemoryRepository) GetSessionsByUser(ctx context.Context, userID string) ([]SessionRecord, error) {
	return r.GetRecentSessions(ctx, userID, time.Time{})
}

func (r *MemoryRepository) GetRecentSessions(_ context.Context, userID string, since time.Time) ([]SessionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []SessionRecord
	for _, rec := range r.records {
		if rec.UserID == userID && !rec.CompletedAt.Before(since) {
			out = append(out, rec)
		}
	}
	slices.SortStableFunc(out, func(a, b SessionRecord) int {
		return b.CompletedAt.Compare(a.CompletedAt)
	})
	return out, nil
}

func (r *MemoryRepository) GetSessionStats(_ context.Context, userID string) (*SessionStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &SessionStats{ByExercise: make(map[string]int)}
	for _, rec := range r.records {
		if rec.UserID != userID {
			continue
		}
		stats.TotalSessions++
		stats.TotalTrainTime += rec.ElapsedSec
		stats.ByExercise[rec.ExerciseID]++
	}
	if stats.TotalSessions > 0 {
		stats.AverageElapsed = float64(stats.TotalTrainTime) / float64(stats.TotalSessions)
	}
	return stats, nil
}

func (r *MemoryRepository) Close() error {
	return nil
}
