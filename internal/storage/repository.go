package storage

import (
	"context"
	"time"
)

type Repository interface {
	SaveSession(ctx context.Context, record *SessionRecord) error

	GetSessionsByUser(ctx context.Context, userID string) ([]SessionRecord, error)

	GetRecentSessions(ctx context.Context, userID string, since time.Time) ([]SessionRecord, error)

	GetSessionStats(ctx context.Context, userID string) (*SessionStats, error)

	Close() error
}

type SessionStats struct {
	TotalSessions  int            `json:"totalSessions"`
	TotalTrainTime int            `json:"totalTrainTime"`
	AverageElapsed float64        `json:"averageElapsed"`
	ByExercise     map[string]int `json:"byExercise"`
}
