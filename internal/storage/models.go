package storage

import (
	"time"

	"github.com/google/uuid"

	"github.com/hperssn/physiovr/internal/runner"
)

// SessionRecord is one completed exercise session.
type SessionRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	ExerciseID  string    `json:"exerciseId"`
	Difficulty  string    `json:"difficulty"`
	Environment string    `json:"environment"`
	StepCount   int       `json:"stepCount"`
	ElapsedSec  int       `json:"elapsedSec"`
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`
}

// FromCompletion converts a runner.Completion to a SessionRecord with a
// fresh ID.
func FromCompletion(c runner.Completion) *SessionRecord {
	return &SessionRecord{
		ID:          uuid.New().String(),
		UserID:      c.UserID,
		ExerciseID:  string(c.ExerciseID),
		Difficulty:  string(c.Settings.Difficulty),
		Environment: string(c.Settings.Environment),
		StepCount:   c.Steps,
		ElapsedSec:  c.ElapsedSec,
		StartedAt:   c.StartedAt.UTC().Truncate(time.Second),
		CompletedAt: c.CompletedAt.UTC().Truncate(time.Second),
	}
}
