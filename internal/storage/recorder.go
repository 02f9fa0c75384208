package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/hperssn/physiovr/internal/domain"
	"github.com/hperssn/physiovr/internal/runner"
)

const saveTimeout = 5 * time.Second

// Recorder saves every completed session to a Repository. Save failures are
// logged and otherwise ignored.
type Recorder struct {
	repo   Repository
	logger *slog.Logger
}

func NewRecorder(repo Repository, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{repo: repo, logger: logger}
}

func (r *Recorder) SessionStarted(string, domain.ExerciseID)    {}
func (r *Recorder) StepAdvanced(string, domain.ExerciseID, int) {}

func (r *Recorder) SessionCompleted(c runner.Completion) {
	record := FromCompletion(c)

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := r.repo.SaveSession(ctx, record); err != nil {
		r.logger.Error("failed to record session", "user", c.UserID, "exercise", c.ExerciseID, "error", err)
		return
	}
	r.logger.Debug("session recorded", "id", record.ID, "user", c.UserID)
}
