package runner

import (
	"time"

	"github.com/hperssn/physiovr/internal/domain"
)

type EventType string

const (
	EventSelected  EventType = "selected"
	EventSettings  EventType = "settings"
	EventCountdown EventType = "countdown"
	EventStarted   EventType = "started"
	EventStep      EventType = "step"
	EventCompleted EventType = "completed"
	EventReset     EventType = "reset"
	EventExited    EventType = "exited"
)

type Event struct {
	Type     EventType `json:"type"`
	Snapshot Snapshot  `json:"session"`
}

// Snapshot is a read-only copy of a machine's observable state.
type Snapshot struct {
	UserID         string            `json:"userId"`
	Phase          domain.Phase      `json:"phase"`
	ExerciseID     domain.ExerciseID `json:"exerciseId,omitempty"`
	Active         bool              `json:"active"`
	StepIndex      int               `json:"stepIndex"`
	TotalSteps     int               `json:"totalSteps"`
	Progress       int               `json:"progress"`
	Countdown      int               `json:"countdown"`
	StartedAt      *time.Time        `json:"startedAt,omitempty"`
	InVR           bool              `json:"inVR"`
	VRSupported    bool              `json:"vrSupported"`
	CompletedCount int               `json:"completedCount"`
	TotalSeconds   int               `json:"totalSeconds"`
	Settings       domain.Settings   `json:"settings"`

	// Step is the instruction being performed, set while active.
	Step *domain.Step `json:"-"`
}

// Completion describes a finished session.
type Completion struct {
	UserID      string
	ExerciseID  domain.ExerciseID
	Settings    domain.Settings
	Steps       int
	StartedAt   time.Time
	CompletedAt time.Time
	ElapsedSec  int
}

// Observer is notified of session milestones. Calls are made outside the
// machine lock, in transition order.
type Observer interface {
	SessionStarted(userID string, exercise domain.ExerciseID)
	StepAdvanced(userID string, exercise domain.ExerciseID, index int)
	SessionCompleted(c Completion)
}

type noopObserver struct{}

func (noopObserver) SessionStarted(string, domain.ExerciseID)    {}
func (noopObserver) StepAdvanced(string, domain.ExerciseID, int) {}
func (noopObserver) SessionCompleted(Completion)                 {}

// Observers fans calls out to each observer in order.
type Observers []Observer

func (o Observers) SessionStarted(userID string, exercise domain.ExerciseID) {
	for _, obs := range o {
		obs.SessionStarted(userID, exercise)
	}
}

func (o Observers) StepAdvanced(userID string, exercise domain.ExerciseID, index int) {
	for _, obs := range o {
		obs.StepAdvanced(userID, exercise, index)
	}
}

func (o Observers) SessionCompleted(c Completion) {
	for _, obs := range o {
		obs.SessionCompleted(c)
	}
}
