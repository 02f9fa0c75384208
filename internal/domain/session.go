package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrInvalidSetting = errors.New("invalid setting")

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSelected
	PhaseCountingDown
	PhaseActive
	PhaseComplete
)

var phaseNames = [...]string{"idle", "selected", "countingDown", "active", "complete"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

type Difficulty string

const (
	DifficultyGentle   Difficulty = "gentle"
	DifficultyModerate Difficulty = "moderate"
	DifficultyActive   Difficulty = "active"
)

func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(s); d {
	case DifficultyGentle, DifficultyModerate, DifficultyActive:
		return d, nil
	}
	return "", fmt.Errorf("%w: difficulty %q", ErrInvalidSetting, s)
}

type Environment string

const (
	EnvironmentForest    Environment = "forest"
	EnvironmentOcean     Environment = "ocean"
	EnvironmentMountains Environment = "mountains"
	EnvironmentZen       Environment = "zen"
)

func ParseEnvironment(s string) (Environment, error) {
	switch e := Environment(s); e {
	case EnvironmentForest, EnvironmentOcean, EnvironmentMountains, EnvironmentZen:
		return e, nil
	}
	return "", fmt.Errorf("%w: environment %q", ErrInvalidSetting, s)
}

type Settings struct {
	Difficulty   Difficulty  `json:"difficulty"`
	Environment  Environment `json:"environment"`
	AudioEnabled bool        `json:"audioEnabled"`
}

func DefaultSettings() Settings {
	return Settings{
		Difficulty:   DifficultyModerate,
		Environment:  EnvironmentForest,
		AudioEnabled: true,
	}
}

// Session is the runtime state of one patient's exercise attempts. The zero
// value, with DefaultSettings applied, is the Idle state.
type Session struct {
	Phase      Phase
	ExerciseID ExerciseID // empty when nothing is selected
	Active     bool
	StepIndex  int
	Progress   int
	StartedAt  time.Time // zero when unset

	Countdown   int
	AutoStarted bool
	InVR        bool
	VRSupported bool // reported by the headset client

	CompletedCount int
	TotalSeconds   int

	Settings Settings
}

func NewSession() Session {
	return Session{Settings: DefaultSettings()}
}

// Progress is the rounded percentage of steps passed.
func Progress(stepIndex, totalSteps int) int {
	if totalSteps <= 0 {
		return 100
	}
	return int(math.Round(float64(stepIndex) / float64(totalSteps) * 100))
}
