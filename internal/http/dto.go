package httpapi

import (
	"github.com/hperssn/physiovr/internal/domain"
	"github.com/hperssn/physiovr/internal/runner"
)

type stepDTO struct {
	Instruction string           `json:"instruction"`
	Duration    int              `json:"duration"`
	Kind        domain.CueKind   `json:"kind"`
	Target      *domain.Position `json:"target,omitempty"`
	BreathPhase string           `json:"breathPhase,omitempty"`
}

func toStepDTO(s domain.Step) stepDTO {
	dto := stepDTO{
		Instruction: s.Instruction,
		Duration:    s.Duration,
		Kind:        s.Kind(),
	}
	switch cue := s.Cue.(type) {
	case domain.TargetCue:
		pos := cue.Position
		dto.Target = &pos
	case domain.BreathCue:
		dto.BreathPhase = string(cue.Phase)
	}
	return dto
}

type exerciseDTO struct {
	ID           domain.ExerciseID `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Duration     string            `json:"duration"`
	Icon         string            `json:"icon"`
	TotalSeconds int               `json:"totalSeconds"`
	Steps        []stepDTO         `json:"steps,omitempty"`
}

func toExerciseDTO(e domain.Exercise, withSteps bool) exerciseDTO {
	dto := exerciseDTO{
		ID:           e.ID,
		Name:         e.Name,
		Description:  e.Description,
		Duration:     e.Duration,
		Icon:         e.Icon,
		TotalSeconds: e.TotalSeconds(),
	}
	if withSteps {
		dto.Steps = make([]stepDTO, 0, len(e.Steps))
		for _, s := range e.Steps {
			dto.Steps = append(dto.Steps, toStepDTO(s))
		}
	}
	return dto
}

type sessionDTO struct {
	runner.Snapshot
	Step *stepDTO `json:"step,omitempty"`
}

func toSessionDTO(s runner.Snapshot) sessionDTO {
	dto := sessionDTO{Snapshot: s}
	if s.Step != nil {
		step := toStepDTO(*s.Step)
		dto.Step = &step
	}
	return dto
}

// sessionResponse carries the session state after a transition. Ignored
// holds the reason when the transition did not apply.
type sessionResponse struct {
	Session sessionDTO `json:"session"`
	Ignored string     `json:"ignored,omitempty"`
}

type eventDTO struct {
	Type    runner.EventType `json:"type"`
	Session sessionDTO       `json:"session"`
}
