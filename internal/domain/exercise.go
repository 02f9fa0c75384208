package domain

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrEmptyExerciseID = errors.New("exercise id is empty")
	ErrInvalidStep     = errors.New("invalid step")
)

// MaxStepDuration bounds a step's duration in seconds.
const MaxStepDuration = 24 * 60 * 60

type ExerciseID string

const (
	ExerciseShoulder  ExerciseID = "shoulder"
	ExerciseNeck      ExerciseID = "neck"
	ExerciseArms      ExerciseID = "arms"
	ExerciseBreathing ExerciseID = "breathing"
)

type Exercise struct {
	ID          ExerciseID
	Name        string
	Description string
	Duration    string // display label, e.g. "5-10 min"
	Icon        string
	Steps       []Step
}

func (e Exercise) TotalSteps() int {
	return len(e.Steps)
}

// TotalSeconds is the sum of all step durations.
func (e Exercise) TotalSeconds() int {
	total := 0
	for _, s := range e.Steps {
		total += s.Duration
	}
	return total
}

func (e Exercise) Validate() error {
	if e.ID == "" {
		return ErrEmptyExerciseID
	}
	for i, s := range e.Steps {
		if s.Duration <= 0 {
			return fmt.Errorf("%s step %d: %w: duration must be positive", e.ID, i, ErrInvalidStep)
		}
		if s.Duration > MaxStepDuration {
			return fmt.Errorf("%s step %d: %w: duration exceeds %ds", e.ID, i, ErrInvalidStep, MaxStepDuration)
		}
		if c, ok := s.Cue.(BreathCue); ok && !c.Phase.Valid() {
			return fmt.Errorf("%s step %d: %w: unknown breath phase %q", e.ID, i, ErrInvalidStep, c.Phase)
		}
	}
	return nil
}

func (e Exercise) clone() Exercise {
	e.Steps = slices.Clone(e.Steps)
	return e
}

// Catalog is an ordered, read-only set of exercises.
type Catalog struct {
	order []ExerciseID
	byID  map[ExerciseID]Exercise
}

func NewCatalog(exercises ...Exercise) *Catalog {
	c := &Catalog{byID: make(map[ExerciseID]Exercise, len(exercises))}
	for _, e := range exercises {
		c.put(e)
	}
	return c
}

func (c *Catalog) put(e Exercise) {
	if _, exists := c.byID[e.ID]; !exists {
		c.order = append(c.order, e.ID)
	}
	c.byID[e.ID] = e.clone()
}

func (c *Catalog) Get(id ExerciseID) (Exercise, bool) {
	e, ok := c.byID[id]
	if !ok {
		return Exercise{}, false
	}
	return e.clone(), true
}

func (c *Catalog) List() []Exercise {
	out := make([]Exercise, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id].clone())
	}
	return out
}

func (c *Catalog) Len() int {
	return len(c.order)
}

// Merge returns a new catalog with the entries of other replacing or
// appending to those of c.
func (c *Catalog) Merge(other *Catalog) *Catalog {
	merged := NewCatalog(c.List()...)
	for _, e := range other.List() {
		merged.put(e)
	}
	return merged
}
