package domain

// CueKind names the variant of a step's cue.
type CueKind string

const (
	CueHold   CueKind = "hold"
	CueTarget CueKind = "target"
	CueBreath CueKind = "breath"
)

type BreathPhase string

const (
	BreathIn   BreathPhase = "in"
	BreathOut  BreathPhase = "out"
	BreathHold BreathPhase = "hold"
)

func (p BreathPhase) Valid() bool {
	switch p {
	case BreathIn, BreathOut, BreathHold:
		return true
	}
	return false
}

type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Cue is what the renderer shows alongside a step's instruction. It is one
// of HoldCue, TargetCue or BreathCue.
type Cue interface {
	Kind() CueKind
}

type HoldCue struct{}

func (HoldCue) Kind() CueKind { return CueHold }

type TargetCue struct {
	Position Position
}

func (TargetCue) Kind() CueKind { return CueTarget }

type BreathCue struct {
	Phase BreathPhase
}

func (BreathCue) Kind() CueKind { return CueBreath }

// Step is one timed instruction. Duration is in seconds.
type Step struct {
	Instruction string
	Duration    int
	Cue         Cue
}

// Kind reports the step's cue kind. A step without a cue is a hold.
func (s Step) Kind() CueKind {
	if s.Cue == nil {
		return CueHold
	}
	return s.Cue.Kind()
}

func Hold(instruction string, duration int) Step {
	return Step{Instruction: instruction, Duration: duration, Cue: HoldCue{}}
}

func Target(instruction string, duration int, x, y, z float64) Step {
	return Step{
		Instruction: instruction,
		Duration:    duration,
		Cue:         TargetCue{Position: Position{X: x, Y: y, Z: z}},
	}
}

func Breath(instruction string, duration int, phase BreathPhase) Step {
	return Step{Instruction: instruction, Duration: duration, Cue: BreathCue{Phase: phase}}
}
