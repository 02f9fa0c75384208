package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hperssn/physiovr/internal/domain"
	"github.com/hperssn/physiovr/internal/runner"
)

const progressWidth = 20

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#0E7C7B", Dark: "#4ECDC4"})

	countdownStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#FFD700"})

	instructionStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				Foreground(lipgloss.AdaptiveColor{Light: "#1a1a1a", Dark: "#dddddd"})

	cueStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Italic(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#808080", Dark: "#808080"})

	doneStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#2E8B57", Dark: "#7CFC00"})
)

func renderExercise(e domain.Exercise) string {
	return fmt.Sprintf("%s %s  %s\n  %s · %d steps · %s",
		e.Icon,
		titleStyle.Render(e.Name),
		cueStyle.Render("("+string(e.ID)+")"),
		e.Description,
		e.TotalSteps(),
		e.Duration,
	)
}

func renderCountdown(n int) string {
	return countdownStyle.Render(fmt.Sprintf("Starting in %d...", n))
}

func renderStep(s runner.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", progressBar(s.Progress), titleStyle.Render(fmt.Sprintf("Step %d/%d", s.StepIndex+1, s.TotalSteps)))
	if s.Step == nil {
		return b.String()
	}

	b.WriteString(instructionStyle.Render(s.Step.Instruction))
	if cue := describeCue(*s.Step); cue != "" {
		b.WriteString("\n")
		b.WriteString(cueStyle.Render(cue))
	}
	return b.String()
}

func renderComplete(s runner.Snapshot) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		progressBar(100)+" "+doneStyle.Render("Exercise complete!"),
		instructionStyle.Render(fmt.Sprintf("Sessions completed: %d · Total time: %ds", s.CompletedCount, s.TotalSeconds)),
	)
}

func describeCue(step domain.Step) string {
	switch cue := step.Cue.(type) {
	case domain.TargetCue:
		p := cue.Position
		return fmt.Sprintf("target at (%.1f, %.1f, %.1f) · %ds", p.X, p.Y, p.Z, step.Duration)
	case domain.BreathCue:
		return fmt.Sprintf("breathe %s · %ds", cue.Phase, step.Duration)
	default:
		return fmt.Sprintf("hold · %ds", step.Duration)
	}
}

func progressBar(percent int) string {
	percent = min(max(percent, 0), 100)
	filled := percent * progressWidth / 100
	return fmt.Sprintf("[%s%s] %3d%%",
		strings.Repeat("█", filled),
		strings.Repeat("░", progressWidth-filled),
		percent,
	)
}
