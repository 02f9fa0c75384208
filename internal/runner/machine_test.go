package runner

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hperssn/physiovr/internal/domain"
)

// --- Mocks ---

type recordingObserver struct {
	mu          sync.Mutex
	started     []domain.ExerciseID
	steps       []int
	completions []Completion
}

func (o *recordingObserver) SessionStarted(_ string, id domain.ExerciseID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, id)
}

func (o *recordingObserver) StepAdvanced(_ string, _ domain.ExerciseID, index int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.steps = append(o.steps, index)
}

func (o *recordingObserver) SessionCompleted(c Completion) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completions = append(o.completions, c)
}

func (o *recordingObserver) getCompletions() []Completion {
	o.mu.Lock()
	defer o.mu.Unlock()
	cp := make([]Completion, len(o.completions))
	copy(cp, o.completions)
	return cp
}

// --- Helpers ---

func testCatalog() *domain.Catalog {
	return domain.BuiltinCatalog().Merge(domain.NewCatalog(
		domain.Exercise{ID: "empty", Name: "Nothing"},
		domain.Exercise{ID: "slow", Name: "Slow", Steps: []domain.Step{
			domain.Hold("one", 1000),
			domain.Hold("two", 1000),
			domain.Hold("three", 1000),
		}},
	))
}

func newTestMachine(t *testing.T, opts ...Option) (*Machine, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	opts = append([]Option{WithClock(clock)}, opts...)
	m := NewMachine("patient-1", testCatalog(), opts...)
	t.Cleanup(m.Close)
	return m, clock
}

func activeMachine(t *testing.T, id domain.ExerciseID, opts ...Option) (*Machine, *clockwork.FakeClock) {
	t.Helper()
	m, clock := newTestMachine(t, opts...)
	require.NoError(t, m.SelectExercise(id))
	require.NoError(t, m.StartNow())
	require.Equal(t, domain.PhaseActive, m.Snapshot().Phase)
	return m, clock
}

// waitForTimers blocks until the machine has exactly n pending timers.
func waitForTimers(t *testing.T, clock *clockwork.FakeClock, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, n))
}

func assertIdle(t *testing.T, s Snapshot) {
	t.Helper()
	assert.Equal(t, domain.PhaseIdle, s.Phase)
	assert.Empty(t, s.ExerciseID)
	assert.False(t, s.Active)
	assert.Zero(t, s.StepIndex)
	assert.Zero(t, s.Progress)
	assert.Nil(t, s.StartedAt)
}

// --- Transitions ---

func TestNewMachineIsIdle(t *testing.T) {
	m, _ := newTestMachine(t)

	s := m.Snapshot()
	assertIdle(t, s)
	assert.Equal(t, "patient-1", s.UserID)
	assert.Equal(t, DefaultCountdown, s.Countdown)
	assert.Equal(t, domain.DefaultSettings(), s.Settings)
}

func TestSelectExercise(t *testing.T) {
	m, _ := newTestMachine(t)

	require.NoError(t, m.SelectExercise(domain.ExerciseNeck))

	s := m.Snapshot()
	assert.Equal(t, domain.PhaseSelected, s.Phase)
	assert.Equal(t, domain.ExerciseNeck, s.ExerciseID)
	assert.Equal(t, 13, s.TotalSteps)
	assert.False(t, s.Active)
}

func TestSelectUnknownExerciseLeavesStateUnchanged(t *testing.T) {
	m, _ := newTestMachine(t)
	require.NoError(t, m.SelectExercise(domain.ExerciseArms))
	before := m.Snapshot()

	err := m.SelectExercise("yoga")

	assert.ErrorIs(t, err, ErrUnknownExercise)
	assert.Equal(t, before, m.Snapshot())
}

func TestSelectWhileActiveIsRejected(t *testing.T) {
	m, _ := activeMachine(t, domain.ExerciseArms)
	before := m.Snapshot()

	assert.ErrorIs(t, m.SelectExercise(domain.ExerciseNeck), ErrInProgress)
	assert.Equal(t, before, m.Snapshot())
}

func TestStartWithoutSelectionIsNoop(t *testing.T) {
	m, clock := newTestMachine(t)
	before := m.Snapshot()

	assert.ErrorIs(t, m.StartExercise(), ErrNoExercise)
	assert.ErrorIs(t, m.StartNow(), ErrNoExercise)

	assert.Equal(t, before, m.Snapshot())
	assert.Equal(t, domain.PhaseIdle, m.Snapshot().Phase)
	assert.False(t, m.Snapshot().Active)
	waitForTimers(t, clock, 0)
}

func TestNextStepWithoutActiveExerciseIsNoop(t *testing.T) {
	m, _ := newTestMachine(t)
	assert.ErrorIs(t, m.NextStep(), ErrNotActive)

	require.NoError(t, m.SelectExercise(domain.ExerciseNeck))
	before := m.Snapshot()
	assert.ErrorIs(t, m.NextStep(), ErrNotActive)
	assert.Equal(t, before, m.Snapshot())
}

func TestStartNowActivates(t *testing.T) {
	m, clock := activeMachine(t, domain.ExerciseShoulder)

	s := m.Snapshot()
	assert.True(t, s.Active)
	assert.Zero(t, s.StepIndex)
	assert.Zero(t, s.Progress)
	assert.Zero(t, s.Countdown)
	require.NotNil(t, s.StartedAt)
	assert.Equal(t, clock.Now(), *s.StartedAt)
	require.NotNil(t, s.Step)
	assert.Equal(t, 5, s.Step.Duration)

	assert.ErrorIs(t, m.StartNow(), ErrInProgress)
	assert.ErrorIs(t, m.StartExercise(), ErrInProgress)
}

func TestAdvanceProgressSequence(t *testing.T) {
	for _, ex := range testCatalog().List() {
		if ex.TotalSteps() == 0 {
			continue
		}
		t.Run(string(ex.ID), func(t *testing.T) {
			m, _ := activeMachine(t, ex.ID)
			n := ex.TotalSteps()

			for k := 1; k <= n; k++ {
				require.NoError(t, m.NextStep())
				s := m.Snapshot()
				if k < n {
					assert.Equal(t, domain.PhaseActive, s.Phase, "advance %d", k)
					assert.Equal(t, k, s.StepIndex)
					assert.Equal(t, domain.Progress(k, n), s.Progress)
					continue
				}
				assert.Equal(t, domain.PhaseComplete, s.Phase)
				assert.Equal(t, 100, s.Progress)
				assert.False(t, s.Active)
			}
		})
	}
}

func TestBreathingCompletesOnFifteenthAdvance(t *testing.T) {
	m, _ := activeMachine(t, domain.ExerciseBreathing)

	var progress []int
	for range [14]struct{}{} {
		require.NoError(t, m.NextStep())
		progress = append(progress, m.Snapshot().Progress)
	}
	assert.Equal(t, domain.PhaseActive, m.Snapshot().Phase)
	assert.Equal(t, []int{7, 13, 20, 27, 33, 40, 47, 53, 60, 67, 73, 80, 87, 93}, progress)

	require.NoError(t, m.NextStep())
	s := m.Snapshot()
	assert.Equal(t, domain.PhaseComplete, s.Phase)
	assert.Equal(t, 100, s.Progress)
	assert.Equal(t, 1, s.CompletedCount)

	assert.ErrorIs(t, m.NextStep(), ErrNotActive)
	assert.Equal(t, 1, m.Snapshot().CompletedCount)
}

func TestEmptyExerciseCompletesImmediately(t *testing.T) {
	obs := &recordingObserver{}
	m, clock := newTestMachine(t, WithObserver(obs))
	require.NoError(t, m.SelectExercise("empty"))

	require.NoError(t, m.StartNow())

	s := m.Snapshot()
	assert.Equal(t, domain.PhaseComplete, s.Phase)
	assert.Equal(t, 100, s.Progress)
	assert.Equal(t, 1, s.CompletedCount)
	assert.Zero(t, s.TotalSeconds)
	assert.Len(t, obs.getCompletions(), 1)
	waitForTimers(t, clock, 0)
}

func TestStartFromCompleteRequiresReset(t *testing.T) {
	m, _ := activeMachine(t, "slow")
	for range [3]struct{}{} {
		require.NoError(t, m.NextStep())
	}

	assert.ErrorIs(t, m.StartExercise(), ErrComplete)
	assert.ErrorIs(t, m.StartNow(), ErrComplete)

	require.NoError(t, m.ResetExercise())
	require.NoError(t, m.StartNow())
	assert.Equal(t, domain.PhaseActive, m.Snapshot().Phase)
}

func TestResetFromAnyState(t *testing.T) {
	tests := []struct {
		name  string
		drive func(t *testing.T, m *Machine)
	}{
		{"selected", func(t *testing.T, m *Machine) {}},
		{"counting down", func(t *testing.T, m *Machine) {
			require.NoError(t, m.StartExercise())
		}},
		{"active", func(t *testing.T, m *Machine) {
			require.NoError(t, m.StartNow())
			require.NoError(t, m.NextStep())
		}},
		{"complete", func(t *testing.T, m *Machine) {
			require.NoError(t, m.StartNow())
			for range [3]struct{}{} {
				require.NoError(t, m.NextStep())
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, clock := newTestMachine(t)
			require.NoError(t, m.SelectExercise("slow"))
			tt.drive(t, m)

			require.NoError(t, m.ResetExercise())

			s := m.Snapshot()
			assert.Equal(t, domain.PhaseSelected, s.Phase)
			assert.Equal(t, domain.ExerciseID("slow"), s.ExerciseID)
			assert.False(t, s.Active)
			assert.Zero(t, s.StepIndex)
			assert.Zero(t, s.Progress)
			assert.Nil(t, s.StartedAt)
			assert.Equal(t, DefaultCountdown, s.Countdown)
			waitForTimers(t, clock, 0)
		})
	}
}

func TestResetWithoutSelection(t *testing.T) {
	m, _ := newTestMachine(t)
	assert.ErrorIs(t, m.ResetExercise(), ErrNoExercise)
	assertIdle(t, m.Snapshot())
}

func TestExitFromAnyState(t *testing.T) {
	tests := []struct {
		name  string
		drive func(t *testing.T, m *Machine)
	}{
		{"idle", func(t *testing.T, m *Machine) {}},
		{"selected", func(t *testing.T, m *Machine) {
			require.NoError(t, m.SelectExercise(domain.ExerciseNeck))
		}},
		{"counting down", func(t *testing.T, m *Machine) {
			require.NoError(t, m.SelectExercise(domain.ExerciseNeck))
			require.NoError(t, m.StartExercise())
		}},
		{"active", func(t *testing.T, m *Machine) {
			require.NoError(t, m.SelectExercise(domain.ExerciseNeck))
			require.NoError(t, m.StartNow())
			require.NoError(t, m.NextStep())
		}},
		{"complete", func(t *testing.T, m *Machine) {
			require.NoError(t, m.SelectExercise("empty"))
			require.NoError(t, m.StartNow())
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, clock := newTestMachine(t)
			require.NoError(t, m.EnterVR())
			tt.drive(t, m)

			require.NoError(t, m.ExitVR())
			once := m.Snapshot()
			assertIdle(t, once)
			assert.False(t, once.InVR)
			waitForTimers(t, clock, 0)

			require.NoError(t, m.ExitVR())
			assert.Equal(t, once, m.Snapshot())
		})
	}
}

func TestCompletedCountOnlyOnCompletion(t *testing.T) {
	m, _ := activeMachine(t, "slow")

	require.NoError(t, m.NextStep())
	require.NoError(t, m.ResetExercise())
	assert.Zero(t, m.Snapshot().CompletedCount)

	require.NoError(t, m.StartNow())
	require.NoError(t, m.ExitVR())
	assert.Zero(t, m.Snapshot().CompletedCount)
	assert.Zero(t, m.Snapshot().TotalSeconds)

	require.NoError(t, m.SelectExercise("slow"))
	require.NoError(t, m.StartNow())
	for range [3]struct{}{} {
		require.NoError(t, m.NextStep())
	}
	assert.Equal(t, 1, m.Snapshot().CompletedCount)
}

func TestCumulativeTimeAcrossSessions(t *testing.T) {
	obs := &recordingObserver{}
	m, clock := activeMachine(t, "slow", WithObserver(obs))

	clock.Advance(10 * time.Second)
	require.NoError(t, m.NextStep())
	clock.Advance(20 * time.Second)
	require.NoError(t, m.NextStep())
	require.NoError(t, m.NextStep())
	assert.Equal(t, 30, m.Snapshot().TotalSeconds)

	require.NoError(t, m.ResetExercise())
	require.NoError(t, m.StartNow())
	clock.Advance(45 * time.Second)
	for range [3]struct{}{} {
		require.NoError(t, m.NextStep())
	}

	s := m.Snapshot()
	assert.Equal(t, 2, s.CompletedCount)
	assert.Equal(t, 75, s.TotalSeconds)

	completions := obs.getCompletions()
	require.Len(t, completions, 2)
	assert.Equal(t, 30, completions[0].ElapsedSec)
	assert.Equal(t, 45, completions[1].ElapsedSec)
	assert.Equal(t, 3, completions[1].Steps)
	assert.Equal(t, "patient-1", completions[1].UserID)
}

func TestSettings(t *testing.T) {
	m, _ := newTestMachine(t)

	require.NoError(t, m.SetDifficulty(domain.DifficultyGentle))
	require.NoError(t, m.SetEnvironment(domain.EnvironmentOcean))
	require.NoError(t, m.SetAudioEnabled(false))

	assert.ErrorIs(t, m.SetDifficulty("extreme"), domain.ErrInvalidSetting)
	assert.ErrorIs(t, m.SetEnvironment("mars"), domain.ErrInvalidSetting)

	assert.Equal(t, domain.Settings{
		Difficulty:   domain.DifficultyGentle,
		Environment:  domain.EnvironmentOcean,
		AudioEnabled: false,
	}, m.Snapshot().Settings)

	require.NoError(t, m.ExitVR())
	assert.Equal(t, domain.EnvironmentOcean, m.Snapshot().Settings.Environment)
}

func TestVRSupportSurvivesExit(t *testing.T) {
	m, _ := newTestMachine(t)
	assert.False(t, m.Snapshot().VRSupported)

	require.NoError(t, m.SetVRSupported(true))
	require.NoError(t, m.EnterVR())
	require.NoError(t, m.ExitVR())

	s := m.Snapshot()
	assert.True(t, s.VRSupported)
	assert.False(t, s.InVR)
}

func TestClosedMachineRejectsTransitions(t *testing.T) {
	m, clock := activeMachine(t, domain.ExerciseNeck)

	m.Close()
	m.Close()

	assert.ErrorIs(t, m.NextStep(), ErrClosed)
	assert.ErrorIs(t, m.ExitVR(), ErrClosed)
	waitForTimers(t, clock, 0)
}

// --- Timers ---

func TestCountdownAutoStarts(t *testing.T) {
	m, clock := newTestMachine(t)
	require.NoError(t, m.SelectExercise(domain.ExerciseNeck))
	require.NoError(t, m.StartExercise())

	s := m.Snapshot()
	assert.Equal(t, domain.PhaseCountingDown, s.Phase)
	assert.Equal(t, 5, s.Countdown)
	assert.False(t, s.Active)

	for want := 4; want >= 1; want-- {
		waitForTimers(t, clock, 1)
		clock.Advance(time.Second)
		require.Eventually(t, func() bool {
			return m.Snapshot().Countdown == want
		}, time.Second, time.Millisecond)
		assert.Equal(t, domain.PhaseCountingDown, m.Snapshot().Phase)
	}

	waitForTimers(t, clock, 1)
	clock.Advance(time.Second)
	require.Eventually(t, func() bool {
		return m.Snapshot().Phase == domain.PhaseActive
	}, time.Second, time.Millisecond)

	s = m.Snapshot()
	assert.True(t, s.Active)
	assert.Zero(t, s.Countdown)
	assert.Zero(t, s.StepIndex)
}

func TestManualStartDuringCountdownStartsOnce(t *testing.T) {
	obs := &recordingObserver{}
	m, clock := newTestMachine(t, WithObserver(obs))
	require.NoError(t, m.SelectExercise(domain.ExerciseNeck))
	require.NoError(t, m.StartExercise())

	waitForTimers(t, clock, 1)
	clock.Advance(time.Second)
	require.Eventually(t, func() bool {
		return m.Snapshot().Countdown == 4
	}, time.Second, time.Millisecond)

	require.NoError(t, m.StartNow())
	assert.Equal(t, domain.PhaseActive, m.Snapshot().Phase)

	// only the first step timer remains
	waitForTimers(t, clock, 1)
	clock.Advance(4 * time.Second)
	assert.Never(t, func() bool {
		return m.Snapshot().StepIndex != 0
	}, 50*time.Millisecond, 5*time.Millisecond)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Len(t, obs.started, 1)
}

func TestZeroCountdownStartsImmediately(t *testing.T) {
	m, _ := newTestMachine(t, WithCountdown(0))
	require.NoError(t, m.SelectExercise(domain.ExerciseNeck))

	require.NoError(t, m.StartExercise())

	assert.Equal(t, domain.PhaseActive, m.Snapshot().Phase)
}

func TestStepTimersDriveSessionToCompletion(t *testing.T) {
	ex, _ := testCatalog().Get(domain.ExerciseBreathing)
	m, clock := activeMachine(t, domain.ExerciseBreathing)

	for i, step := range ex.Steps {
		waitForTimers(t, clock, 1)
		clock.Advance(time.Duration(step.Duration) * time.Second)

		next := i + 1
		require.Eventually(t, func() bool {
			s := m.Snapshot()
			if next == len(ex.Steps) {
				return s.Phase == domain.PhaseComplete
			}
			return s.StepIndex == next
		}, time.Second, time.Millisecond, "step %d", i)
	}

	s := m.Snapshot()
	assert.Equal(t, 100, s.Progress)
	assert.Equal(t, 1, s.CompletedCount)
	assert.Equal(t, ex.TotalSeconds(), s.TotalSeconds)
	waitForTimers(t, clock, 0)
}

func TestStepTimerUsesUnit(t *testing.T) {
	m, clock := activeMachine(t, domain.ExerciseBreathing, WithUnit(100*time.Millisecond))

	waitForTimers(t, clock, 1)
	clock.Advance(499 * time.Millisecond)
	assert.Never(t, func() bool {
		return m.Snapshot().StepIndex != 0
	}, 30*time.Millisecond, 5*time.Millisecond)

	clock.Advance(time.Millisecond)
	require.Eventually(t, func() bool {
		return m.Snapshot().StepIndex == 1
	}, time.Second, time.Millisecond)
}

func TestHugeStepDurationDoesNotSkipStep(t *testing.T) {
	catalog := domain.NewCatalog(domain.Exercise{ID: "endless", Steps: []domain.Step{
		domain.Hold("forever", 10_000_000_000),
		domain.Hold("after", 1),
	}})
	clock := clockwork.NewFakeClock()
	m := NewMachine("patient-1", catalog, WithClock(clock))
	t.Cleanup(m.Close)
	require.NoError(t, m.SelectExercise("endless"))
	require.NoError(t, m.StartNow())

	waitForTimers(t, clock, 1)
	clock.Advance(time.Millisecond)
	assert.Never(t, func() bool {
		return m.Snapshot().StepIndex != 0
	}, 30*time.Millisecond, 5*time.Millisecond)
}

func TestStepDelay(t *testing.T) {
	assert.Equal(t, 5*time.Second, stepDelay(5, time.Second))
	assert.Equal(t, 50*time.Millisecond, stepDelay(5, 10*time.Millisecond))
	assert.Equal(t, time.Duration(0), stepDelay(0, time.Second))
	assert.Equal(t, time.Duration(math.MaxInt64), stepDelay(10_000_000_000, time.Second))
}

func TestManualAdvanceReschedulesStepTimer(t *testing.T) {
	m, clock := activeMachine(t, domain.ExerciseShoulder)

	// step 0 lasts 5s, step 1 lasts 8s
	clock.Advance(3 * time.Second)
	require.NoError(t, m.NextStep())
	waitForTimers(t, clock, 1)

	clock.Advance(5 * time.Second)
	assert.Never(t, func() bool {
		return m.Snapshot().StepIndex != 1
	}, 50*time.Millisecond, 5*time.Millisecond)

	clock.Advance(3 * time.Second)
	require.Eventually(t, func() bool {
		return m.Snapshot().StepIndex == 2
	}, time.Second, time.Millisecond)
}

func TestResetCancelsPendingStepTimer(t *testing.T) {
	m, clock := activeMachine(t, domain.ExerciseNeck)
	waitForTimers(t, clock, 1)

	require.NoError(t, m.ResetExercise())
	waitForTimers(t, clock, 0)

	clock.Advance(time.Hour)
	assert.Never(t, func() bool {
		s := m.Snapshot()
		return s.StepIndex != 0 || s.Phase != domain.PhaseSelected
	}, 50*time.Millisecond, 5*time.Millisecond)
}

func TestExitCancelsCountdown(t *testing.T) {
	m, clock := newTestMachine(t)
	require.NoError(t, m.SelectExercise(domain.ExerciseNeck))
	require.NoError(t, m.StartExercise())

	require.NoError(t, m.ExitVR())
	waitForTimers(t, clock, 0)

	clock.Advance(time.Minute)
	assert.Never(t, func() bool {
		return m.Snapshot().Phase != domain.PhaseIdle
	}, 50*time.Millisecond, 5*time.Millisecond)
}

// --- Events ---

func TestSubscribeReceivesTransitions(t *testing.T) {
	m, _ := newTestMachine(t, WithCountdown(0))
	events, release := m.Subscribe()
	defer release()

	require.NoError(t, m.SelectExercise("slow"))
	require.NoError(t, m.StartExercise())
	require.NoError(t, m.NextStep())
	require.NoError(t, m.ExitVR())

	var got []EventType
	for range [4]struct{}{} {
		select {
		case ev := <-events:
			got = append(got, ev.Type)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
	assert.Equal(t, []EventType{EventSelected, EventStarted, EventStep, EventExited}, got)
}

func TestReleaseClosesSubscription(t *testing.T) {
	m, _ := newTestMachine(t)
	events, release := m.Subscribe()

	release()
	release()

	_, ok := <-events
	assert.False(t, ok)
	require.NoError(t, m.SelectExercise(domain.ExerciseNeck))
}

func TestCloseEndsSubscriptions(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewMachine("p", testCatalog(), WithClock(clock))
	events, release := m.Subscribe()
	defer release()

	m.Close()

	_, ok := <-events
	assert.False(t, ok)

	late, _ := m.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}
