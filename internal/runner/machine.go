package runner

import (
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hperssn/physiovr/internal/domain"
)

var (
	ErrNoExercise      = errors.New("no exercise selected")
	ErrUnknownExercise = errors.New("unknown exercise")
	ErrNotActive       = errors.New("exercise not active")
	ErrInProgress      = errors.New("exercise in progress")
	ErrComplete        = errors.New("exercise complete, reset to run again")
	ErrClosed          = errors.New("session closed")

	errStale = errors.New("stale timer")
)

const (
	DefaultCountdown = 5
	DefaultUnit      = time.Second

	eventBuffer = 16
)

type Option func(*Machine)

func WithClock(c clockwork.Clock) Option {
	return func(m *Machine) { m.clock = c }
}

// WithCountdown sets the number of countdown units before auto-start.
func WithCountdown(n int) Option {
	return func(m *Machine) { m.countdownFrom = max(n, 0) }
}

// WithUnit sets the wall-clock length of one step second and one countdown
// tick.
func WithUnit(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.unit = d
		}
	}
}

func WithObserver(o Observer) Option {
	return func(m *Machine) {
		if o != nil {
			m.observer = o
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

// Machine owns one patient's exercise session. All transitions are
// serialized by mu, including those fired by timers.
type Machine struct {
	mu sync.Mutex

	userID        string
	catalog       *domain.Catalog
	clock         clockwork.Clock
	unit          time.Duration
	countdownFrom int
	observer      Observer
	logger        *slog.Logger

	session  domain.Session
	exercise domain.Exercise

	timer clockwork.Timer
	gen   uint64

	lastActivity time.Time
	notify       []func()
	subs         map[int]chan Event
	nextSub      int
	closed       bool
}

func NewMachine(userID string, catalog *domain.Catalog, opts ...Option) *Machine {
	m := &Machine{
		userID:        userID,
		catalog:       catalog,
		clock:         clockwork.NewRealClock(),
		unit:          DefaultUnit,
		countdownFrom: DefaultCountdown,
		observer:      noopObserver{},
		logger:        slog.Default(),
		session:       domain.NewSession(),
		subs:          make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.session.Countdown = m.countdownFrom
	m.lastActivity = m.clock.Now()
	m.logger = m.logger.With("user", userID)
	return m
}

func (m *Machine) SelectExercise(id domain.ExerciseID) error {
	return m.apply(func() error {
		ex, ok := m.catalog.Get(id)
		if !ok {
			return ErrUnknownExercise
		}
		switch m.session.Phase {
		case domain.PhaseCountingDown, domain.PhaseActive:
			return ErrInProgress
		}

		m.exercise = ex
		m.session.ExerciseID = id
		m.rearm()
		m.logger.Debug("exercise selected", "exercise", id, "steps", ex.TotalSteps())
		m.publish(EventSelected)
		return nil
	})
}

func (m *Machine) SetDifficulty(d domain.Difficulty) error {
	if _, err := domain.ParseDifficulty(string(d)); err != nil {
		return err
	}
	return m.apply(func() error {
		m.session.Settings.Difficulty = d
		m.publish(EventSettings)
		return nil
	})
}

func (m *Machine) SetEnvironment(e domain.Environment) error {
	if _, err := domain.ParseEnvironment(string(e)); err != nil {
		return err
	}
	return m.apply(func() error {
		m.session.Settings.Environment = e
		m.publish(EventSettings)
		return nil
	})
}

func (m *Machine) SetAudioEnabled(enabled bool) error {
	return m.apply(func() error {
		m.session.Settings.AudioEnabled = enabled
		m.publish(EventSettings)
		return nil
	})
}

func (m *Machine) EnterVR() error {
	return m.apply(func() error {
		m.session.InVR = true
		m.publish(EventSettings)
		return nil
	})
}

// SetVRSupported records whether the client device can present VR.
func (m *Machine) SetVRSupported(supported bool) error {
	return m.apply(func() error {
		m.session.VRSupported = supported
		m.publish(EventSettings)
		return nil
	})
}

// StartExercise begins the countdown. The exercise starts by itself once
// the countdown reaches zero.
func (m *Machine) StartExercise() error {
	return m.apply(func() error {
		if err := m.checkStartable(); err != nil {
			return err
		}
		if m.session.Phase == domain.PhaseCountingDown {
			return ErrInProgress
		}

		m.session.Phase = domain.PhaseCountingDown
		m.session.Countdown = m.countdownFrom
		if m.session.Countdown == 0 {
			m.activate()
			return nil
		}

		m.publish(EventCountdown)
		m.schedule(m.unit, m.tickCountdown)
		return nil
	})
}

// StartNow skips whatever remains of the countdown.
func (m *Machine) StartNow() error {
	return m.apply(func() error {
		if err := m.checkStartable(); err != nil {
			return err
		}
		m.cancelTimer()
		m.session.Countdown = 0
		m.activate()
		return nil
	})
}

// NextStep advances to the following step, completing the session when the
// last step is passed.
func (m *Machine) NextStep() error {
	return m.apply(func() error {
		if m.session.Phase != domain.PhaseActive {
			return ErrNotActive
		}
		m.advance()
		return nil
	})
}

// ResetExercise returns to the selected exercise with the countdown re-armed.
// Counters are kept.
func (m *Machine) ResetExercise() error {
	return m.apply(func() error {
		if m.session.ExerciseID == "" {
			return ErrNoExercise
		}
		m.rearm()
		m.logger.Debug("exercise reset", "exercise", m.session.ExerciseID)
		m.publish(EventReset)
		return nil
	})
}

// ExitVR drops the selection and returns to Idle. Counters and settings are
// kept.
func (m *Machine) ExitVR() error {
	return m.apply(func() error {
		m.rearm()
		m.exercise = domain.Exercise{}
		m.session.ExerciseID = ""
		m.session.Phase = domain.PhaseIdle
		m.session.InVR = false
		m.publish(EventExited)
		return nil
	})
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

// LastActivity is the time of the last transition, including timer fires.
func (m *Machine) LastActivity() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastActivity
}

// Subscribe returns a channel of events and a function to release it. Slow
// subscribers miss events rather than block the machine.
func (m *Machine) Subscribe() (<-chan Event, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan Event, eventBuffer)
	if m.closed {
		close(ch)
		return ch, func() {}
	}

	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if sub, ok := m.subs[id]; ok {
				delete(m.subs, id)
				close(sub)
			}
		})
	}
}

// Close cancels any pending timer and ends all subscriptions. Later
// transitions return ErrClosed.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	m.cancelTimer()
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
}

func (m *Machine) apply(fn func() error) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	err := fn()
	if err == nil {
		m.lastActivity = m.clock.Now()
	}
	notify := m.notify
	m.notify = nil
	m.mu.Unlock()

	for _, n := range notify {
		n()
	}
	return err
}

func (m *Machine) checkStartable() error {
	switch m.session.Phase {
	case domain.PhaseIdle:
		return ErrNoExercise
	case domain.PhaseActive:
		return ErrInProgress
	case domain.PhaseComplete:
		return ErrComplete
	}
	return nil
}

// rearm clears the per-attempt fields and cancels any pending timer.
func (m *Machine) rearm() {
	m.cancelTimer()
	m.session.Phase = domain.PhaseSelected
	m.session.Active = false
	m.session.StepIndex = 0
	m.session.Progress = 0
	m.session.StartedAt = time.Time{}
	m.session.Countdown = m.countdownFrom
	m.session.AutoStarted = false
}

func (m *Machine) tickCountdown() {
	if m.session.Phase != domain.PhaseCountingDown {
		return
	}

	m.session.Countdown--
	if m.session.Countdown <= 0 {
		m.session.Countdown = 0
		m.activate()
		return
	}

	m.publish(EventCountdown)
	m.schedule(m.unit, m.tickCountdown)
}

func (m *Machine) activate() {
	if m.session.AutoStarted {
		return
	}
	m.session.AutoStarted = true

	s := &m.session
	s.Phase = domain.PhaseActive
	s.Active = true
	s.StepIndex = 0
	s.Progress = 0
	s.StartedAt = m.clock.Now()

	userID, id := m.userID, s.ExerciseID
	m.notify = append(m.notify, func() { m.observer.SessionStarted(userID, id) })
	m.logger.Info("exercise started", "exercise", id, "steps", m.exercise.TotalSteps())
	m.publish(EventStarted)

	if m.exercise.TotalSteps() == 0 {
		m.complete()
		return
	}
	m.scheduleStep()
}

func (m *Machine) advance() {
	m.cancelTimer()

	total := m.exercise.TotalSteps()
	next := m.session.StepIndex + 1
	if next >= total {
		m.complete()
		return
	}

	m.session.StepIndex = next
	m.session.Progress = domain.Progress(next, total)

	userID, id := m.userID, m.session.ExerciseID
	m.notify = append(m.notify, func() { m.observer.StepAdvanced(userID, id, next) })
	m.publish(EventStep)
	m.scheduleStep()
}

func (m *Machine) complete() {
	m.cancelTimer()

	s := &m.session
	now := m.clock.Now()
	elapsed := int(math.Round(now.Sub(s.StartedAt).Seconds()))

	s.Phase = domain.PhaseComplete
	s.Active = false
	s.Progress = 100
	s.CompletedCount++
	s.TotalSeconds += elapsed

	c := Completion{
		UserID:      m.userID,
		ExerciseID:  s.ExerciseID,
		Settings:    s.Settings,
		Steps:       m.exercise.TotalSteps(),
		StartedAt:   s.StartedAt,
		CompletedAt: now,
		ElapsedSec:  elapsed,
	}
	m.notify = append(m.notify, func() { m.observer.SessionCompleted(c) })
	m.logger.Info("exercise completed", "exercise", c.ExerciseID, "elapsed_sec", elapsed, "completed", s.CompletedCount)
	m.publish(EventCompleted)
}

func (m *Machine) scheduleStep() {
	step := m.exercise.Steps[m.session.StepIndex]
	m.schedule(stepDelay(step.Duration, m.unit), m.advance)
}

// stepDelay is seconds × unit, saturating instead of wrapping.
func stepDelay(seconds int, unit time.Duration) time.Duration {
	if seconds <= 0 {
		return 0
	}
	if time.Duration(seconds) > math.MaxInt64/unit {
		return math.MaxInt64
	}
	return time.Duration(seconds) * unit
}

// schedule replaces the pending timer. A fire that races with a later
// transition sees a newer generation and does nothing.
func (m *Machine) schedule(d time.Duration, fire func()) {
	m.cancelTimer()
	gen := m.gen
	m.timer = m.clock.AfterFunc(d, func() {
		_ = m.apply(func() error {
			if gen != m.gen {
				return errStale
			}
			m.timer = nil
			fire()
			return nil
		})
	})
}

func (m *Machine) cancelTimer() {
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Machine) publish(t EventType) {
	ev := Event{Type: t, Snapshot: m.snapshot()}
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (m *Machine) snapshot() Snapshot {
	s := m.session
	snap := Snapshot{
		UserID:         m.userID,
		Phase:          s.Phase,
		ExerciseID:     s.ExerciseID,
		Active:         s.Active,
		StepIndex:      s.StepIndex,
		TotalSteps:     m.exercise.TotalSteps(),
		Progress:       s.Progress,
		Countdown:      s.Countdown,
		InVR:           s.InVR,
		VRSupported:    s.VRSupported,
		CompletedCount: s.CompletedCount,
		TotalSeconds:   s.TotalSeconds,
		Settings:       s.Settings,
	}
	if !s.StartedAt.IsZero() {
		t := s.StartedAt
		snap.StartedAt = &t
	}
	if s.Active && s.StepIndex < len(m.exercise.Steps) {
		step := m.exercise.Steps[s.StepIndex]
		snap.Step = &step
	}
	return snap
}
