package runner

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hperssn/physiovr/internal/domain"
)

var ErrSessionNotFound = errors.New("session not found")

const (
	DefaultIdleTTL         = 1 * time.Hour
	DefaultCleanupInterval = 5 * time.Minute
)

type ManagerConfig struct {
	Catalog         *domain.Catalog
	Clock           clockwork.Clock
	Observer        Observer
	Logger          *slog.Logger
	Countdown       int // zero means DefaultCountdown, negative disables it
	Unit            time.Duration
	IdleTTL         time.Duration
	CleanupInterval time.Duration
}

// SessionManager holds one Machine per patient.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Machine

	catalog  *domain.Catalog
	clock    clockwork.Clock
	logger   *slog.Logger
	idleTTL  time.Duration
	interval time.Duration
	opts     []Option

	done chan struct{}
	wg   sync.WaitGroup
}

func NewSessionManager(cfg ManagerConfig) *SessionManager {
	if cfg.Catalog == nil {
		cfg.Catalog = domain.BuiltinCatalog()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.Countdown == 0 {
		cfg.Countdown = DefaultCountdown
	}
	if cfg.Unit <= 0 {
		cfg.Unit = DefaultUnit
	}

	m := &SessionManager{
		sessions: make(map[string]*Machine),
		catalog:  cfg.Catalog,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		idleTTL:  cfg.IdleTTL,
		interval: cfg.CleanupInterval,
		opts: []Option{
			WithClock(cfg.Clock),
			WithCountdown(cfg.Countdown),
			WithUnit(cfg.Unit),
			WithObserver(cfg.Observer),
			WithLogger(cfg.Logger),
		},
		done: make(chan struct{}),
	}

	m.wg.Add(1)
	go m.cleanupLoop()

	return m
}

func (m *SessionManager) Catalog() *domain.Catalog {
	return m.catalog
}

func (m *SessionManager) cleanupLoop() {
	defer m.wg.Done()

	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			m.cleanupIdleSessions()
		case <-m.done:
			return
		}
	}
}

// cleanupIdleSessions evicts machines that are not mid-exercise and have
// seen no transition within the idle TTL.
func (m *SessionManager) cleanupIdleSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.clock.Now().Add(-m.idleTTL)
	evicted := 0

	for id, machine := range m.sessions {
		if machine.Snapshot().Active || machine.LastActivity().After(cutoff) {
			continue
		}
		machine.Close()
		delete(m.sessions, id)
		evicted++
	}

	if evicted > 0 {
		m.logger.Info("evicted idle sessions", "count", evicted, "remaining", len(m.sessions))
	}
	return evicted
}

// Get returns the patient's machine, creating it on first use. Once the
// manager is closed it returns a closed, untracked machine.
func (m *SessionManager) Get(userID string) *Machine {
	m.mu.Lock()
	defer m.mu.Unlock()

	if machine, ok := m.sessions[userID]; ok {
		return machine
	}

	machine := NewMachine(userID, m.catalog, m.opts...)
	if m.isClosed() {
		machine.Close()
		return machine
	}
	m.sessions[userID] = machine
	return machine
}

func (m *SessionManager) Lookup(userID string) (*Machine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	machine, ok := m.sessions[userID]
	return machine, ok
}

func (m *SessionManager) Remove(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	machine, exists := m.sessions[userID]
	if !exists {
		return ErrSessionNotFound
	}

	machine.Close()
	delete(m.sessions, userID)
	return nil
}

func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *SessionManager) isClosed() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

// Close stops the cleanup loop and every machine.
func (m *SessionManager) Close() {
	m.mu.Lock()
	select {
	case <-m.done:
		m.mu.Unlock()
		return
	default:
		close(m.done)
	}
	for id, machine := range m.sessions {
		machine.Close()
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	m.wg.Wait()
}
