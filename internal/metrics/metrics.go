// Package metrics defines the Prometheus collectors for exercise sessions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hperssn/physiovr/internal/domain"
	"github.com/hperssn/physiovr/internal/runner"
)

// Session Metrics
var (
	// SessionsStartedTotal counts sessions that reached the active phase
	SessionsStartedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "physiovr_sessions_started_total",
			Help: "Total exercise sessions started by exercise",
		},
		[]string{"exercise"},
	)

	// SessionsCompletedTotal counts sessions that passed their last step
	SessionsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "physiovr_sessions_completed_total",
			Help: "Total exercise sessions completed by exercise",
		},
		[]string{"exercise"},
	)

	// StepsAdvancedTotal counts step advances that did not complete a session
	StepsAdvancedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "physiovr_steps_advanced_total",
			Help: "Total step advances by exercise",
		},
		[]string{"exercise"},
	)

	// SessionDuration tracks wall-clock session length in seconds
	SessionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "physiovr_session_duration_seconds",
			Help:    "Completed session duration in seconds",
			Buckets: []float64{30, 60, 90, 120, 180, 300, 600, 900},
		},
		[]string{"exercise"},
	)
)

// Transport Metrics
var (
	// EventStreamsCurrent tracks open SSE event streams
	EventStreamsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "physiovr_event_streams_current",
			Help: "Number of open session event streams",
		},
	)
)

// RegisterSessionCount exposes the number of live session machines.
func RegisterSessionCount(reg prometheus.Registerer, count func() int) error {
	return reg.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "physiovr_sessions_current",
			Help: "Number of live patient session machines",
		},
		func() float64 { return float64(count()) },
	))
}

// Observer records machine milestones into the session collectors.
type Observer struct{}

var _ runner.Observer = Observer{}

func (Observer) SessionStarted(_ string, exercise domain.ExerciseID) {
	SessionsStartedTotal.WithLabelValues(string(exercise)).Inc()
}

func (Observer) StepAdvanced(_ string, exercise domain.ExerciseID, _ int) {
	StepsAdvancedTotal.WithLabelValues(string(exercise)).Inc()
}

func (Observer) SessionCompleted(c runner.Completion) {
	SessionsCompletedTotal.WithLabelValues(string(c.ExerciseID)).Inc()
	SessionDuration.WithLabelValues(string(c.ExerciseID)).Observe(float64(c.ElapsedSec))
}
