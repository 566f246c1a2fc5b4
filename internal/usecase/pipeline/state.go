package pipeline

import (
	"time"

	"github.com/kitaq-care/soudan/internal/domain"
	"github.com/kitaq-care/soudan/internal/metrics"
)

// State is the per-request pipeline state. Transitions run strictly
// forward; Failed is reachable from any non-terminal state and
// Cancelled from any suspend point.
type State int

const (
	StateReceived State = iota
	StateAnalyzing
	StateClarifying
	StateCompiling
	StateExecuting
	StateAssembling
	StateGenerating
	StateDone
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateAnalyzing:
		return "analyzing"
	case StateClarifying:
		return "clarifying"
	case StateCompiling:
		return "compiling"
	case StateExecuting:
		return "executing"
	case StateAssembling:
		return "assembling"
	case StateGenerating:
		return "generating"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	switch s {
	case StateClarifying, StateDone, StateFailed, StateCancelled:
		return true
	}
	return false
}

// tracker records state transitions with timestamps so the latency
// breakdown is available on success and failure alike.
type tracker struct {
	state   State
	since   time.Time
	started time.Time
	stages  []domain.StageLatency
	now     func() time.Time
}

func newTracker(now func() time.Time) *tracker {
	t := &tracker{state: StateReceived, now: now}
	t.started = now()
	t.since = t.started
	return t
}

// transition closes the current stage and enters the next one.
func (t *tracker) transition(next State) {
	ts := t.now()
	if t.state != StateReceived {
		d := ts.Sub(t.since)
		t.stages = append(t.stages, domain.StageLatency{Stage: t.state.String(), Duration: d})
		metrics.StageDuration.WithLabelValues(t.state.String()).Observe(d.Seconds())
	}
	t.state = next
	t.since = ts
}

// breakdown finalizes the current stage and returns all measurements.
func (t *tracker) breakdown(final State) domain.LatencyBreakdown {
	t.transition(final)
	return domain.LatencyBreakdown{
		Stages: t.stages,
		Total:  t.now().Sub(t.started),
	}
}
