// Package health classifies each rollup's liveness from the timing of
// its settlement events. Classification is a pure function of the last
// event timestamps and the configured thresholds; batch/proof cadence
// limits only ever add advisory issues, never change the classification.
package health

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/rollupmon/rollupmon/clock"
	"github.com/rollupmon/rollupmon/types"
)

// Event categories that refresh the batch and proof timestamps.
var (
	batchEvents = map[string]struct{}{
		"BatchDelivered": {},
		"StateUpdate":    {},
	}
	proofEvents = map[string]struct{}{
		"ProofSubmitted":     {},
		"ProofVerified":      {},
		"AssertionCreated":   {},
		"AssertionConfirmed": {},
	}
)

type chainState struct {
	status         types.HealthStatus
	lastEventTime  *uint64
	lastBatchTime  *uint64
	lastProofTime  *uint64
	missedCadences uint32
	// downtimeSecs mirrors the sequencer poller's latest downtime report;
	// zeroed whenever the sequencer shows activity.
	downtimeSecs uint64
}

// Monitor tracks health state for all rollups. The zero value is not
// usable; construct with NewMonitor.
type Monitor struct {
	log   log.Logger
	cfg   Config
	clock clock.Clock

	mu     sync.RWMutex
	states map[string]*chainState

	evalHook func([]types.HealthCheckResult)

	wg       sync.WaitGroup
	cancel   chan struct{}
	stopOnce sync.Once
}

func NewMonitor(logger log.Logger, cfg Config, cl clock.Clock) *Monitor {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	return &Monitor{
		log:    logger,
		cfg:    cfg,
		clock:  cl,
		states: make(map[string]*chainState),
		cancel: make(chan struct{}),
	}
}

// SetEvaluationHook registers fn to run after every periodic evaluation,
// e.g. to export the classifications as metrics. Must be called before
// StartMonitoring.
func (m *Monitor) SetEvaluationHook(fn func([]types.HealthCheckResult)) {
	m.evalHook = fn
}

func (m *Monitor) now() uint64 {
	return uint64(m.clock.Now().Unix())
}

// RecordEvent is called synchronously by a watcher for every observed
// event. It refreshes the relevant timestamps, clears the missed-cadence
// counter and recomputes the stored classification.
func (m *Monitor) RecordEvent(ev *types.RollupEvent) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.stateFor(ev.Rollup)

	state.lastEventTime = &now
	if _, ok := batchEvents[ev.EventType]; ok {
		state.lastBatchTime = &now
	}
	if _, ok := proofEvents[ev.EventType]; ok {
		state.lastProofTime = &now
	}
	state.missedCadences = 0
	state.status = classify(state, m.cfg.ThresholdsFor(ev.Rollup), now)
}

// RecordSequencerActivity clears the rollup's sequencer downtime tracking.
func (m *Monitor) RecordSequencerActivity(rollup string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateFor(rollup).downtimeSecs = 0
}

// RecordSequencerDowntime notes that the rollup's own block production has
// been silent for downtimeSecs (0 when the poller could not even read a
// chain tip).
func (m *Monitor) RecordSequencerDowntime(rollup string, downtimeSecs uint64) {
	m.mu.Lock()
	m.stateFor(rollup).downtimeSecs = downtimeSecs
	m.mu.Unlock()
	m.log.Warn("Sequencer downtime reported", "rollup", rollup, "downtime_secs", downtimeSecs)
}

// SequencerDowntime returns the last reported sequencer downtime in seconds.
func (m *Monitor) SequencerDowntime(rollup string) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if state, ok := m.states[rollup]; ok {
		return state.downtimeSecs
	}
	return 0
}

// Status returns the stored classification, refreshed by events and the
// periodic tick. Unknown rollups report Disconnected.
func (m *Monitor) Status(rollup string) types.HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if state, ok := m.states[rollup]; ok {
		return state.status
	}
	return types.HealthDisconnected
}

// CheckHealth produces the full read-only health view for one rollup.
// The classification is re-derived against the current time, so silence
// that no event will ever interrupt is visible immediately, without
// waiting for the next periodic tick.
func (m *Monitor) CheckHealth(rollup string) types.HealthCheckResult {
	now := m.now()
	thresholds := m.cfg.ThresholdsFor(rollup)

	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.states[rollup]
	if !ok {
		return types.HealthCheckResult{
			Rollup: rollup,
			Status: types.HealthDisconnected,
			Issues: []string{"No events received yet"},
		}
	}

	result := types.HealthCheckResult{
		Rollup:           rollup,
		Status:           classify(state, thresholds, now),
		LastEventAgeSecs: ageOf(state.lastEventTime, now),
		LastBatchAgeSecs: ageOf(state.lastBatchTime, now),
		LastProofAgeSecs: ageOf(state.lastProofTime, now),
		Issues:           []string{},
	}

	if age := result.LastEventAgeSecs; age != nil {
		if *age > thresholds.HaltedThresholdSecs {
			result.Issues = append(result.Issues, fmt.Sprintf(
				"No events for %d seconds (halted threshold: %d)", *age, thresholds.HaltedThresholdSecs))
		} else if *age > thresholds.DelayedThresholdSecs {
			result.Issues = append(result.Issues, fmt.Sprintf(
				"No events for %d seconds (delayed threshold: %d)", *age, thresholds.DelayedThresholdSecs))
		}
	}
	if age := result.LastBatchAgeSecs; age != nil && *age > thresholds.BatchCadenceSecs {
		result.Issues = append(result.Issues, fmt.Sprintf(
			"No batch for %d seconds (expected cadence: %d)", *age, thresholds.BatchCadenceSecs))
	}
	if age := result.LastProofAgeSecs; age != nil && *age > thresholds.ProofCadenceSecs {
		result.Issues = append(result.Issues, fmt.Sprintf(
			"No proof for %d seconds (expected cadence: %d)", *age, thresholds.ProofCadenceSecs))
	}
	if state.downtimeSecs > 0 {
		result.Issues = append(result.Issues, fmt.Sprintf(
			"Sequencer downtime: %d seconds", state.downtimeSecs))
	}
	return result
}

// EvaluateAll runs CheckHealth for every known rollup. Rollups that never
// produced an event still report, as Disconnected.
func (m *Monitor) EvaluateAll() []types.HealthCheckResult {
	results := make([]types.HealthCheckResult, 0, len(types.KnownRollups))
	for _, rollup := range types.KnownRollups {
		results = append(results, m.CheckHealth(rollup))
	}
	return results
}

// stateFor returns the rollup's entry, creating it on first use.
// Callers must hold the write lock.
func (m *Monitor) stateFor(rollup string) *chainState {
	state, ok := m.states[rollup]
	if !ok {
		// A fresh entry has no event timestamps, so it classifies as
		// Disconnected until the first event lands.
		state = &chainState{}
		state.status = classify(state, m.cfg.ThresholdsFor(rollup), m.now())
		m.states[rollup] = state
	}
	return state
}

// classify is the pure classification function. Cadence thresholds play
// no part here.
func classify(state *chainState, thresholds Thresholds, now uint64) types.HealthStatus {
	if state.lastEventTime == nil {
		return types.HealthDisconnected
	}
	age := saturatingSub(now, *state.lastEventTime)
	switch {
	case age > thresholds.HaltedThresholdSecs:
		return types.HealthHalted
	case age > thresholds.DelayedThresholdSecs:
		return types.HealthDelayed
	default:
		return types.HealthHealthy
	}
}

func ageOf(t *uint64, now uint64) *uint64 {
	if t == nil {
		return nil
	}
	age := saturatingSub(now, *t)
	return &age
}

func saturatingSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}
