package health

import (
	"context"
	"strings"
)

// StartMonitoring launches the periodic re-evaluation loop. Every tick
// refreshes the stored classification for all tracked rollups, catching
// silence that no event will ever interrupt, and logs a warning for any
// rollup with outstanding issues.
func (m *Monitor) StartMonitoring(ctx context.Context) {
	m.log.Info("Starting health monitor", "interval", m.cfg.CheckInterval)
	// The ticker is created before the goroutine starts so that a test
	// clock advanced right after this call still fires the first tick.
	ticker := m.clock.NewTicker(m.cfg.CheckInterval)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.Ch():
				m.tick()
			case <-m.cancel:
				m.log.Info("Health monitor shutting down")
				return
			case <-ctx.Done():
				m.log.Info("Health monitor shutting down")
				return
			}
		}
	}()
}

// StopMonitoring stops the loop and waits for it to exit. Safe to call
// more than once, and without a prior StartMonitoring.
func (m *Monitor) StopMonitoring() {
	m.stopOnce.Do(func() {
		close(m.cancel)
	})
	m.wg.Wait()
}

func (m *Monitor) tick() {
	results := m.EvaluateAll()
	for _, result := range results {
		if len(result.Issues) > 0 {
			m.log.Warn("Health check issues detected",
				"rollup", result.Rollup,
				"status", result.Status,
				"issues", strings.Join(result.Issues, "; "))
		}
	}
	if m.evalHook != nil {
		m.evalHook(results)
	}

	now := m.now()
	m.mu.Lock()
	for rollup, state := range m.states {
		state.status = classify(state, m.cfg.ThresholdsFor(rollup), now)
	}
	m.mu.Unlock()
}
