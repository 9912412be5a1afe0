package health

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/rollupmon/rollupmon/clock"
	"github.com/rollupmon/rollupmon/testlog"
	"github.com/rollupmon/rollupmon/types"
)

func TestPeriodicTickRefreshesStoredStatus(t *testing.T) {
	cl := clock.NewDeterministicClock(time.Unix(1700000000, 0))
	cfg := DefaultConfig()
	cfg.CheckInterval = time.Minute
	m := NewMonitor(testlog.Logger(t, log.LevelDebug), cfg, cl)

	m.RecordEvent(batchEvent("arbitrum"))
	require.Equal(t, types.HealthHealthy, m.Status("arbitrum"))

	m.StartMonitoring(context.Background())
	defer m.StopMonitoring()

	// Silence past the halted threshold with no further events: only the
	// periodic tick can refresh the stored classification.
	thresholds := cfg.ThresholdsFor("arbitrum")
	cl.AdvanceTime(time.Duration(thresholds.HaltedThresholdSecs+1) * time.Second)

	require.Eventually(t, func() bool {
		return m.Status("arbitrum") == types.HealthHalted
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStopMonitoringIsIdempotent(t *testing.T) {
	cl := clock.NewDeterministicClock(time.Unix(1700000000, 0))
	m := NewMonitor(testlog.Logger(t, log.LevelDebug), DefaultConfig(), cl)

	m.StartMonitoring(context.Background())
	m.StopMonitoring()
	require.NotPanics(t, m.StopMonitoring)
}
