package health

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/rollupmon/rollupmon/clock"
	"github.com/rollupmon/rollupmon/testlog"
	"github.com/rollupmon/rollupmon/types"
)

func setupMonitor(t *testing.T) (*Monitor, *clock.DeterministicClock) {
	cl := clock.NewDeterministicClock(time.Unix(1700000000, 0))
	m := NewMonitor(testlog.Logger(t, log.LevelDebug), DefaultConfig(), cl)
	return m, cl
}

func batchEvent(rollup string) *types.RollupEvent {
	return &types.RollupEvent{
		Rollup:      rollup,
		EventType:   "BatchDelivered",
		BlockNumber: 12345,
		TxHash:      "0xabc",
		BatchNumber: "100",
	}
}

func TestStatusDisconnectedWithoutEvents(t *testing.T) {
	m, _ := setupMonitor(t)
	require.Equal(t, types.HealthDisconnected, m.Status("arbitrum"))
	require.Equal(t, types.HealthDisconnected, m.Status("starknet"))
}

func TestRecordEventMakesHealthy(t *testing.T) {
	m, _ := setupMonitor(t)
	m.RecordEvent(batchEvent("arbitrum"))
	require.Equal(t, types.HealthHealthy, m.Status("arbitrum"))
}

func TestRecordEventCategorySets(t *testing.T) {
	m, _ := setupMonitor(t)

	for _, eventType := range []string{"ProofSubmitted", "ProofVerified", "AssertionCreated", "AssertionConfirmed"} {
		m.RecordEvent(&types.RollupEvent{Rollup: "arbitrum", EventType: eventType})
	}
	result := m.CheckHealth("arbitrum")
	require.NotNil(t, result.LastEventAgeSecs)
	require.NotNil(t, result.LastProofAgeSecs)
	require.Nil(t, result.LastBatchAgeSecs, "proof events must not refresh the batch timestamp")

	m.RecordEvent(&types.RollupEvent{Rollup: "starknet", EventType: "StateUpdate"})
	result = m.CheckHealth("starknet")
	require.NotNil(t, result.LastBatchAgeSecs)
	require.Nil(t, result.LastProofAgeSecs)

	// unknown category bumps only the any-event timestamp
	m.RecordEvent(&types.RollupEvent{Rollup: "base", EventType: "MessageSent"})
	result = m.CheckHealth("base")
	require.NotNil(t, result.LastEventAgeSecs)
	require.Nil(t, result.LastBatchAgeSecs)
	require.Nil(t, result.LastProofAgeSecs)
}

func TestClassificationFollowsSilence(t *testing.T) {
	m, cl := setupMonitor(t)
	thresholds := m.cfg.ThresholdsFor("arbitrum")

	m.RecordEvent(batchEvent("arbitrum"))
	require.Equal(t, types.HealthHealthy, m.CheckHealth("arbitrum").Status)

	// just past the delayed threshold
	cl.AdvanceTime(time.Duration(thresholds.DelayedThresholdSecs+1) * time.Second)
	require.Equal(t, types.HealthDelayed, m.CheckHealth("arbitrum").Status)

	// and past the halted threshold
	cl.AdvanceTime(time.Duration(thresholds.HaltedThresholdSecs-thresholds.DelayedThresholdSecs) * time.Second)
	require.Equal(t, types.HealthHalted, m.CheckHealth("arbitrum").Status)

	// a fresh event recovers immediately
	m.RecordEvent(batchEvent("arbitrum"))
	require.Equal(t, types.HealthHealthy, m.CheckHealth("arbitrum").Status)
}

func TestCheckHealthNoEvents(t *testing.T) {
	m, _ := setupMonitor(t)
	result := m.CheckHealth("arbitrum")
	require.Equal(t, types.HealthDisconnected, result.Status)
	require.Contains(t, result.Issues, "No events received yet")
	require.Nil(t, result.LastEventAgeSecs)
	require.Nil(t, result.LastBatchAgeSecs)
	require.Nil(t, result.LastProofAgeSecs)
}

func TestCheckHealthAges(t *testing.T) {
	m, cl := setupMonitor(t)
	m.RecordEvent(batchEvent("arbitrum"))
	cl.AdvanceTime(42 * time.Second)

	result := m.CheckHealth("arbitrum")
	require.Equal(t, types.HealthHealthy, result.Status)
	require.EqualValues(t, 42, *result.LastEventAgeSecs)
	require.EqualValues(t, 42, *result.LastBatchAgeSecs)
	require.Nil(t, result.LastProofAgeSecs)
	require.Empty(t, result.Issues)
}

func TestCadenceIssuesDoNotChangeClassification(t *testing.T) {
	m, cl := setupMonitor(t)
	thresholds := m.cfg.ThresholdsFor("arbitrum")

	m.RecordEvent(batchEvent("arbitrum"))
	// past the batch cadence but inside the delayed threshold
	cl.AdvanceTime(time.Duration(thresholds.BatchCadenceSecs+10) * time.Second)

	result := m.CheckHealth("arbitrum")
	require.Equal(t, types.HealthHealthy, result.Status, "missed cadence alone must not degrade the classification")
	require.Len(t, result.Issues, 1)
	require.Contains(t, result.Issues[0], "No batch for")
}

func TestEvaluateAllCoversEveryKnownRollup(t *testing.T) {
	m, _ := setupMonitor(t)
	m.RecordEvent(batchEvent("arbitrum"))

	results := m.EvaluateAll()
	require.Len(t, results, len(types.KnownRollups))

	byRollup := make(map[string]types.HealthCheckResult, len(results))
	for _, r := range results {
		byRollup[r.Rollup] = r
	}
	require.Equal(t, types.HealthHealthy, byRollup["arbitrum"].Status)
	for _, rollup := range []string{"base", "optimism", "starknet", "zksync"} {
		require.Equal(t, types.HealthDisconnected, byRollup[rollup].Status, rollup)
	}
}

func TestPerRollupThresholds(t *testing.T) {
	m, cl := setupMonitor(t)
	m.RecordEvent(&types.RollupEvent{Rollup: "arbitrum", EventType: "BatchDelivered"})
	m.RecordEvent(&types.RollupEvent{Rollup: "starknet", EventType: "StateUpdate"})

	// 1h of silence: past arbitrum's halted threshold (30m) but inside
	// starknet's delayed threshold (2h)
	cl.AdvanceTime(time.Hour)
	require.Equal(t, types.HealthHalted, m.CheckHealth("arbitrum").Status)
	require.Equal(t, types.HealthHealthy, m.CheckHealth("starknet").Status)
}

func TestSequencerDowntimeTracking(t *testing.T) {
	m, _ := setupMonitor(t)
	require.Zero(t, m.SequencerDowntime("optimism"))

	m.RecordSequencerDowntime("optimism", 95)
	require.EqualValues(t, 95, m.SequencerDowntime("optimism"))
	require.Contains(t, m.CheckHealth("optimism").Issues, "Sequencer downtime: 95 seconds")
	// downtime tracking alone must not make an event-less rollup look alive
	require.Equal(t, types.HealthDisconnected, m.Status("optimism"))

	m.RecordSequencerActivity("optimism")
	require.Zero(t, m.SequencerDowntime("optimism"))
	require.NotContains(t, m.CheckHealth("optimism").Issues, "Sequencer downtime: 95 seconds")
}
