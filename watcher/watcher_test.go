package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/rollupmon/rollupmon/broadcast"
	"github.com/rollupmon/rollupmon/clock"
	"github.com/rollupmon/rollupmon/health"
	"github.com/rollupmon/rollupmon/metrics"
	"github.com/rollupmon/rollupmon/retry"
	"github.com/rollupmon/rollupmon/store"
	"github.com/rollupmon/rollupmon/testlog"
	"github.com/rollupmon/rollupmon/types"
)

type fakeSource struct {
	logs         chan ethtypes.Log
	errs         chan error
	unsubscribed atomic.Bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		logs: make(chan ethtypes.Log, 16),
		errs: make(chan error, 1),
	}
}

func (s *fakeSource) Logs() <-chan ethtypes.Log { return s.logs }
func (s *fakeSource) Err() <-chan error         { return s.errs }
func (s *fakeSource) Unsubscribe()              { s.unsubscribed.Store(true) }

type watcherHarness struct {
	store       *store.Store
	health      *health.Monitor
	broadcaster *broadcast.Broadcaster
	clock       clock.Clock
	logger      log.Logger
}

func newHarness(t *testing.T, cl clock.Clock) *watcherHarness {
	logger := testlog.Logger(t, log.LevelDebug)
	return &watcherHarness{
		store:       store.New(logger),
		health:      health.NewMonitor(logger, health.DefaultConfig(), cl),
		broadcaster: broadcast.New(logger, 16),
		clock:       cl,
		logger:      logger,
	}
}

func (h *watcherHarness) watcher(desc Descriptor, retryCfg retry.Config) *Watcher {
	return New(h.logger, h.clock, retryCfg, h.store, h.health, h.broadcaster, metrics.NoopMetrics, desc)
}

func testRetryConfig() retry.Config {
	return retry.Config{
		MaxRetries:   3,
		BaseBackoff:  time.Millisecond,
		MaxBackoff:   5 * time.Millisecond,
		StaleTimeout: time.Hour,
	}
}

func batchDescriptor(subscribe SubscribeFn) Descriptor {
	return Descriptor{
		Rollup:    "arbitrum",
		Stream:    "SequencerBatchDelivered",
		Category:  "BatchDelivered",
		Subscribe: subscribe,
		Decode: func(lg ethtypes.Log) (string, error) {
			return fmt.Sprintf("%d", lg.BlockNumber), nil
		},
		Apply: func(st *types.RollupStatus, id, txHash string) {
			st.LatestBatch = id
			st.LatestBatchTx = txHash
		},
	}
}

func testLog(block uint64) ethtypes.Log {
	return ethtypes.Log{
		BlockNumber: block,
		TxHash:      common.HexToHash("0xdeadbeef"),
	}
}

func TestWatcherDeliversEvents(t *testing.T) {
	h := newHarness(t, clock.SystemClock)
	src := newFakeSource()
	w := h.watcher(batchDescriptor(func(ctx context.Context) (Source, error) {
		return src, nil
	}), testRetryConfig())

	sub := h.broadcaster.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	src.logs <- testLog(77)

	select {
	case ev := <-sub.Events():
		require.Equal(t, "arbitrum", ev.Rollup)
		require.Equal(t, "BatchDelivered", ev.EventType)
		require.Equal(t, "77", ev.BatchNumber)
		require.EqualValues(t, 77, ev.BlockNumber)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not broadcast")
	}

	st := h.store.GetStatus("arbitrum")
	require.Equal(t, "77", st.LatestBatch)
	require.NotZero(t, st.LastUpdated)
	require.Equal(t, types.HealthHealthy, h.health.Status("arbitrum"))

	cancel()
	require.NoError(t, <-done)
	require.True(t, src.unsubscribed.Load())
}

func TestWatcherReconnectsOnStreamError(t *testing.T) {
	h := newHarness(t, clock.SystemClock)
	var subscribes atomic.Int32
	first := newFakeSource()
	second := newFakeSource()
	w := h.watcher(batchDescriptor(func(ctx context.Context) (Source, error) {
		if subscribes.Add(1) == 1 {
			return first, nil
		}
		return second, nil
	}), testRetryConfig())

	sub := h.broadcaster.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	first.errs <- errors.New("connection reset")
	second.logs <- testLog(5)

	select {
	case ev := <-sub.Events():
		require.Equal(t, "5", ev.BatchNumber)
	case <-time.After(5 * time.Second):
		t.Fatal("no event after reconnect")
	}
	require.GreaterOrEqual(t, subscribes.Load(), int32(2))
	require.True(t, first.unsubscribed.Load())

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherReconnectsOnStreamClose(t *testing.T) {
	h := newHarness(t, clock.SystemClock)
	var subscribes atomic.Int32
	w := h.watcher(batchDescriptor(func(ctx context.Context) (Source, error) {
		src := newFakeSource()
		if subscribes.Add(1) == 1 {
			close(src.logs)
		} else {
			src.logs <- testLog(9)
		}
		return src, nil
	}), testRetryConfig())

	sub := h.broadcaster.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case ev := <-sub.Events():
		require.Equal(t, "9", ev.BatchNumber)
	case <-time.After(5 * time.Second):
		t.Fatal("no event after stream close")
	}
	require.GreaterOrEqual(t, subscribes.Load(), int32(2))

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherReconnectsOnStaleTimeout(t *testing.T) {
	cl := clock.NewDeterministicClock(time.Unix(1700000000, 0))
	h := newHarness(t, cl)
	cfg := testRetryConfig()
	cfg.StaleTimeout = 10 * time.Minute

	var subscribes atomic.Int32
	w := h.watcher(batchDescriptor(func(ctx context.Context) (Source, error) {
		subscribes.Add(1)
		return newFakeSource(), nil
	}), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// let the first subscription open, then advance past the stale timeout.
	// Advancing inside the poll loop avoids racing the timer registration.
	require.Eventually(t, func() bool {
		return subscribes.Load() == 1
	}, 5*time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		cl.AdvanceTime(cfg.StaleTimeout + time.Second)
		return subscribes.Load() >= 2
	}, 5*time.Second, 5*time.Millisecond, "stale timeout must force a fresh subscription")

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherStopsAfterMaxRetries(t *testing.T) {
	h := newHarness(t, clock.SystemClock)
	var subscribes atomic.Int32
	w := h.watcher(batchDescriptor(func(ctx context.Context) (Source, error) {
		subscribes.Add(1)
		return nil, errors.New("endpoint down")
	}), testRetryConfig())

	err := w.Run(context.Background())
	require.ErrorIs(t, err, retry.ErrMaxRetriesExceeded)
	require.EqualValues(t, 3, subscribes.Load())
}

func TestWatcherReconnectsOnDecodeError(t *testing.T) {
	h := newHarness(t, clock.SystemClock)
	var subscribes atomic.Int32
	desc := batchDescriptor(func(ctx context.Context) (Source, error) {
		src := newFakeSource()
		src.logs <- testLog(uint64(subscribes.Add(1)))
		return src, nil
	})
	goodDecode := desc.Decode
	desc.Decode = func(lg ethtypes.Log) (string, error) {
		if lg.BlockNumber == 1 {
			return "", errors.New("short topics")
		}
		return goodDecode(lg)
	}
	w := h.watcher(desc, testRetryConfig())

	sub := h.broadcaster.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case ev := <-sub.Events():
		require.Equal(t, "2", ev.BatchNumber, "undecodable event must be skipped via reconnect")
	case <-time.After(5 * time.Second):
		t.Fatal("no event after decode failure")
	}

	cancel()
	require.NoError(t, <-done)
}
