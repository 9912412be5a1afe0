// Package watcher runs the per-(rollup, category) event stream loop:
// connect with retry, stream decoded events into the status store, the
// health monitor and the broadcaster, and reconnect on any stream error,
// end-of-stream or stale silence.
package watcher

import (
	"context"
	"errors"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/rollupmon/rollupmon/broadcast"
	"github.com/rollupmon/rollupmon/clock"
	"github.com/rollupmon/rollupmon/health"
	"github.com/rollupmon/rollupmon/metrics"
	"github.com/rollupmon/rollupmon/retry"
	"github.com/rollupmon/rollupmon/store"
	"github.com/rollupmon/rollupmon/types"
)

// Source is one live log subscription. Implementations wrap an underlying
// transport (a websocket log filter in production, a channel pair in tests).
type Source interface {
	Logs() <-chan ethtypes.Log
	// Err yields at most one error, after which the source is dead.
	Err() <-chan error
	Unsubscribe()
}

// SubscribeFn opens a fresh subscription from the latest point forward.
type SubscribeFn func(ctx context.Context) (Source, error)

// Descriptor defines one (rollup, category) stream: how to subscribe, how
// to pull the category-specific identifier out of a raw log, and which
// status fields that identifier lands in.
type Descriptor struct {
	Rollup   string
	Stream   string // on-chain event name, for logging
	Category string // event category tag, e.g. "BatchDelivered"

	Subscribe SubscribeFn
	Decode    func(lg ethtypes.Log) (string, error)
	Apply     func(st *types.RollupStatus, id string, txHash string)
}

var (
	errStreamEnded = errors.New("event stream ended")
	errStreamStale = errors.New("event stream stale")
)

type Watcher struct {
	log      log.Logger
	clock    clock.Clock
	retryCfg retry.Config

	store       *store.Store
	health      *health.Monitor
	broadcaster *broadcast.Broadcaster
	metrics     metrics.Metricer

	desc Descriptor
}

func New(logger log.Logger, cl clock.Clock, retryCfg retry.Config,
	st *store.Store, hm *health.Monitor, b *broadcast.Broadcaster, m metrics.Metricer, desc Descriptor) *Watcher {
	return &Watcher{
		log:         logger.New("rollup", desc.Rollup, "stream", desc.Stream),
		clock:       cl,
		retryCfg:    retryCfg,
		store:       st,
		health:      hm,
		broadcaster: b,
		metrics:     m,
		desc:        desc,
	}
}

// Run blocks until the context is cancelled (returns nil) or the reconnect
// budget is exhausted (returns retry.ErrMaxRetriesExceeded). Each pass
// opens a fresh subscription, so reconnection after a mid-stream failure
// starts the backoff sequence over.
func (w *Watcher) Run(ctx context.Context) error {
	w.log.Info("Starting event watcher")
	for {
		if ctx.Err() != nil {
			w.log.Info("Event watcher cancelled")
			return nil
		}

		src, err := retry.ConnectWithRetry(ctx, w.log, w.retryCfg, w.desc.Subscribe)
		if errors.Is(err, retry.ErrMaxRetriesExceeded) {
			w.log.Error("Event watcher giving up", "err", err)
			return err
		} else if err != nil {
			w.log.Info("Event watcher cancelled")
			return nil
		}

		err = w.stream(ctx, src)
		src.Unsubscribe()
		switch {
		case ctx.Err() != nil:
			w.log.Info("Event watcher cancelled")
			return nil
		default:
		}
		w.metrics.RecordReconnect(w.desc.Rollup, w.desc.Stream)
		switch {
		case errors.Is(err, errStreamStale):
			w.log.Warn("No events within stale timeout, reconnecting", "timeout", w.retryCfg.StaleTimeout)
		case errors.Is(err, errStreamEnded):
			w.log.Warn("Event stream closed, reconnecting")
		default:
			w.log.Warn("Event stream failed, reconnecting", "err", err)
		}
	}
}

// stream consumes one live subscription until it fails, closes, goes
// stale or the context is cancelled.
func (w *Watcher) stream(ctx context.Context, src Source) error {
	stale := w.clock.NewTimer(w.retryCfg.StaleTimeout)
	defer stale.Stop()

	for {
		select {
		case lg, ok := <-src.Logs():
			if !ok {
				return errStreamEnded
			}
			if err := w.handleLog(lg); err != nil {
				return err
			}
			stale.Stop()
			stale.Reset(w.retryCfg.StaleTimeout)
		case err := <-src.Err():
			if err == nil {
				return errStreamEnded
			}
			return err
		case <-stale.Ch():
			return errStreamStale
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Watcher) handleLog(lg ethtypes.Log) error {
	id, err := w.desc.Decode(lg)
	if err != nil {
		w.log.Warn("Failed to decode event", "block", lg.BlockNumber, "tx", lg.TxHash, "err", err)
		return err
	}

	now := uint64(w.clock.Now().Unix())
	txHash := lg.TxHash.Hex()
	ev := types.RollupEvent{
		Rollup:      w.desc.Rollup,
		EventType:   w.desc.Category,
		BlockNumber: lg.BlockNumber,
		TxHash:      txHash,
		BatchNumber: id,
		Timestamp:   now,
	}

	w.store.UpdateStatus(w.desc.Rollup, func(st *types.RollupStatus) {
		w.desc.Apply(st, id, txHash)
		st.LastUpdated = now
	})
	w.health.RecordEvent(&ev)
	w.broadcaster.Publish(ev)
	w.metrics.RecordEvent(&ev)
	w.log.Info("Observed settlement event", "category", w.desc.Category, "id", id, "block", lg.BlockNumber)
	return nil
}
