// Package sequencer polls L2 execution layers directly for chain-tip
// liveness, independent of the L1 settlement watchers. Each poller owns
// one rollup's SequencerStatus entry outright.
package sequencer

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/rollupmon/rollupmon/clock"
	"github.com/rollupmon/rollupmon/health"
	"github.com/rollupmon/rollupmon/metrics"
	"github.com/rollupmon/rollupmon/store"
	"github.com/rollupmon/rollupmon/types"
)

// Tip is one chain-tip observation. A zero Timestamp means the node did
// not report one; the poll time is used instead.
type Tip struct {
	Number    uint64
	Timestamp uint64
}

// TipFetcher reads the latest block of one L2 chain. Returning (nil, nil)
// means the node answered but had no block; both that and an error are
// treated as downtime signals.
type TipFetcher interface {
	FetchTip(ctx context.Context) (*Tip, error)
}

type Config struct {
	Rollup string
	// PollInterval is the cadence of tip fetches.
	PollInterval time.Duration
	// DowntimeThreshold is the maximum tip age before the chain counts
	// as not producing.
	DowntimeThreshold time.Duration
}

type Poller struct {
	log     log.Logger
	clock   clock.Clock
	cfg     Config
	fetcher TipFetcher
	store   *store.Store
	health  *health.Monitor
	metrics metrics.Metricer

	prevBlock    *uint64
	prevPollTime *uint64
}

func New(logger log.Logger, cl clock.Clock, cfg Config, fetcher TipFetcher,
	st *store.Store, hm *health.Monitor, m metrics.Metricer) *Poller {
	return &Poller{
		log:     logger.New("rollup", cfg.Rollup),
		clock:   cl,
		cfg:     cfg,
		fetcher: fetcher,
		store:   st,
		health:  hm,
		metrics: m,
	}
}

// Run blocks until the context is cancelled, fetching the chain tip once
// per interval.
func (p *Poller) Run(ctx context.Context) {
	p.log.Info("Starting sequencer poller", "interval", p.cfg.PollInterval)
	ticker := p.clock.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.Ch():
			p.poll(ctx)
		case <-ctx.Done():
			p.log.Info("Sequencer poller shutting down")
			return
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	now := uint64(p.clock.Now().Unix())

	tip, err := p.fetcher.FetchTip(ctx)
	if err != nil {
		p.log.Warn("Failed to fetch chain tip", "err", err)
		p.recordDowntime(now)
		return
	}
	if tip == nil {
		p.log.Warn("Chain tip query returned no block")
		p.recordDowntime(now)
		return
	}

	ts := tip.Timestamp
	if ts == 0 {
		ts = now
	}

	// Rate only moves on strict forward progress; a stalled chain keeps
	// showing its last-known rate while is_producing flags the stall.
	var bps *float64
	if p.prevBlock != nil && p.prevPollTime != nil && tip.Number > *p.prevBlock && now > *p.prevPollTime {
		rate := float64(tip.Number-*p.prevBlock) / float64(now-*p.prevPollTime)
		bps = &rate
	}

	var secondsSinceLastBlock uint64
	if now > ts {
		secondsSinceLastBlock = now - ts
	}
	isProducing := secondsSinceLastBlock < uint64(p.cfg.DowntimeThreshold.Seconds())

	blockNumber, blockTimestamp, pollTime, age := tip.Number, ts, now, secondsSinceLastBlock
	p.store.UpdateSequencerStatus(p.cfg.Rollup, func(s *types.SequencerStatus) {
		s.LatestBlock = &blockNumber
		s.LatestBlockTimestamp = &blockTimestamp
		if bps != nil {
			s.BlocksPerSecond = bps
		}
		s.IsProducing = isProducing
		s.SecondsSinceLastBlock = &age
		s.LastPolled = &pollTime
	})

	if isProducing {
		p.health.RecordSequencerActivity(p.cfg.Rollup)
	} else {
		p.health.RecordSequencerDowntime(p.cfg.Rollup, secondsSinceLastBlock)
	}
	p.metrics.RecordSequencerBlock(p.cfg.Rollup, tip.Number)
	p.metrics.RecordSequencerProducing(p.cfg.Rollup, isProducing)

	p.log.Debug("Sequencer poll", "block", tip.Number, "timestamp", ts,
		"bps", bps, "producing", isProducing)

	p.prevBlock = &blockNumber
	p.prevPollTime = &pollTime
}

// recordDowntime handles the no-block and fetch-error paths: the chain is
// marked not producing but the last-known tip fields are left alone.
func (p *Poller) recordDowntime(now uint64) {
	pollTime := now
	p.store.UpdateSequencerStatus(p.cfg.Rollup, func(s *types.SequencerStatus) {
		s.IsProducing = false
		s.LastPolled = &pollTime
	})
	p.health.RecordSequencerDowntime(p.cfg.Rollup, 0)
	p.metrics.RecordSequencerProducing(p.cfg.Rollup, false)
}
