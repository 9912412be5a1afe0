// Package monitor assembles the full service: L1 event watchers, L2
// sequencer pollers, the health monitor, and the API and metrics servers.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"

	"github.com/rollupmon/rollupmon/api"
	"github.com/rollupmon/rollupmon/broadcast"
	"github.com/rollupmon/rollupmon/chains"
	"github.com/rollupmon/rollupmon/clock"
	"github.com/rollupmon/rollupmon/config"
	"github.com/rollupmon/rollupmon/health"
	"github.com/rollupmon/rollupmon/metrics"
	"github.com/rollupmon/rollupmon/sequencer"
	"github.com/rollupmon/rollupmon/store"
	"github.com/rollupmon/rollupmon/types"
	"github.com/rollupmon/rollupmon/version"
	"github.com/rollupmon/rollupmon/watcher"
)

type Service struct {
	log log.Logger
	cfg *config.Config

	metrics    metrics.Metricer
	metricsSrv *metrics.Server

	l1Client  *ethclient.Client
	l2Clients []*ethclient.Client

	store       *store.Store
	broadcaster *broadcast.Broadcaster
	health      *health.Monitor

	watchers []*watcher.Watcher
	pollers  []*sequencer.Poller

	apiSrv *api.Server

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped atomic.Bool
}

// NewService wires the service from config. Nothing runs until Start.
func NewService(ctx context.Context, logger log.Logger, cfg *config.Config) (*Service, error) {
	if err := cfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	s := &Service{log: logger, cfg: cfg}
	if err := s.init(ctx); err != nil {
		// upstream of any start, so close whatever init already opened
		return nil, errors.Join(err, s.Stop(ctx))
	}
	return s, nil
}

func (s *Service) init(ctx context.Context) error {
	s.initMetrics()

	healthCfg, err := health.LoadConfig(s.cfg.HealthConfigPath)
	if err != nil {
		return err
	}
	healthCfg.CheckInterval = s.cfg.HealthCheckInterval

	s.store = store.New(s.log)
	s.broadcaster = broadcast.New(s.log, s.cfg.BroadcastCapacity)
	s.health = health.NewMonitor(s.log, healthCfg, clock.SystemClock)
	s.health.SetEvaluationHook(func(results []types.HealthCheckResult) {
		for _, res := range results {
			s.metrics.RecordHealthStatus(res.Rollup, res.Status)
		}
		s.metrics.RecordDroppedEvents(s.broadcaster.Dropped())
		s.metrics.RecordSubscribers(s.broadcaster.SubscriberCount())
	})

	if err := s.initWatchers(ctx); err != nil {
		return err
	}
	if err := s.initPollers(ctx); err != nil {
		return err
	}

	s.apiSrv = api.NewServer(s.log, s.store, s.health, s.broadcaster)
	return nil
}

func (s *Service) initMetrics() {
	if !s.cfg.MetricsEnabled {
		s.metrics = metrics.NoopMetrics
		return
	}
	s.metrics = metrics.NewMetrics()
}

func (s *Service) initWatchers(ctx context.Context) error {
	if !s.cfg.Contracts.Enabled() {
		s.log.Warn("No contract watchers configured, settlement events will not be tracked")
		return nil
	}
	client, err := ethclient.DialContext(ctx, s.cfg.L1WSURL)
	if err != nil {
		return fmt.Errorf("dial L1 websocket: %w", err)
	}
	s.l1Client = client

	for _, desc := range chains.Descriptors(client, s.cfg.Contracts) {
		s.watchers = append(s.watchers, watcher.New(
			s.log, clock.SystemClock, s.cfg.Retry,
			s.store, s.health, s.broadcaster, s.metrics, desc))
	}
	return nil
}

func (s *Service) initPollers(ctx context.Context) error {
	for rollup, ep := range s.cfg.Sequencers {
		var fetcher sequencer.TipFetcher
		if rollup == "starknet" {
			fetcher = sequencer.NewStarknetTipFetcher(ep.RPCURL)
		} else {
			client, err := ethclient.DialContext(ctx, ep.RPCURL)
			if err != nil {
				return fmt.Errorf("dial %s L2 rpc: %w", rollup, err)
			}
			s.l2Clients = append(s.l2Clients, client)
			fetcher = sequencer.NewEVMTipFetcher(client)
		}
		s.pollers = append(s.pollers, sequencer.New(
			s.log, clock.SystemClock,
			sequencer.Config{
				Rollup:            rollup,
				PollInterval:      ep.PollInterval,
				DowntimeThreshold: s.cfg.DowntimeThreshold,
			},
			fetcher, s.store, s.health, s.metrics))
	}
	return nil
}

// Start launches every component. Watchers that exhaust their reconnect
// budget log and exit individually; the rest of the service keeps running.
func (s *Service) Start(ctx context.Context) error {
	s.log.Info("Starting rollup monitor", "version", version.SimpleWithMeta,
		"watchers", len(s.watchers), "pollers", len(s.pollers))

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if s.cfg.MetricsEnabled {
		m := s.metrics.(*metrics.Metrics)
		srv, err := metrics.StartServer(m.Registry(), s.cfg.MetricsAddr())
		if err != nil {
			cancel()
			return fmt.Errorf("start metrics server: %w", err)
		}
		s.metricsSrv = srv
		s.log.Info("Metrics server started", "addr", srv.Addr())
	}

	if err := s.apiSrv.Start(s.cfg.HTTPAddr()); err != nil {
		cancel()
		return fmt.Errorf("start API server: %w", err)
	}

	s.health.StartMonitoring(runCtx)
	for _, w := range s.watchers {
		w := w
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := w.Run(runCtx); err != nil {
				s.log.Error("Event watcher exited", "err", err)
			}
		}()
	}
	for _, p := range s.pollers {
		p := p
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			p.Run(runCtx)
		}()
	}

	s.metrics.RecordInfo(version.SimpleWithMeta)
	s.metrics.RecordUp()
	return nil
}

// Stop shuts everything down in reverse start order. Safe to call on a
// partially-initialized service.
func (s *Service) Stop(ctx context.Context) error {
	if s.stopped.Swap(true) {
		return nil
	}
	s.log.Info("Stopping rollup monitor")

	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	if s.health != nil {
		s.health.StopMonitoring()
	}

	var result error
	if s.apiSrv != nil {
		if err := s.apiSrv.Stop(ctx); err != nil {
			result = errors.Join(result, fmt.Errorf("stop API server: %w", err))
		}
	}
	if s.metricsSrv != nil {
		if err := s.metricsSrv.Stop(ctx); err != nil {
			result = errors.Join(result, fmt.Errorf("stop metrics server: %w", err))
		}
	}
	if s.l1Client != nil {
		s.l1Client.Close()
	}
	for _, client := range s.l2Clients {
		client.Close()
	}
	s.log.Info("Rollup monitor stopped")
	return result
}

// Stopped reports whether Stop has been called.
func (s *Service) Stopped() bool {
	return s.stopped.Load()
}
