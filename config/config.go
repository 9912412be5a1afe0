// Package config assembles and validates the full service configuration
// from CLI flags.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/rollupmon/rollupmon/chains"
	"github.com/rollupmon/rollupmon/flags"
	"github.com/rollupmon/rollupmon/retry"
)

// SequencerEndpoint configures one L2 liveness poller. A rollup's poller
// only runs when its RPC URL is set.
type SequencerEndpoint struct {
	RPCURL       string
	PollInterval time.Duration
}

type Config struct {
	// L1WSURL is the websocket endpoint all contract watchers share.
	L1WSURL string
	// Contracts selects which rollups get L1 watchers; nil entries are
	// disabled.
	Contracts chains.Contracts
	Retry     retry.Config

	Sequencers        map[string]SequencerEndpoint
	DowntimeThreshold time.Duration

	BroadcastCapacity int

	HealthCheckInterval time.Duration
	// HealthConfigPath optionally points at a TOML threshold override file.
	HealthConfigPath string

	HTTPHost string
	HTTPPort int

	MetricsEnabled bool
	MetricsHost    string
	MetricsPort    int

	LogLevel string
}

// NewConfig reads every flag into a Config. Address parsing fails fast
// here rather than at watcher start.
func NewConfig(ctx *cli.Context) (*Config, error) {
	contracts, err := contractsFromFlags(ctx)
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		L1WSURL:   ctx.String(flags.L1WSURLFlag.Name),
		Contracts: contracts,
		Retry: retry.Config{
			MaxRetries:   ctx.Int(flags.ReconnectMaxRetriesFlag.Name),
			BaseBackoff:  ctx.Duration(flags.ReconnectBaseBackoffFlag.Name),
			MaxBackoff:   ctx.Duration(flags.ReconnectMaxBackoffFlag.Name),
			StaleTimeout: ctx.Duration(flags.StaleTimeoutFlag.Name),
		},
		Sequencers:          sequencersFromFlags(ctx),
		DowntimeThreshold:   ctx.Duration(flags.SequencerDowntimeThresholdFlag.Name),
		BroadcastCapacity:   ctx.Int(flags.BroadcastCapacityFlag.Name),
		HealthCheckInterval: ctx.Duration(flags.HealthCheckIntervalFlag.Name),
		HealthConfigPath:    ctx.String(flags.HealthConfigFlag.Name),
		HTTPHost:            ctx.String(flags.HTTPHostFlag.Name),
		HTTPPort:            ctx.Int(flags.HTTPPortFlag.Name),
		MetricsEnabled:      ctx.Bool(flags.MetricsEnabledFlag.Name),
		MetricsHost:         ctx.String(flags.MetricsHostFlag.Name),
		MetricsPort:         ctx.Int(flags.MetricsPortFlag.Name),
		LogLevel:            ctx.String(flags.LogLevelFlag.Name),
	}
	return cfg, nil
}

func contractsFromFlags(ctx *cli.Context) (chains.Contracts, error) {
	var contracts chains.Contracts
	if ctx.IsSet(flags.ArbitrumInboxFlag.Name) || ctx.IsSet(flags.ArbitrumRollupCoreFlag.Name) {
		inbox, err := parseAddress(ctx, flags.ArbitrumInboxFlag.Name)
		if err != nil {
			return contracts, err
		}
		core, err := parseAddress(ctx, flags.ArbitrumRollupCoreFlag.Name)
		if err != nil {
			return contracts, err
		}
		contracts.Arbitrum = &chains.ArbitrumContracts{SequencerInbox: inbox, RollupCore: core}
	}
	if ctx.IsSet(flags.BaseDisputeGameFactoryFlag.Name) || ctx.IsSet(flags.BasePortalFlag.Name) {
		factory, err := parseAddress(ctx, flags.BaseDisputeGameFactoryFlag.Name)
		if err != nil {
			return contracts, err
		}
		portal, err := parseAddress(ctx, flags.BasePortalFlag.Name)
		if err != nil {
			return contracts, err
		}
		contracts.Base = &chains.OPStackContracts{DisputeGameFactory: factory, Portal: portal}
	}
	if ctx.IsSet(flags.OptimismDisputeGameFactoryFlag.Name) || ctx.IsSet(flags.OptimismPortalFlag.Name) {
		factory, err := parseAddress(ctx, flags.OptimismDisputeGameFactoryFlag.Name)
		if err != nil {
			return contracts, err
		}
		portal, err := parseAddress(ctx, flags.OptimismPortalFlag.Name)
		if err != nil {
			return contracts, err
		}
		contracts.Optimism = &chains.OPStackContracts{DisputeGameFactory: factory, Portal: portal}
	}
	if ctx.IsSet(flags.StarknetCoreFlag.Name) {
		core, err := parseAddress(ctx, flags.StarknetCoreFlag.Name)
		if err != nil {
			return contracts, err
		}
		contracts.Starknet = &chains.StarknetContracts{Core: core}
	}
	if ctx.IsSet(flags.ZkSyncDiamondFlag.Name) {
		diamond, err := parseAddress(ctx, flags.ZkSyncDiamondFlag.Name)
		if err != nil {
			return contracts, err
		}
		contracts.ZkSync = &chains.ZkSyncContracts{DiamondProxy: diamond}
	}
	return contracts, nil
}

func parseAddress(ctx *cli.Context, flagName string) (common.Address, error) {
	raw := ctx.String(flagName)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("flag %s: invalid address %q", flagName, raw)
	}
	return common.HexToAddress(raw), nil
}

func sequencersFromFlags(ctx *cli.Context) map[string]SequencerEndpoint {
	endpoints := make(map[string]SequencerEndpoint)
	add := func(rollup string, rpcFlag *cli.StringFlag, intervalFlag *cli.DurationFlag) {
		url := ctx.String(rpcFlag.Name)
		if url == "" {
			return
		}
		endpoints[rollup] = SequencerEndpoint{
			RPCURL:       url,
			PollInterval: ctx.Duration(intervalFlag.Name),
		}
	}
	add("arbitrum", flags.ArbitrumL2RPCFlag, flags.ArbitrumPollIntervalFlag)
	add("base", flags.BaseL2RPCFlag, flags.BasePollIntervalFlag)
	add("optimism", flags.OptimismL2RPCFlag, flags.OptimismPollIntervalFlag)
	add("starknet", flags.StarknetL2RPCFlag, flags.StarknetPollIntervalFlag)
	add("zksync", flags.ZkSyncL2RPCFlag, flags.ZkSyncPollIntervalFlag)
	return endpoints
}

func (c *Config) Check() error {
	if c.Contracts.Enabled() && c.L1WSURL == "" {
		return errors.New("l1 websocket URL is required when contract watchers are configured")
	}
	if c.Retry.MaxRetries <= 0 {
		return errors.New("reconnect max retries must be positive")
	}
	if c.Retry.BaseBackoff <= 0 || c.Retry.MaxBackoff < c.Retry.BaseBackoff {
		return errors.New("reconnect backoff bounds are invalid")
	}
	if c.Retry.StaleTimeout <= 0 {
		return errors.New("stale timeout must be positive")
	}
	if c.BroadcastCapacity <= 0 {
		return errors.New("broadcast capacity must be positive")
	}
	if c.HealthCheckInterval <= 0 {
		return errors.New("health check interval must be positive")
	}
	if c.DowntimeThreshold <= 0 {
		return errors.New("sequencer downtime threshold must be positive")
	}
	for rollup, ep := range c.Sequencers {
		if ep.PollInterval <= 0 {
			return fmt.Errorf("sequencer %s: poll interval must be positive", rollup)
		}
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port %d", c.HTTPPort)
	}
	if c.MetricsEnabled && (c.MetricsPort < 0 || c.MetricsPort > 65535) {
		return fmt.Errorf("invalid metrics port %d", c.MetricsPort)
	}
	return nil
}

func (c *Config) HTTPAddr() string {
	return net.JoinHostPort(c.HTTPHost, strconv.Itoa(c.HTTPPort))
}

func (c *Config) MetricsAddr() string {
	return net.JoinHostPort(c.MetricsHost, strconv.Itoa(c.MetricsPort))
}
