package flags

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "ROLLUPMON"

func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	L1WSURLFlag = &cli.StringFlag{
		Name:    "l1.ws",
		Usage:   "WebSocket endpoint of the L1 node the settlement watchers subscribe to",
		EnvVars: prefixEnvVars("L1_WS"),
	}

	// Per-rollup contract addresses. A rollup's watchers only start when
	// all of its addresses are set.
	ArbitrumInboxFlag = &cli.StringFlag{
		Name:    "arbitrum.sequencer-inbox",
		Usage:   "Address of the Arbitrum sequencer inbox contract",
		EnvVars: prefixEnvVars("ARBITRUM_SEQUENCER_INBOX"),
	}
	ArbitrumRollupCoreFlag = &cli.StringFlag{
		Name:    "arbitrum.rollup-core",
		Usage:   "Address of the Arbitrum rollup core contract",
		EnvVars: prefixEnvVars("ARBITRUM_ROLLUP_CORE"),
	}
	BaseDisputeGameFactoryFlag = &cli.StringFlag{
		Name:    "base.dispute-game-factory",
		Usage:   "Address of the Base dispute game factory contract",
		EnvVars: prefixEnvVars("BASE_DISPUTE_GAME_FACTORY"),
	}
	BasePortalFlag = &cli.StringFlag{
		Name:    "base.portal",
		Usage:   "Address of the Base portal contract",
		EnvVars: prefixEnvVars("BASE_PORTAL"),
	}
	OptimismDisputeGameFactoryFlag = &cli.StringFlag{
		Name:    "optimism.dispute-game-factory",
		Usage:   "Address of the Optimism dispute game factory contract",
		EnvVars: prefixEnvVars("OPTIMISM_DISPUTE_GAME_FACTORY"),
	}
	OptimismPortalFlag = &cli.StringFlag{
		Name:    "optimism.portal",
		Usage:   "Address of the Optimism portal contract",
		EnvVars: prefixEnvVars("OPTIMISM_PORTAL"),
	}
	StarknetCoreFlag = &cli.StringFlag{
		Name:    "starknet.core",
		Usage:   "Address of the Starknet core contract",
		EnvVars: prefixEnvVars("STARKNET_CORE"),
	}
	ZkSyncDiamondFlag = &cli.StringFlag{
		Name:    "zksync.diamond",
		Usage:   "Address of the zkSync Era diamond proxy contract",
		EnvVars: prefixEnvVars("ZKSYNC_DIAMOND"),
	}

	// L2 sequencer pollers, enabled per rollup by their RPC URL being set.
	ArbitrumL2RPCFlag = &cli.StringFlag{
		Name:    "arbitrum.l2-rpc",
		Usage:   "HTTP RPC endpoint of the Arbitrum L2 node",
		EnvVars: prefixEnvVars("ARBITRUM_L2_RPC"),
	}
	BaseL2RPCFlag = &cli.StringFlag{
		Name:    "base.l2-rpc",
		Usage:   "HTTP RPC endpoint of the Base L2 node",
		EnvVars: prefixEnvVars("BASE_L2_RPC"),
	}
	OptimismL2RPCFlag = &cli.StringFlag{
		Name:    "optimism.l2-rpc",
		Usage:   "HTTP RPC endpoint of the Optimism L2 node",
		EnvVars: prefixEnvVars("OPTIMISM_L2_RPC"),
	}
	StarknetL2RPCFlag = &cli.StringFlag{
		Name:    "starknet.l2-rpc",
		Usage:   "HTTP RPC endpoint of the Starknet node (Starknet JSON-RPC)",
		EnvVars: prefixEnvVars("STARKNET_L2_RPC"),
	}
	ZkSyncL2RPCFlag = &cli.StringFlag{
		Name:    "zksync.l2-rpc",
		Usage:   "HTTP RPC endpoint of the zkSync Era L2 node",
		EnvVars: prefixEnvVars("ZKSYNC_L2_RPC"),
	}
	ArbitrumPollIntervalFlag = &cli.DurationFlag{
		Name:    "arbitrum.l2-poll-interval",
		Usage:   "Poll interval for the Arbitrum sequencer",
		Value:   2 * time.Second,
		EnvVars: prefixEnvVars("ARBITRUM_L2_POLL_INTERVAL"),
	}
	BasePollIntervalFlag = &cli.DurationFlag{
		Name:    "base.l2-poll-interval",
		Usage:   "Poll interval for the Base sequencer",
		Value:   5 * time.Second,
		EnvVars: prefixEnvVars("BASE_L2_POLL_INTERVAL"),
	}
	OptimismPollIntervalFlag = &cli.DurationFlag{
		Name:    "optimism.l2-poll-interval",
		Usage:   "Poll interval for the Optimism sequencer",
		Value:   5 * time.Second,
		EnvVars: prefixEnvVars("OPTIMISM_L2_POLL_INTERVAL"),
	}
	StarknetPollIntervalFlag = &cli.DurationFlag{
		Name:    "starknet.l2-poll-interval",
		Usage:   "Poll interval for the Starknet sequencer",
		Value:   10 * time.Second,
		EnvVars: prefixEnvVars("STARKNET_L2_POLL_INTERVAL"),
	}
	ZkSyncPollIntervalFlag = &cli.DurationFlag{
		Name:    "zksync.l2-poll-interval",
		Usage:   "Poll interval for the zkSync Era sequencer",
		Value:   5 * time.Second,
		EnvVars: prefixEnvVars("ZKSYNC_L2_POLL_INTERVAL"),
	}
	SequencerDowntimeThresholdFlag = &cli.DurationFlag{
		Name:    "sequencer.downtime-threshold",
		Usage:   "Maximum chain-tip age before a sequencer counts as not producing",
		Value:   30 * time.Second,
		EnvVars: prefixEnvVars("SEQUENCER_DOWNTIME_THRESHOLD"),
	}

	ReconnectMaxRetriesFlag = &cli.IntFlag{
		Name:    "reconnect.max-retries",
		Usage:   "Maximum connection attempts per reconnect before a watcher gives up",
		Value:   10,
		EnvVars: prefixEnvVars("RECONNECT_MAX_RETRIES"),
	}
	ReconnectBaseBackoffFlag = &cli.DurationFlag{
		Name:    "reconnect.base-backoff",
		Usage:   "Backoff after the first failed connection attempt",
		Value:   time.Second,
		EnvVars: prefixEnvVars("RECONNECT_BASE_BACKOFF"),
	}
	ReconnectMaxBackoffFlag = &cli.DurationFlag{
		Name:    "reconnect.max-backoff",
		Usage:   "Cap on the exponential reconnect backoff",
		Value:   60 * time.Second,
		EnvVars: prefixEnvVars("RECONNECT_MAX_BACKOFF"),
	}
	StaleTimeoutFlag = &cli.DurationFlag{
		Name:    "reconnect.stale-timeout",
		Usage:   "Force a reconnect when a live stream delivers no events for this long",
		Value:   10 * time.Minute,
		EnvVars: prefixEnvVars("RECONNECT_STALE_TIMEOUT"),
	}

	BroadcastCapacityFlag = &cli.IntFlag{
		Name:    "broadcast.capacity",
		Usage:   "Per-subscriber event queue depth; the oldest events are shed beyond it",
		Value:   1000,
		EnvVars: prefixEnvVars("BROADCAST_CAPACITY"),
	}

	HealthCheckIntervalFlag = &cli.DurationFlag{
		Name:    "health.check-interval",
		Usage:   "Cadence of the periodic health re-evaluation",
		Value:   time.Minute,
		EnvVars: prefixEnvVars("HEALTH_CHECK_INTERVAL"),
	}
	HealthConfigFlag = &cli.StringFlag{
		Name:    "health.config",
		Usage:   "Optional TOML file with per-rollup health threshold overrides",
		EnvVars: prefixEnvVars("HEALTH_CONFIG"),
	}

	HTTPHostFlag = &cli.StringFlag{
		Name:    "http.host",
		Usage:   "Host the API server binds to",
		Value:   "0.0.0.0",
		EnvVars: prefixEnvVars("HTTP_HOST"),
	}
	HTTPPortFlag = &cli.IntFlag{
		Name:    "http.port",
		Usage:   "Port the API server binds to",
		Value:   8080,
		EnvVars: prefixEnvVars("HTTP_PORT"),
	}

	MetricsEnabledFlag = &cli.BoolFlag{
		Name:    "metrics.enabled",
		Usage:   "Enable the prometheus metrics server",
		EnvVars: prefixEnvVars("METRICS_ENABLED"),
	}
	MetricsHostFlag = &cli.StringFlag{
		Name:    "metrics.host",
		Usage:   "Host the metrics server binds to",
		Value:   "0.0.0.0",
		EnvVars: prefixEnvVars("METRICS_HOST"),
	}
	MetricsPortFlag = &cli.IntFlag{
		Name:    "metrics.port",
		Usage:   "Port the metrics server binds to",
		Value:   7300,
		EnvVars: prefixEnvVars("METRICS_PORT"),
	}

	LogLevelFlag = &cli.StringFlag{
		Name:    "log.level",
		Usage:   "Lowest log level that will be output",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
	}
)

var Flags = []cli.Flag{
	L1WSURLFlag,
	ArbitrumInboxFlag,
	ArbitrumRollupCoreFlag,
	BaseDisputeGameFactoryFlag,
	BasePortalFlag,
	OptimismDisputeGameFactoryFlag,
	OptimismPortalFlag,
	StarknetCoreFlag,
	ZkSyncDiamondFlag,
	ArbitrumL2RPCFlag,
	BaseL2RPCFlag,
	OptimismL2RPCFlag,
	StarknetL2RPCFlag,
	ZkSyncL2RPCFlag,
	ArbitrumPollIntervalFlag,
	BasePollIntervalFlag,
	OptimismPollIntervalFlag,
	StarknetPollIntervalFlag,
	ZkSyncPollIntervalFlag,
	SequencerDowntimeThresholdFlag,
	ReconnectMaxRetriesFlag,
	ReconnectBaseBackoffFlag,
	ReconnectMaxBackoffFlag,
	StaleTimeoutFlag,
	BroadcastCapacityFlag,
	HealthCheckIntervalFlag,
	HealthConfigFlag,
	HTTPHostFlag,
	HTTPPortFlag,
	MetricsEnabledFlag,
	MetricsHostFlag,
	MetricsPortFlag,
	LogLevelFlag,
}

// CheckRequired validates flag combinations that cli itself cannot express.
func CheckRequired(ctx *cli.Context) error {
	watchersConfigured := ctx.IsSet(ArbitrumInboxFlag.Name) ||
		ctx.IsSet(BaseDisputeGameFactoryFlag.Name) ||
		ctx.IsSet(OptimismDisputeGameFactoryFlag.Name) ||
		ctx.IsSet(StarknetCoreFlag.Name) ||
		ctx.IsSet(ZkSyncDiamondFlag.Name)
	if watchersConfigured && !ctx.IsSet(L1WSURLFlag.Name) {
		return fmt.Errorf("flag %s is required when contract watchers are configured", L1WSURLFlag.Name)
	}
	return nil
}
