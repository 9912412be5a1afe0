package chains

import "github.com/rollupmon/rollupmon/watcher"

// Contracts collects the per-rollup contract addresses. A nil entry
// disables that rollup's streams; its health then stays Disconnected.
type Contracts struct {
	Arbitrum *ArbitrumContracts
	Base     *OPStackContracts
	Optimism *OPStackContracts
	Starknet *StarknetContracts
	ZkSync   *ZkSyncContracts
}

// Enabled reports whether any rollup has contract watchers configured.
func (c Contracts) Enabled() bool {
	return c.Arbitrum != nil || c.Base != nil || c.Optimism != nil ||
		c.Starknet != nil || c.ZkSync != nil
}

// Descriptors builds every stream descriptor for the configured rollups.
func Descriptors(client EthClient, contracts Contracts) []watcher.Descriptor {
	var descs []watcher.Descriptor
	if c := contracts.Arbitrum; c != nil {
		descs = append(descs, ArbitrumDescriptors(client, *c)...)
	}
	if c := contracts.Base; c != nil {
		descs = append(descs, OPStackDescriptors(client, "base", *c)...)
	}
	if c := contracts.Optimism; c != nil {
		descs = append(descs, OPStackDescriptors(client, "optimism", *c)...)
	}
	if c := contracts.Starknet; c != nil {
		descs = append(descs, StarknetDescriptors(client, *c)...)
	}
	if c := contracts.ZkSync; c != nil {
		descs = append(descs, ZkSyncDescriptors(client, *c)...)
	}
	return descs
}
