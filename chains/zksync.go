package chains

import (
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rollupmon/rollupmon/types"
	"github.com/rollupmon/rollupmon/watcher"
)

// zkSync Era settles through its diamond proxy in three steps: commit,
// verify (validity proof), execute (finalize).
var (
	blockCommitTopic = crypto.Keccak256Hash([]byte(
		"BlockCommit(uint256,bytes32,bytes32)"))
	blocksVerificationTopic = crypto.Keccak256Hash([]byte(
		"BlocksVerification(uint256,uint256)"))
	blockExecutionTopic = crypto.Keccak256Hash([]byte(
		"BlockExecution(uint256,bytes32,bytes32)"))
)

// ZkSyncContracts is the L1 address set for the zksync streams.
type ZkSyncContracts struct {
	DiamondProxy common.Address
}

func ZkSyncDescriptors(client EthClient, contracts ZkSyncContracts) []watcher.Descriptor {
	return []watcher.Descriptor{
		{
			Rollup:    "zksync",
			Stream:    "BlockCommit",
			Category:  "BlockCommit",
			Subscribe: subscribeContractEvents(client, contracts.DiamondProxy, blockCommitTopic),
			Decode:    decodeZkBatchNumber,
			Apply: func(st *types.RollupStatus, id, txHash string) {
				st.LatestBatch = id
				st.LatestBatchTx = txHash
			},
		},
		{
			Rollup:    "zksync",
			Stream:    "BlocksVerification",
			Category:  "BlocksVerification",
			Subscribe: subscribeContractEvents(client, contracts.DiamondProxy, blocksVerificationTopic),
			Decode:    decodeLastVerifiedBatch,
			Apply: func(st *types.RollupStatus, id, txHash string) {
				st.LatestProof = id
				st.LatestProofTx = txHash
			},
		},
		{
			Rollup:    "zksync",
			Stream:    "BlockExecution",
			Category:  "BlockExecution",
			Subscribe: subscribeContractEvents(client, contracts.DiamondProxy, blockExecutionTopic),
			Decode:    decodeZkBatchNumber,
			Apply: func(st *types.RollupStatus, id, txHash string) {
				st.LatestFinalized = id
				st.LatestFinalizedTx = txHash
			},
		},
	}
}

// decodeZkBatchNumber extracts the indexed batch number as a decimal string.
func decodeZkBatchNumber(lg ethtypes.Log) (string, error) {
	topic, err := indexedTopic(lg, 1)
	if err != nil {
		return "", err
	}
	return decimal(topic), nil
}

// decodeLastVerifiedBatch extracts currentLastVerifiedBatch, the second
// indexed arg of BlocksVerification.
func decodeLastVerifiedBatch(lg ethtypes.Log) (string, error) {
	topic, err := indexedTopic(lg, 2)
	if err != nil {
		return "", err
	}
	return decimal(topic), nil
}
