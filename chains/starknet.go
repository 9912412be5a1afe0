package chains

import (
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rollupmon/rollupmon/types"
	"github.com/rollupmon/rollupmon/watcher"
)

// Starknet settles through a single core contract. A state update carries
// a STARK proof, so one event advances batch, proof and finality at once.
var (
	logStateUpdateTopic = crypto.Keccak256Hash([]byte(
		"LogStateUpdate(uint256,int256,uint256)"))
	logMessageToL2Topic = crypto.Keccak256Hash([]byte(
		"LogMessageToL2(address,uint256,uint256,uint256[],uint256,uint256)"))
)

// StarknetContracts is the L1 address set for the starknet streams.
type StarknetContracts struct {
	Core common.Address
}

func StarknetDescriptors(client EthClient, contracts StarknetContracts) []watcher.Descriptor {
	return []watcher.Descriptor{
		{
			Rollup:    "starknet",
			Stream:    "LogStateUpdate",
			Category:  "StateUpdate",
			Subscribe: subscribeContractEvents(client, contracts.Core, logStateUpdateTopic),
			Decode:    decodeStateUpdateBlockHash,
			Apply: func(st *types.RollupStatus, id, txHash string) {
				st.LatestBatch = id
				st.LatestBatchTx = txHash
				st.LatestProof = id
				st.LatestProofTx = txHash
				st.LatestFinalized = id
				st.LatestFinalizedTx = txHash
			},
		},
		{
			Rollup:    "starknet",
			Stream:    "LogMessageToL2",
			Category:  "MessageLog",
			Subscribe: subscribeContractEvents(client, contracts.Core, logMessageToL2Topic),
			Decode:    decodeMessageSelector,
			// L1->L2 traffic proves the bridge is alive but says nothing
			// about settlement progress; only last_updated moves.
			Apply: func(st *types.RollupStatus, id, txHash string) {},
		},
	}
}

// decodeStateUpdateBlockHash extracts the Starknet block hash, the third
// data word of LogStateUpdate (globalRoot, blockNumber, blockHash).
func decodeStateUpdateBlockHash(lg ethtypes.Log) (string, error) {
	word, err := dataWord(lg, 2)
	if err != nil {
		return "", err
	}
	return word.Hex(), nil
}

// decodeMessageSelector extracts the indexed entry point selector as a
// decimal string.
func decodeMessageSelector(lg ethtypes.Log) (string, error) {
	topic, err := indexedTopic(lg, 3)
	if err != nil {
		return "", err
	}
	return decimal(topic), nil
}
