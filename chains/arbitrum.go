package chains

import (
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rollupmon/rollupmon/types"
	"github.com/rollupmon/rollupmon/watcher"
)

// Arbitrum settles through a batch-sequencing inbox plus a rollup core
// contract that posts and later confirms assertions.
var (
	sequencerBatchDeliveredTopic = crypto.Keccak256Hash([]byte(
		"SequencerBatchDelivered(uint256,bytes32,bytes32,bytes32,uint256,(uint64,uint64,uint64,uint64),uint8)"))
	assertionCreatedTopic = crypto.Keccak256Hash([]byte(
		"AssertionCreated(bytes32,bytes32,(((bytes32,uint256[2],uint64[2]),uint8,bytes32),((bytes32,uint256[2],uint64[2]),uint8,bytes32),(bytes32,uint256)),bytes32,uint256,bytes32,uint256,address,uint64)"))
	assertionConfirmedTopic = crypto.Keccak256Hash([]byte(
		"AssertionConfirmed(bytes32,bytes32,bytes32)"))
)

// ArbitrumContracts are the L1 addresses the arbitrum streams watch.
type ArbitrumContracts struct {
	SequencerInbox common.Address
	RollupCore     common.Address
}

func ArbitrumDescriptors(client EthClient, contracts ArbitrumContracts) []watcher.Descriptor {
	return []watcher.Descriptor{
		{
			Rollup:    "arbitrum",
			Stream:    "SequencerBatchDelivered",
			Category:  "BatchDelivered",
			Subscribe: subscribeContractEvents(client, contracts.SequencerInbox, sequencerBatchDeliveredTopic),
			Decode:    decodeBatchSequenceNumber,
			Apply: func(st *types.RollupStatus, id, txHash string) {
				st.LatestBatch = id
				st.LatestBatchTx = txHash
			},
		},
		{
			Rollup:    "arbitrum",
			Stream:    "AssertionCreated",
			Category:  "ProofSubmitted",
			Subscribe: subscribeContractEvents(client, contracts.RollupCore, assertionCreatedTopic),
			Decode:    decodeAssertionHash,
			Apply: func(st *types.RollupStatus, id, txHash string) {
				st.LatestProof = id
				st.LatestProofTx = txHash
			},
		},
		{
			Rollup:    "arbitrum",
			Stream:    "AssertionConfirmed",
			Category:  "ProofVerified",
			Subscribe: subscribeContractEvents(client, contracts.RollupCore, assertionConfirmedTopic),
			Decode:    decodeAssertionHash,
			Apply: func(st *types.RollupStatus, id, txHash string) {
				st.LatestFinalized = id
				st.LatestFinalizedTx = txHash
			},
		},
	}
}

// decodeBatchSequenceNumber extracts the indexed batch sequence number as a
// decimal string.
func decodeBatchSequenceNumber(lg ethtypes.Log) (string, error) {
	topic, err := indexedTopic(lg, 1)
	if err != nil {
		return "", err
	}
	return decimal(topic), nil
}

// decodeAssertionHash extracts the indexed assertion hash, 0x-prefixed.
func decodeAssertionHash(lg ethtypes.Log) (string, error) {
	topic, err := indexedTopic(lg, 1)
	if err != nil {
		return "", err
	}
	return topic.Hex(), nil
}
