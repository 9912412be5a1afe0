package chains

import (
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rollupmon/rollupmon/types"
	"github.com/rollupmon/rollupmon/watcher"
)

// Base and Optimism share the OP Stack settlement surface: a dispute game
// factory whose created games carry the proposed output root, and a portal
// contract proving withdrawals against finalized output.
var (
	disputeGameCreatedTopic = crypto.Keccak256Hash([]byte(
		"DisputeGameCreated(address,uint32,bytes32)"))
	withdrawalProvenTopic = crypto.Keccak256Hash([]byte(
		"WithdrawalProven(bytes32,address,address)"))
)

// OPStackContracts are the L1 addresses for one OP Stack rollup.
type OPStackContracts struct {
	DisputeGameFactory common.Address
	Portal             common.Address
}

func OPStackDescriptors(client EthClient, rollup string, contracts OPStackContracts) []watcher.Descriptor {
	return []watcher.Descriptor{
		{
			Rollup:    rollup,
			Stream:    "DisputeGameCreated",
			Category:  "DisputeGameCreated",
			Subscribe: subscribeContractEvents(client, contracts.DisputeGameFactory, disputeGameCreatedTopic),
			Decode:    decodeRootClaim,
			// The root claim is both the latest batch proposal and the
			// claim a proof would defend, so it fills both roles.
			Apply: func(st *types.RollupStatus, id, txHash string) {
				st.LatestBatch = id
				st.LatestBatchTx = txHash
				st.LatestProof = id
				st.LatestProofTx = txHash
			},
		},
		{
			Rollup:    rollup,
			Stream:    "WithdrawalProven",
			Category:  "WithdrawalProven",
			Subscribe: subscribeContractEvents(client, contracts.Portal, withdrawalProvenTopic),
			Decode:    decodeWithdrawalHash,
			Apply: func(st *types.RollupStatus, id, txHash string) {
				st.LatestFinalized = id
				st.LatestFinalizedTx = txHash
			},
		},
	}
}

// decodeRootClaim extracts the indexed root claim (third indexed arg).
func decodeRootClaim(lg ethtypes.Log) (string, error) {
	topic, err := indexedTopic(lg, 3)
	if err != nil {
		return "", err
	}
	return topic.Hex(), nil
}

func decodeWithdrawalHash(lg ethtypes.Log) (string, error) {
	topic, err := indexedTopic(lg, 1)
	if err != nil {
		return "", err
	}
	return topic.Hex(), nil
}
