// Package chains defines the per-rollup event streams: which contract and
// topic each stream subscribes to, how the category identifier is decoded
// from a raw log, and which status fields it lands in.
package chains

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/rollupmon/rollupmon/watcher"
)

// EthClient is the subset of the ethclient interface the streams need.
type EthClient interface {
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- ethtypes.Log) (ethereum.Subscription, error)
}

// subscribeContractEvents opens a live log filter for one (contract, event)
// pair. Leaving FromBlock unset streams from the latest block forward; the
// status tables only hold latest values so historical backfill is useless.
func subscribeContractEvents(client EthClient, contract common.Address, topic common.Hash) watcher.SubscribeFn {
	return func(ctx context.Context) (watcher.Source, error) {
		logs := make(chan ethtypes.Log, 128)
		sub, err := client.SubscribeFilterLogs(ctx, ethereum.FilterQuery{
			Addresses: []common.Address{contract},
			Topics:    [][]common.Hash{{topic}},
		}, logs)
		if err != nil {
			return nil, fmt.Errorf("subscribe logs: %w", err)
		}
		return &logSource{logs: logs, sub: sub}, nil
	}
}

type logSource struct {
	logs chan ethtypes.Log
	sub  ethereum.Subscription
}

func (s *logSource) Logs() <-chan ethtypes.Log { return s.logs }
func (s *logSource) Err() <-chan error         { return s.sub.Err() }
func (s *logSource) Unsubscribe()              { s.sub.Unsubscribe() }

// indexedTopic returns topic i, where 0 is the event signature.
func indexedTopic(lg ethtypes.Log, i int) (common.Hash, error) {
	if len(lg.Topics) <= i {
		return common.Hash{}, fmt.Errorf("log has %d topics, want at least %d", len(lg.Topics), i+1)
	}
	return lg.Topics[i], nil
}

// dataWord returns the i-th 32-byte word of the non-indexed event data.
func dataWord(lg ethtypes.Log, i int) (common.Hash, error) {
	if len(lg.Data) < (i+1)*32 {
		return common.Hash{}, fmt.Errorf("log data is %d bytes, want at least %d", len(lg.Data), (i+1)*32)
	}
	return common.BytesToHash(lg.Data[i*32 : (i+1)*32]), nil
}

// decimal renders a topic or data word as a base-10 integer string.
func decimal(h common.Hash) string {
	return new(big.Int).SetBytes(h.Bytes()).String()
}
