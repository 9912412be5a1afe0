package sequencer

import (
	"context"
	"fmt"
	"math/big"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// HeaderClient is the subset of the ethclient interface the EVM fetcher
// needs. A nil number requests the latest header.
type HeaderClient interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error)
}

// EVMTipFetcher reads the chain tip of any EVM L2 over standard Ethereum
// JSON-RPC.
type EVMTipFetcher struct {
	client HeaderClient
}

func NewEVMTipFetcher(client HeaderClient) *EVMTipFetcher {
	return &EVMTipFetcher{client: client}
}

func (f *EVMTipFetcher) FetchTip(ctx context.Context) (*Tip, error) {
	header, err := f.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch latest header: %w", err)
	}
	if header == nil {
		return nil, nil
	}
	return &Tip{
		Number:    header.Number.Uint64(),
		Timestamp: header.Time,
	}, nil
}
