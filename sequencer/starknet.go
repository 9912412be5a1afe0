package sequencer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
)

// StarknetTipFetcher reads the chain tip over Starknet's own JSON-RPC
// (starknet_getBlockWithTxHashes); the node does not speak standard
// Ethereum JSON-RPC.
type StarknetTipFetcher struct {
	client *resty.Client
	url    string
}

func NewStarknetTipFetcher(url string) *StarknetTipFetcher {
	return &StarknetTipFetcher{
		client: resty.New(),
		url:    url,
	}
}

type starknetBlockResponse struct {
	Result struct {
		BlockNumber *flexUint64 `json:"block_number"`
		Timestamp   *flexUint64 `json:"timestamp"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (f *StarknetTipFetcher) FetchTip(ctx context.Context) (*Tip, error) {
	var parsed starknetBlockResponse
	resp, err := f.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"jsonrpc": "2.0",
			"method":  "starknet_getBlockWithTxHashes",
			"params":  map[string]any{"block_id": "latest"},
			"id":      1,
		}).
		SetResult(&parsed).
		Post(f.url)
	if err != nil {
		return nil, fmt.Errorf("starknet rpc: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("starknet rpc: status %s", resp.Status())
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("starknet rpc: %s (code %d)", parsed.Error.Message, parsed.Error.Code)
	}
	if parsed.Result.BlockNumber == nil {
		return nil, fmt.Errorf("starknet rpc: no block number in response")
	}

	tip := &Tip{Number: uint64(*parsed.Result.BlockNumber)}
	if parsed.Result.Timestamp != nil {
		tip.Timestamp = uint64(*parsed.Result.Timestamp)
	}
	return tip, nil
}

// flexUint64 accepts both a JSON number and a 0x-prefixed hex string; node
// implementations disagree on the encoding.
type flexUint64 uint64

func (u *flexUint64) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
		if err != nil {
			return fmt.Errorf("parse hex block field %q: %w", s, err)
		}
		*u = flexUint64(v)
		return nil
	}
	var v uint64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*u = flexUint64(v)
	return nil
}
