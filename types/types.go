package types

import (
	"encoding/json"
	"fmt"
)

// KnownRollups is the fixed set of rollups this service understands.
// Health evaluation always reports every entry, even for chains that were
// never configured or never produced an event.
var KnownRollups = []string{"arbitrum", "base", "optimism", "starknet", "zksync"}

// RollupEvent is a single settlement event observed on the base chain,
// as produced by a watcher and consumed by the status store, the health
// monitor and the broadcaster.
type RollupEvent struct {
	// Rollup is the chain the event belongs to, e.g. "arbitrum".
	Rollup string `json:"rollup"`
	// EventType is the category tag, e.g. "BatchDelivered".
	EventType string `json:"event_type"`
	// BlockNumber is the base-chain block the event was emitted in.
	BlockNumber uint64 `json:"block_number"`
	// TxHash is the base-chain transaction the event was emitted by.
	TxHash string `json:"tx_hash"`
	// BatchNumber is the category-specific identifier: a numeric batch
	// sequence, a hex-encoded assertion/claim/withdrawal hash, or a
	// verified-batch index.
	BatchNumber string `json:"batch_number,omitempty"`
	// Timestamp is the unix time the event was detected.
	Timestamp uint64 `json:"timestamp,omitempty"`
}

// RollupStatus holds the most recent settlement identifiers for one rollup.
// No history is kept; every field is overwritten by the latest observation.
type RollupStatus struct {
	LatestBatch       string `json:"latest_batch,omitempty"`
	LatestBatchTx     string `json:"latest_batch_tx,omitempty"`
	LatestProof       string `json:"latest_proof,omitempty"`
	LatestProofTx     string `json:"latest_proof_tx,omitempty"`
	LatestFinalized   string `json:"latest_finalized,omitempty"`
	LatestFinalizedTx string `json:"latest_finalized_tx,omitempty"`
	// LastUpdated is the unix time of the last mutation, set on every event.
	LastUpdated uint64 `json:"last_updated,omitempty"`
}

// SequencerStatus holds the liveness view of one L2 execution layer,
// owned entirely by its poller.
type SequencerStatus struct {
	LatestBlock          *uint64 `json:"latest_block,omitempty"`
	LatestBlockTimestamp *uint64 `json:"latest_block_timestamp,omitempty"`
	// BlocksPerSecond is only present once two successful polls with
	// forward progress exist. A stalled chain keeps its last-known rate.
	BlocksPerSecond       *float64 `json:"blocks_per_second,omitempty"`
	IsProducing           bool     `json:"is_producing"`
	SecondsSinceLastBlock *uint64  `json:"seconds_since_last_block,omitempty"`
	LastPolled            *uint64  `json:"last_polled,omitempty"`
}

// HealthStatus classifies a rollup's liveness from event timing.
type HealthStatus int

const (
	// HealthHealthy: events are arriving within the delayed threshold.
	HealthHealthy HealthStatus = iota
	// HealthDelayed: event silence exceeded the delayed threshold.
	HealthDelayed
	// HealthHalted: event silence exceeded the halted threshold.
	HealthHalted
	// HealthDisconnected: no event has ever been observed.
	HealthDisconnected
)

func (h HealthStatus) String() string {
	switch h {
	case HealthHealthy:
		return "Healthy"
	case HealthDelayed:
		return "Delayed"
	case HealthHalted:
		return "Halted"
	case HealthDisconnected:
		return "Disconnected"
	default:
		return fmt.Sprintf("HealthStatus(%d)", int(h))
	}
}

func (h HealthStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *HealthStatus) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "Healthy":
		*h = HealthHealthy
	case "Delayed":
		*h = HealthDelayed
	case "Halted":
		*h = HealthHalted
	case "Disconnected":
		*h = HealthDisconnected
	default:
		return fmt.Errorf("unknown health status %q", s)
	}
	return nil
}

// HealthCheckResult is the read-only outcome of a health check for one rollup.
type HealthCheckResult struct {
	Rollup           string       `json:"rollup"`
	Status           HealthStatus `json:"status"`
	LastEventAgeSecs *uint64      `json:"last_event_age_secs"`
	LastBatchAgeSecs *uint64      `json:"last_batch_age_secs"`
	LastProofAgeSecs *uint64      `json:"last_proof_age_secs"`
	Issues           []string     `json:"issues"`
}
