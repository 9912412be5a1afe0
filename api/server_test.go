package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/rollupmon/rollupmon/broadcast"
	"github.com/rollupmon/rollupmon/clock"
	"github.com/rollupmon/rollupmon/health"
	"github.com/rollupmon/rollupmon/store"
	"github.com/rollupmon/rollupmon/testlog"
	"github.com/rollupmon/rollupmon/types"
)

type apiHarness struct {
	server      *Server
	store       *store.Store
	health      *health.Monitor
	broadcaster *broadcast.Broadcaster
	http        *httptest.Server
}

func newAPIHarness(t *testing.T) *apiHarness {
	logger := testlog.Logger(t, log.LevelDebug)
	st := store.New(logger)
	hm := health.NewMonitor(logger, health.DefaultConfig(), clock.SystemClock)
	b := broadcast.New(logger, 16)
	srv := NewServer(logger, st, hm, b)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &apiHarness{server: srv, store: st, health: hm, broadcaster: b, http: ts}
}

func (h *apiHarness) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(h.http.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestRootBanner(t *testing.T) {
	h := newAPIHarness(t)
	resp, body := h.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "Rollup Proof Status API")
}

func TestServiceHealth(t *testing.T) {
	h := newAPIHarness(t)
	resp, body := h.get(t, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var parsed map[string]string
	require.NoError(t, json.Unmarshal(body, &parsed))
	require.Equal(t, "ok", parsed["status"])
	require.Equal(t, "rollupmon", parsed["service"])
}

func TestListRollups(t *testing.T) {
	h := newAPIHarness(t)
	_, body := h.get(t, "/rollups")
	var parsed struct {
		Rollups []struct {
			Name   string   `json:"name"`
			Events []string `json:"events"`
		} `json:"rollups"`
	}
	require.NoError(t, json.Unmarshal(body, &parsed))
	require.Len(t, parsed.Rollups, len(types.KnownRollups))
	require.Equal(t, "arbitrum", parsed.Rollups[0].Name)
	require.Contains(t, parsed.Rollups[0].Events, "BatchDelivered")
}

func TestRollupStatus(t *testing.T) {
	h := newAPIHarness(t)
	h.store.UpdateStatus("arbitrum", func(st *types.RollupStatus) {
		st.LatestBatch = "4242"
		st.LastUpdated = 1700000000
	})

	resp, body := h.get(t, "/rollups/arbitrum/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var parsed types.RollupStatus
	require.NoError(t, json.Unmarshal(body, &parsed))
	require.Equal(t, "4242", parsed.LatestBatch)

	// a rollup with no events yet still answers, with the zero snapshot
	resp, _ = h.get(t, "/rollups/zksync/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownRollupIs404(t *testing.T) {
	h := newAPIHarness(t)
	for _, path := range []string{"/rollups/dogechain/status", "/rollups/dogechain/health", "/rollups/dogechain/sequencer"} {
		resp, _ := h.get(t, path)
		require.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestRollupHealth(t *testing.T) {
	h := newAPIHarness(t)
	_, body := h.get(t, "/rollups/starknet/health")
	var parsed types.HealthCheckResult
	require.NoError(t, json.Unmarshal(body, &parsed))
	require.Equal(t, "starknet", parsed.Rollup)
	require.Equal(t, types.HealthDisconnected, parsed.Status)
	require.Contains(t, parsed.Issues, "No events received yet")
}

func TestAllHealth(t *testing.T) {
	h := newAPIHarness(t)
	h.health.RecordEvent(&types.RollupEvent{Rollup: "base", EventType: "DisputeGameCreated"})

	_, body := h.get(t, "/rollups/health")
	var parsed struct {
		Rollups []types.HealthCheckResult `json:"rollups"`
	}
	require.NoError(t, json.Unmarshal(body, &parsed))
	require.Len(t, parsed.Rollups, len(types.KnownRollups))
}

func TestSequencerEndpoints(t *testing.T) {
	h := newAPIHarness(t)
	block := uint64(999)
	h.store.UpdateSequencerStatus("zksync", func(s *types.SequencerStatus) {
		s.LatestBlock = &block
		s.IsProducing = true
	})

	_, body := h.get(t, "/rollups/zksync/sequencer")
	var parsed types.SequencerStatus
	require.NoError(t, json.Unmarshal(body, &parsed))
	require.EqualValues(t, 999, *parsed.LatestBlock)
	require.True(t, parsed.IsProducing)

	_, body = h.get(t, "/rollups/sequencer")
	var all struct {
		Sequencer map[string]types.SequencerStatus `json:"sequencer"`
	}
	require.NoError(t, json.Unmarshal(body, &all))
	require.Contains(t, all.Sequencer, "zksync")
}

func TestCORSHeaders(t *testing.T) {
	h := newAPIHarness(t)
	resp, _ := h.get(t, "/health")
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	req, err := http.NewRequest(http.MethodOptions, h.http.URL+"/rollups", nil)
	require.NoError(t, err)
	preflight, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer preflight.Body.Close()
	require.Equal(t, http.StatusNoContent, preflight.StatusCode)
}

func TestWebSocketStream(t *testing.T) {
	h := newAPIHarness(t)
	h.store.UpdateStatus("optimism", func(st *types.RollupStatus) {
		st.LatestBatch = "0xroot"
	})

	wsURL := "ws" + strings.TrimPrefix(h.http.URL, "http") + "/rollups/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	// first frame is the full snapshot
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var initial struct {
		Type     string                        `json:"type"`
		Statuses map[string]types.RollupStatus `json:"statuses"`
	}
	require.NoError(t, json.Unmarshal(payload, &initial))
	require.Equal(t, "initial", initial.Type)
	require.Equal(t, "0xroot", initial.Statuses["optimism"].LatestBatch)

	// then live events as they are published
	published := types.RollupEvent{
		Rollup:      "optimism",
		EventType:   "DisputeGameCreated",
		BlockNumber: 19000000,
		TxHash:      "0xabc",
		BatchNumber: "0xclaim",
	}
	// the subscription is registered before the snapshot is written, so
	// publishing after reading the snapshot cannot race it
	h.broadcaster.Publish(published)

	_, payload, err = conn.ReadMessage()
	require.NoError(t, err)
	var ev types.RollupEvent
	require.NoError(t, json.Unmarshal(payload, &ev))
	require.Equal(t, published, ev)
}
