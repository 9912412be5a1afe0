package health

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig().Default, cfg.Default)
	require.Contains(t, cfg.Rollups, "starknet")
}

func TestLoadConfigLayersOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "health.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[default]
delayed_threshold_secs = 120
halted_threshold_secs = 900
batch_cadence_secs = 60
proof_cadence_secs = 600

[rollups.zksync]
delayed_threshold_secs = 1200
halted_threshold_secs = 3600
batch_cadence_secs = 600
proof_cadence_secs = 7200
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.EqualValues(t, 120, cfg.Default.DelayedThresholdSecs)
	require.EqualValues(t, 1200, cfg.Rollups["zksync"].DelayedThresholdSecs)
	// untouched per-rollup defaults survive the override file
	require.EqualValues(t, 7200, cfg.Rollups["starknet"].DelayedThresholdSecs)
	require.Equal(t, cfg.Rollups["zksync"], cfg.ThresholdsFor("zksync"))
	require.Equal(t, cfg.Default, cfg.ThresholdsFor("base"))
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
