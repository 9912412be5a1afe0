package health

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Thresholds are the per-rollup timing limits, all in whole seconds of
// unix time. Delayed/halted drive the primary classification; the two
// cadence limits only produce advisory issues.
type Thresholds struct {
	DelayedThresholdSecs uint64 `toml:"delayed_threshold_secs"`
	HaltedThresholdSecs  uint64 `toml:"halted_threshold_secs"`
	BatchCadenceSecs     uint64 `toml:"batch_cadence_secs"`
	ProofCadenceSecs     uint64 `toml:"proof_cadence_secs"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		DelayedThresholdSecs: 600,  // 10 minutes
		HaltedThresholdSecs:  1800, // 30 minutes
		BatchCadenceSecs:     300,  // 5 minutes
		ProofCadenceSecs:     3600, // 1 hour
	}
}

// Config selects thresholds per rollup, falling back to Default for any
// rollup without an explicit entry.
type Config struct {
	Rollups map[string]Thresholds `toml:"rollups"`
	Default Thresholds            `toml:"default"`
	// CheckInterval is the cadence of the periodic re-evaluation tick.
	CheckInterval time.Duration `toml:"-"`
}

const DefaultCheckInterval = 60 * time.Second

func DefaultConfig() Config {
	return Config{
		Rollups: map[string]Thresholds{
			// Batches land every few minutes, proofs roughly hourly.
			"arbitrum": {
				DelayedThresholdSecs: 600,
				HaltedThresholdSecs:  1800,
				BatchCadenceSecs:     300,
				ProofCadenceSecs:     3600,
			},
			// State updates only settle every few hours.
			"starknet": {
				DelayedThresholdSecs: 7200,
				HaltedThresholdSecs:  14400,
				BatchCadenceSecs:     3600,
				ProofCadenceSecs:     7200,
			},
		},
		Default:       DefaultThresholds(),
		CheckInterval: DefaultCheckInterval,
	}
}

// LoadConfig reads threshold overrides from a TOML file, layered over the
// defaults. Rollups absent from the file keep their default thresholds.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	var overrides struct {
		Rollups map[string]Thresholds `toml:"rollups"`
		Default *Thresholds           `toml:"default"`
	}
	if _, err := toml.DecodeFile(path, &overrides); err != nil {
		return Config{}, fmt.Errorf("load health config %s: %w", path, err)
	}
	if overrides.Default != nil {
		cfg.Default = *overrides.Default
	}
	for rollup, thresholds := range overrides.Rollups {
		cfg.Rollups[rollup] = thresholds
	}
	return cfg, nil
}

// ThresholdsFor returns the rollup's thresholds or the default set.
func (c Config) ThresholdsFor(rollup string) Thresholds {
	if t, ok := c.Rollups[rollup]; ok {
		return t
	}
	return c.Default
}
