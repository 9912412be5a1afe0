package main

import (
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"
)

func TestLevelFromString(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"trace", log.LevelTrace},
		{"debug", log.LevelDebug},
		{"info", log.LevelInfo},
		{"warn", log.LevelWarn},
		{"error", log.LevelError},
		{"crit", log.LevelCrit},
		{" INFO ", log.LevelInfo},
	}
	for _, tc := range cases {
		lvl, err := levelFromString(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, lvl, tc.in)
	}
}

func TestLevelFromStringRejectsUnknown(t *testing.T) {
	_, err := levelFromString("loud")
	require.ErrorContains(t, err, "unknown log level")
}
