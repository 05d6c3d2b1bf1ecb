package strategy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadParamsMissingFileUsesDefaults(t *testing.T) {
	params, err := LoadParams(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultParams(), params)

	params, err = LoadParams("")
	require.NoError(t, err)
	assert.Equal(t, DefaultParams(), params)
}

func TestLoadParamsOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategies.yaml")
	content := `
scalper:
  lookback: 20
  stop_loss: 0.02
swing:
  trail_stop: 0.05
  tick_interval: 10s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	params, err := LoadParams(path)
	require.NoError(t, err)

	assert.Equal(t, 20, params.Scalper.Lookback)
	assert.Equal(t, 0.02, params.Scalper.StopLossPct)
	// Untouched keys keep their defaults.
	assert.Equal(t, "3m", params.Scalper.Timeframe)
	assert.Equal(t, []float64{0.02, 0.04}, params.Scalper.PartialTPLevels)

	assert.Equal(t, 0.05, params.Swing.TrailPct)
	assert.Equal(t, Duration(10*time.Second), params.Swing.TickInterval)
	assert.Equal(t, 0.3, params.Swing.EntryFraction)
}

func TestLoadParamsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategies.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scalper: ["), 0o644))

	_, err := LoadParams(path)
	assert.Error(t, err)
}
