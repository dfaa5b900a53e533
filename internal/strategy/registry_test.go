package strategy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStrategyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strategies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleStrategies = `
strategies:
  conservative:
    description: "capital preservation"
    max_total_exposure_pct: 30
    max_position_size_pct: 3
  aggressive:
    id: aggressive
    description: "momentum chasing"
    max_total_exposure_pct: 60
    params:
      rsi_threshold: 30
    schema:
      type: object
      required: [rsi_threshold]
      properties:
        rsi_threshold:
          type: number
          minimum: 0
          maximum: 100
`

func TestNewRegistry(t *testing.T) {
	t.Run("loads named overrides", func(t *testing.T) {
		reg, err := NewRegistry(writeStrategyFile(t, sampleStrategies))
		require.NoError(t, err)

		o, ok := reg.Override("conservative")
		require.True(t, ok)
		assert.Equal(t, "conservative", o.ID)
		assert.Equal(t, 30.0, o.MaxTotalExposurePct)
		assert.Equal(t, 3.0, o.MaxPositionSizePct)

		snap := reg.Snapshot()
		assert.Equal(t, int64(1), snap.Version)
		assert.Len(t, snap.Overrides, 2)
	})

	t.Run("unknown id not found", func(t *testing.T) {
		reg, err := NewRegistry(writeStrategyFile(t, sampleStrategies))
		require.NoError(t, err)
		_, ok := reg.Override("yolo")
		assert.False(t, ok)
	})

	t.Run("requires a path", func(t *testing.T) {
		_, err := NewRegistry("  ")
		assert.Error(t, err)
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, err := NewRegistry(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("unknown yaml keys rejected", func(t *testing.T) {
		_, err := NewRegistry(writeStrategyFile(t, `
strategies:
  typo:
    descriptionn: "misspelled"
`))
		assert.Error(t, err)
	})

	t.Run("out-of-range caps rejected", func(t *testing.T) {
		_, err := NewRegistry(writeStrategyFile(t, `
strategies:
  broken:
    max_total_exposure_pct: 150
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_total_exposure_pct")
	})

	t.Run("params violating the schema rejected at load", func(t *testing.T) {
		_, err := NewRegistry(writeStrategyFile(t, `
strategies:
  broken:
    params:
      rsi_threshold: 150
    schema:
      type: object
      properties:
        rsi_threshold:
          type: number
          maximum: 100
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "schema")
	})
}

func TestValidateParams(t *testing.T) {
	reg, err := NewRegistry(writeStrategyFile(t, sampleStrategies))
	require.NoError(t, err)

	t.Run("schema accepts conforming params", func(t *testing.T) {
		o, ok := reg.Override("aggressive")
		require.True(t, ok)
		assert.NoError(t, o.ValidateParams(map[string]any{"rsi_threshold": 25}))
	})

	t.Run("schema rejects out-of-range params", func(t *testing.T) {
		o, ok := reg.Override("aggressive")
		require.True(t, ok)
		assert.Error(t, o.ValidateParams(map[string]any{"rsi_threshold": 150}))
	})

	t.Run("schema rejects missing required params", func(t *testing.T) {
		o, ok := reg.Override("aggressive")
		require.True(t, ok)
		assert.Error(t, o.ValidateParams(map[string]any{}))
	})

	t.Run("no schema accepts anything", func(t *testing.T) {
		o, ok := reg.Override("conservative")
		require.True(t, ok)
		assert.NoError(t, o.ValidateParams(map[string]any{"whatever": true}))
	})
}
