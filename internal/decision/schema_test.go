package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinpilot/internal/risk"
)

const validPayload = `[
	{"action": "open", "symbol": "BTCUSDT", "direction": "long", "leverage": 3,
	 "position_size_pct": 2.5, "confidence": 0.8, "reasoning": "breakout"},
	{"action": "close", "symbol": "ETHUSDT", "confidence": 0.9},
	{"action": "hold", "symbol": "SOLUSDT"}
]`

func TestValidateDecisionArray(t *testing.T) {
	t.Run("accepts a well-formed array", func(t *testing.T) {
		assert.NoError(t, ValidateDecisionArray(validPayload))
	})

	t.Run("rejects empty payload", func(t *testing.T) {
		assert.Error(t, ValidateDecisionArray(""))
		assert.Error(t, ValidateDecisionArray("  "))
	})

	t.Run("rejects invalid json", func(t *testing.T) {
		assert.Error(t, ValidateDecisionArray(`[{"action": "open"`))
	})

	t.Run("rejects non-array payload", func(t *testing.T) {
		err := ValidateDecisionArray(`{"action": "hold", "symbol": "BTCUSDT"}`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "array")
	})

	t.Run("rejects empty array", func(t *testing.T) {
		assert.Error(t, ValidateDecisionArray(`[]`))
	})

	t.Run("pinpoints the offending entry", func(t *testing.T) {
		payload := `[
			{"action": "hold", "symbol": "BTCUSDT"},
			{"action": "open", "symbol": "ETHUSDT", "direction": "up", "position_size_pct": 2}
		]`
		err := ValidateDecisionArray(payload)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "#2")
	})

	t.Run("rejects missing action", func(t *testing.T) {
		err := ValidateDecisionArray(`[{"symbol": "BTCUSDT"}]`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "action")
	})

	t.Run("rejects out-of-range confidence on sizing actions", func(t *testing.T) {
		payload := `[{"action": "open", "symbol": "BTCUSDT", "direction": "long",
			"position_size_pct": 2, "confidence": 1.4}]`
		assert.Error(t, ValidateDecisionArray(payload))
	})
}

func TestParseDecisions(t *testing.T) {
	t.Run("parses and normalizes entries", func(t *testing.T) {
		decisions, err := ParseDecisions(validPayload)
		require.NoError(t, err)
		require.Len(t, decisions, 3)
		assert.Equal(t, ActionOpen, decisions[0].Action)
		assert.Equal(t, "BTCUSDT", decisions[0].Symbol)
		assert.Equal(t, risk.Long, decisions[0].Direction)
		assert.Equal(t, 2.5, decisions[0].PositionSizePct)
	})

	t.Run("uppercase action and lowercase symbol normalized", func(t *testing.T) {
		payload := `[{"action": "HOLD", "symbol": "btcusdt"}]`
		// gjson validation lowercases before matching, the typed pass
		// normalizes the stored values
		decisions, err := ParseDecisions(payload)
		require.NoError(t, err)
		assert.Equal(t, ActionHold, decisions[0].Action)
		assert.Equal(t, "BTCUSDT", decisions[0].Symbol)
	})

	t.Run("propagates validation failures", func(t *testing.T) {
		_, err := ParseDecisions(`[{"action": "open", "symbol": "BTCUSDT"}]`)
		assert.Error(t, err)
	})
}
