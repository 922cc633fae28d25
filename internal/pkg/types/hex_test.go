package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHex_UnmarshalJSON(t *testing.T) {
	t.Run("valid lowercase hex", func(t *testing.T) {
		var h Hex

		err := json.Unmarshal([]byte(`"0x1a"`), &h)
		require.NoError(t, err)
		assert.Equal(t, Hex("0x1a"), h)
	})

	t.Run("valid uppercase hex", func(t *testing.T) {
		var h Hex

		err := json.Unmarshal([]byte(`"0X2F"`), &h)
		require.NoError(t, err)
		assert.Equal(t, Hex("0X2F"), h)
	})

	t.Run("missing 0x prefix", func(t *testing.T) {
		var h Hex
		require.Error(t, json.Unmarshal([]byte(`"1a"`), &h))
	})

	t.Run("invalid hex characters", func(t *testing.T) {
		var h Hex
		require.Error(t, json.Unmarshal([]byte(`"0xZZZ"`), &h))
	})

	t.Run("not a string", func(t *testing.T) {
		var h Hex
		require.Error(t, json.Unmarshal([]byte(`42`), &h))
	})
}

func TestHex_Int(t *testing.T) {
	t.Run("0x0a should be 10", func(t *testing.T) {
		var h Hex = "0x0a"
		assert.Equal(t, int64(10), h.Int())
	})

	t.Run("0xff should be 255", func(t *testing.T) {
		var h Hex = "0xff"
		assert.Equal(t, int64(255), h.Int())
	})

	t.Run("invalid hex returns 0", func(t *testing.T) {
		var h Hex = "0xZZZ"
		assert.Equal(t, int64(0), h.Int())
	})

	t.Run("empty value returns 0", func(t *testing.T) {
		var h Hex
		assert.Equal(t, int64(0), h.Int())
	})
}

func TestHexFromInt(t *testing.T) {
	assert.Equal(t, Hex("0x10"), HexFromInt(16))
	assert.Equal(t, Hex("0x0"), HexFromInt(0))
}
