package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEthereumCodec(t *testing.T) {
	codec := Ethereum().Codec()

	t.Run("lowercases in both directions", func(t *testing.T) {
		canonical, err := codec.ToCanonical("0xDAC17F958D2EE523A2206206994597C13D831EC7")
		require.NoError(t, err)
		assert.Equal(t, "0xdac17f958d2ee523a2206206994597c13d831ec7", canonical)

		native, err := codec.ToNative(canonical)
		require.NoError(t, err)
		assert.Equal(t, canonical, native)
	})

	t.Run("accepts a missing prefix", func(t *testing.T) {
		canonical, err := codec.ToCanonical("dac17f958d2ee523a2206206994597c13d831ec7")
		require.NoError(t, err)
		assert.Equal(t, "0xdac17f958d2ee523a2206206994597c13d831ec7", canonical)
	})

	t.Run("rejects wrong lengths and non-hex payloads", func(t *testing.T) {
		for _, input := range []string{"", "0x1234", "0xzzc17f958d2ee523a2206206994597c13d831ec7"} {
			_, err := codec.ToCanonical(input)
			assert.ErrorIs(t, err, ErrInvalidAddress)
			assert.False(t, codec.IsValid(input))
		}
	})

	t.Run("validates well-formed addresses", func(t *testing.T) {
		assert.True(t, codec.IsValid("0xdAC17F958D2ee523a2206206994597C13D831ec7"))
	})
}

func TestEthereumStrategy(t *testing.T) {
	s := Ethereum()
	assert.Equal(t, "Ethereum", s.Name())
	assert.Equal(t, "12s", s.BlockTime().String())
}
