package config

import (
	"context"
	"os"
	"testing"

	"github.com/usdtgate/usdtgate/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	_ = logger.Init(logger.WithLevel("error"))
	os.Exit(m.Run())
}

func TestItemKeys(t *testing.T) {
	item := Item{Chain: "Tron", Currency: "usdt"}

	assert.Equal(t, "USDT_TRON", item.Key())
	assert.Equal(t, "USDT_TRON_LISTENER_STATE", item.ListenerStateKey())
}

func TestDefaults(t *testing.T) {
	defaults := Defaults()
	require.Len(t, defaults, 2)

	for _, item := range defaults {
		assert.NoError(t, validate(item), "default pair %s must be valid", item.Key())
	}
}

// fakeSettings serves server settings from memory.
type fakeSettings struct {
	values map[string]ServerSettings
}

func (f *fakeSettings) GetSetting(ctx context.Context, key string, out any) error {
	settings, ok := f.values[key]
	if !ok {
		return ErrNoSetting
	}

	*(out.(*ServerSettings)) = settings
	return nil
}

func TestProvider(t *testing.T) {
	t.Run("loads defaults", func(t *testing.T) {
		p := NewProvider(t.Context(), Defaults(), &fakeSettings{})

		assert.ElementsMatch(t, []string{"USDT_TRON", "USDT_ETHEREUM"}, p.Keys())

		item, ok := p.Item("USDT_TRON")
		require.True(t, ok)
		assert.Equal(t, "Tron", item.Chain)
	})

	t.Run("server settings override defaults", func(t *testing.T) {
		settings := &fakeSettings{values: map[string]ServerSettings{
			"USDT_TRON_SERVER_SETTINGS": {
				JSONRPCURL: "https://private-node.example.com/jsonrpc",
				Headers:    map[string]string{"TRON-PRO-API-KEY": "secret"},
			},
		}}

		p := NewProvider(t.Context(), Defaults(), settings)

		item, ok := p.Item("USDT_TRON")
		require.True(t, ok)
		assert.Equal(t, "https://private-node.example.com/jsonrpc", item.JSONRPCURL)
		assert.Equal(t, "secret", item.Headers["TRON-PRO-API-KEY"])
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("USDT_TRON_JSONRPC_URI", "https://env-node.example.com/jsonrpc")

		p := NewProvider(t.Context(), Defaults(), &fakeSettings{})

		item, ok := p.Item("USDT_TRON")
		require.True(t, ok)
		assert.Equal(t, "https://env-node.example.com/jsonrpc", item.JSONRPCURL)
	})

	t.Run("skips pairs that fail validation", func(t *testing.T) {
		defaults := []Item{{
			Chain:           "Tron",
			Currency:        "USDT",
			JSONRPCURL:      "https://api.trongrid.io/jsonrpc",
			ContractAddress: "definitely-not-an-address",
			Divisibility:    6,
		}}

		p := NewProvider(t.Context(), defaults, &fakeSettings{})
		assert.Empty(t, p.Keys())
	})

	t.Run("reload picks up changed settings", func(t *testing.T) {
		settings := &fakeSettings{values: map[string]ServerSettings{}}
		p := NewProvider(t.Context(), Defaults(), settings)

		settings.values["USDT_TRON_SERVER_SETTINGS"] = ServerSettings{
			JSONRPCURL: "https://rotated.example.com/jsonrpc",
		}
		p.Reload(t.Context())

		item, ok := p.Item("USDT_TRON")
		require.True(t, ok)
		assert.Equal(t, "https://rotated.example.com/jsonrpc", item.JSONRPCURL)
	})
}
