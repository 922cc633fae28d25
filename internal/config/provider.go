package config

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/usdtgate/usdtgate/internal/pkg/logger"

	"github.com/kelseyhightower/envconfig"
)

// envOverrides are the per-pair environment variables honored at load time,
// prefixed with the pair key (e.g. USDT_TRON_JSONRPC_URI).
type envOverrides struct {
	JSONRPCURI           string `envconfig:"JSONRPC_URI"`
	SmartContractAddress string `envconfig:"SMARTCONTRACT_ADDRESS"`
}

// snapshot is one immutable view of the configured pairs, keyed by Item.Key.
type snapshot struct {
	items map[string]Item
	keys  []string
}

// Provider owns the current configuration snapshot. Readers always observe a
// complete snapshot; Reload builds a new one and swaps the pointer
// atomically.
type Provider struct {
	defaults []Item
	settings SettingsReader
	current  atomic.Pointer[snapshot]
}

// NewProvider builds a Provider over the given defaults and performs the
// initial load. Pairs that fail validation are skipped with a warning rather
// than failing the whole service.
func NewProvider(ctx context.Context, defaults []Item, settings SettingsReader) *Provider {
	p := &Provider{
		defaults: defaults,
		settings: settings,
	}
	p.Reload(ctx)
	return p
}

// resolve merges environment and server-level overrides into a default item.
func (p *Provider) resolve(ctx context.Context, item Item) Item {
	var env envOverrides
	if err := envconfig.Process(item.Key(), &env); err == nil {
		if env.JSONRPCURI != "" {
			item.JSONRPCURL = env.JSONRPCURI
		}
		if env.SmartContractAddress != "" {
			item.ContractAddress = env.SmartContractAddress
		}
	}

	var server ServerSettings
	err := p.settings.GetSetting(ctx, item.serverSettingsKey(), &server)
	switch {
	case errors.Is(err, ErrNoSetting):
	case err != nil:
		logger.Warn(ctx, "could not read server settings, using defaults",
			"config.key", item.Key(),
			"error", err,
		)
	default:
		if server.JSONRPCURL != "" {
			item.JSONRPCURL = server.JSONRPCURL
		}
		if server.ContractAddress != "" {
			item.ContractAddress = server.ContractAddress
		}
		if len(server.Headers) > 0 {
			item.Headers = server.Headers
		}
	}

	return item
}

// Reload rebuilds the snapshot from defaults plus overrides and swaps it in.
// Existing readers keep the old snapshot until their next lookup.
func (p *Provider) Reload(ctx context.Context) {
	next := &snapshot{items: make(map[string]Item, len(p.defaults))}

	for _, def := range p.defaults {
		item := p.resolve(ctx, def)

		if err := validate(item); err != nil {
			logger.Warn(ctx, "skipping misconfigured chain/token pair",
				"config.key", def.Key(),
				"error", err,
			)
			continue
		}

		next.items[item.Key()] = item
		next.keys = append(next.keys, item.Key())
	}

	p.current.Store(next)
}

// Item returns the configuration for the given pair key.
func (p *Provider) Item(key string) (Item, bool) {
	s := p.current.Load()
	if s == nil {
		return Item{}, false
	}

	item, ok := s.items[key]
	return item, ok
}

// Keys returns the keys of all currently configured pairs.
func (p *Provider) Keys() []string {
	s := p.current.Load()
	if s == nil {
		return nil
	}
	return s.keys
}
