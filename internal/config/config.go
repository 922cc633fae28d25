// Package config models the chain/token pairs this gateway watches. Each
// pair is an immutable Item; the Provider holds the current set of items as
// an atomically swapped snapshot, rebuilt from built-in defaults, environment
// variables, and server-level overrides whenever settings change.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/usdtgate/usdtgate/internal/chain"
	"github.com/usdtgate/usdtgate/internal/pkg/validator"
)

// ErrNoSetting is returned by SettingsReader implementations when the
// requested setting has never been stored.
var ErrNoSetting = errors.New("setting not found")

// SettingsReader reads server-level settings persisted by the host. out is
// populated from the stored JSON value.
type SettingsReader interface {
	GetSetting(ctx context.Context, key string, out any) error
}

// Item identifies one watched chain/token deployment. Items are immutable
// once loaded; configuration changes produce a fresh Item, never mutate one
// in place.
type Item struct {
	Chain           string            `validate:"required"` // chain identifier, must match a registered strategy
	Currency        string            `validate:"required"` // currency code (e.g., "USDT")
	JSONRPCURL      string            `validate:"required,url"`
	ContractAddress string            `validate:"required"` // token contract, chain-native form
	Divisibility    int32             `validate:"required,gt=0"`
	Headers         map[string]string // optional HTTP headers for RPC auth
}

// Key returns the deterministic identifier for this pair, e.g. "USDT_TRON",
// used as the prefix for every persisted setting related to it.
func (i Item) Key() string {
	return strings.ToUpper(fmt.Sprintf("%s_%s", i.Currency, i.Chain))
}

// ListenerStateKey returns the settings key under which the indexing cursor
// for this pair is persisted.
func (i Item) ListenerStateKey() string {
	return i.Key() + "_LISTENER_STATE"
}

// serverSettingsKey returns the settings key for merchant-supplied overrides.
func (i Item) serverSettingsKey() string {
	return i.Key() + "_SERVER_SETTINGS"
}

// Strategy resolves the chain strategy for this item.
func (i Item) Strategy() (chain.Strategy, error) {
	return chain.ByName(i.Chain)
}

// BlockTime returns the chain's approximate block interval, or zero for an
// unregistered chain.
func (i Item) BlockTime() time.Duration {
	s, err := i.Strategy()
	if err != nil {
		return 0
	}
	return s.BlockTime()
}

// ServerSettings are the merchant-editable overrides stored through the
// settings repository. Empty fields fall back to the defaults.
type ServerSettings struct {
	JSONRPCURL      string            `json:"jsonRpcUrl"`
	ContractAddress string            `json:"contractAddress"`
	Headers         map[string]string `json:"headers,omitempty"`
}

// Defaults returns the built-in chain/token pairs: USDT on Tron and Ethereum
// mainnet.
func Defaults() []Item {
	return []Item{
		{
			Chain:           "Tron",
			Currency:        "USDT",
			JSONRPCURL:      "https://api.trongrid.io/jsonrpc",
			ContractAddress: "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",
			Divisibility:    6,
		},
		{
			Chain:           "Ethereum",
			Currency:        "USDT",
			JSONRPCURL:      "https://ethereum.publicnode.com",
			ContractAddress: "0xdac17f958d2ee523a2206206994597c13d831ec7",
			Divisibility:    6,
		},
	}
}

// validate checks an item and confirms its chain strategy exists and its
// contract address is well formed for that chain.
func validate(item Item) error {
	if err := validator.Validate(item); err != nil {
		return err
	}

	strategy, err := item.Strategy()
	if err != nil {
		return err
	}

	if !strategy.Codec().IsValid(item.ContractAddress) {
		return fmt.Errorf("%w: contract address %q", chain.ErrInvalidAddress, item.ContractAddress)
	}

	return nil
}
