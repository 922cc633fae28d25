// Package chain defines the per-chain strategy consumed by the indexer and
// summary services: chain identity, expected block time, and the address
// codec converting between the chain's native address representation and the
// canonical hex form used for RPC filtering.
package chain

import (
	"errors"
	"time"
)

// ErrInvalidAddress is returned when an address cannot be decoded, carries a
// wrong version byte, or fails checksum verification.
var ErrInvalidAddress = errors.New("invalid address")

// AddressCodec converts between a chain's native address representation and
// the canonical lowercase 0x-prefixed hex form. Implementations are pure and
// deterministic.
type AddressCodec interface {
	// ToCanonical converts a native address to canonical hex form.
	ToCanonical(native string) (string, error)

	// ToNative converts a canonical hex address back to native form.
	ToNative(hex string) (string, error)

	// IsValid reports whether native is a well-formed address for the
	// chain. It never panics on malformed input.
	IsValid(native string) bool
}

// Strategy describes one supported chain. Concrete chains supply only this
// strategy; all indexing and summary logic is generic over it.
type Strategy interface {
	// Name returns the chain identifier (e.g., "Tron", "Ethereum").
	Name() string

	// BlockTime returns the approximate interval between blocks, used to
	// derive poll intervals and the synced-threshold window.
	BlockTime() time.Duration

	// Codec returns the chain's address codec.
	Codec() AddressCodec
}

// ByName returns the strategy registered for the given chain identifier.
func ByName(name string) (Strategy, error) {
	switch name {
	case tronChainName:
		return Tron(), nil
	case ethereumChainName:
		return Ethereum(), nil
	default:
		return nil, errors.New("unsupported chain: " + name)
	}
}
