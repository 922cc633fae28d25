package chain

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const (
	ethereumChainName = "Ethereum"

	ethereumBlockTime = 12 * time.Second
)

// ethereum implements Strategy for Ethereum-like networks, whose native
// address form is already hex. Both codec directions are identity operations
// modulo lowercasing, so address comparisons stay case-insensitive.
type ethereum struct{}

var _ Strategy = ethereum{}

// Ethereum returns the Ethereum chain strategy.
func Ethereum() Strategy {
	return ethereum{}
}

func (ethereum) Name() string             { return ethereumChainName }
func (ethereum) BlockTime() time.Duration { return ethereumBlockTime }
func (ethereum) Codec() AddressCodec      { return ethereumCodec{} }

type ethereumCodec struct{}

var _ AddressCodec = ethereumCodec{}

// normalizeHexAddress lowercases the input, enforces the 0x prefix and the
// 20-byte length, and verifies the payload is hexadecimal.
func normalizeHexAddress(addr string) (string, error) {
	lowered := strings.ToLower(addr)
	trimmed := strings.TrimPrefix(lowered, "0x")

	if len(trimmed) != 40 {
		return "", fmt.Errorf("%w: expected 20-byte hex address", ErrInvalidAddress)
	}

	if _, err := hex.DecodeString(trimmed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	return "0x" + trimmed, nil
}

func (ethereumCodec) ToCanonical(native string) (string, error) {
	return normalizeHexAddress(native)
}

func (ethereumCodec) ToNative(hexAddr string) (string, error) {
	return normalizeHexAddress(hexAddr)
}

func (ethereumCodec) IsValid(native string) bool {
	_, err := normalizeHexAddress(native)
	return err == nil
}
