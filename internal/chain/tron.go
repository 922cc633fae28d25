package chain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/mr-tron/base58"
)

const (
	tronChainName = "Tron"

	// tronAddressVersion is the version byte every mainnet Tron address
	// carries after Base58Check decoding.
	tronAddressVersion = 0x41

	// tronChecksumSize is the number of double-SHA256 bytes appended to
	// the payload before base58 encoding.
	tronChecksumSize = 4

	tronBlockTime = 3 * time.Second
)

// tron implements Strategy for the Tron network, whose native address form is
// Base58Check over a 0x41-versioned 20-byte payload.
type tron struct{}

var _ Strategy = tron{}

// Tron returns the Tron chain strategy.
func Tron() Strategy {
	return tron{}
}

func (tron) Name() string             { return tronChainName }
func (tron) BlockTime() time.Duration { return tronBlockTime }
func (tron) Codec() AddressCodec      { return tronCodec{} }

type tronCodec struct{}

var _ AddressCodec = tronCodec{}

// checksum returns the first four bytes of SHA256(SHA256(payload)).
func checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:tronChecksumSize]
}

// decodeBase58Check decodes a Base58Check string and verifies its checksum,
// returning the versioned payload.
func decodeBase58Check(s string) ([]byte, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	if len(raw) <= tronChecksumSize {
		return nil, fmt.Errorf("%w: too short", ErrInvalidAddress)
	}

	payload, sum := raw[:len(raw)-tronChecksumSize], raw[len(raw)-tronChecksumSize:]
	if !bytes.Equal(checksum(payload), sum) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}

	return payload, nil
}

// encodeBase58Check appends the checksum to payload and base58 encodes it.
func encodeBase58Check(payload []byte) string {
	return base58.Encode(append(payload, checksum(payload)...))
}

// ToCanonical converts a Base58Check Tron address into its canonical
// lowercase 0x-prefixed hex form, rejecting wrong version bytes.
func (tronCodec) ToCanonical(native string) (string, error) {
	payload, err := decodeBase58Check(native)
	if err != nil {
		return "", err
	}

	if payload[0] != tronAddressVersion {
		return "", fmt.Errorf("%w: unexpected version byte 0x%02x", ErrInvalidAddress, payload[0])
	}

	return "0x" + hex.EncodeToString(payload[1:]), nil
}

// ToNative converts a canonical hex address into Base58Check form, prepending
// the Tron version byte. Input hex is case-insensitive and may carry an
// optional 0x prefix.
func (tronCodec) ToNative(hexAddr string) (string, error) {
	normalized := strings.TrimPrefix(strings.ToLower(hexAddr), "0x")

	raw, err := hex.DecodeString(normalized)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	payload := make([]byte, 0, len(raw)+1)
	payload = append(payload, tronAddressVersion)
	payload = append(payload, raw...)
	return encodeBase58Check(payload), nil
}

// IsValid reports whether native is a correctly checksummed Tron address with
// the expected version byte. Decode failures return false rather than an
// error.
func (tronCodec) IsValid(native string) bool {
	payload, err := decodeBase58Check(native)
	if err != nil {
		return false
	}

	return payload[0] == tronAddressVersion
}
