// Package addresspool manages the pre-generated deposit addresses available
// for each chain/token pair. Every invoice gets its own address from the
// pool; an address backing an invoice that is still waiting for money is
// reserved and cannot be handed out again until that invoice completes.
package addresspool

import (
	"context"
	"errors"
	"fmt"

	"github.com/usdtgate/usdtgate/internal/chain"
	"github.com/usdtgate/usdtgate/internal/config"
)

var (
	// ErrAllAddressesReserved indicates every pool address is backing a
	// pending invoice and the merchant must add more addresses.
	ErrAllAddressesReserved = errors.New("all deposit addresses are reserved")

	// ErrUnknownPair indicates the pair key has no configuration.
	ErrUnknownPair = errors.New("unknown chain/token pair")
)

// AddressStorage persists the pool of deposit addresses per pair.
type AddressStorage interface {
	AddAddresses(ctx context.Context, configKey string, addresses ...string) error
	RemoveAddresses(ctx context.Context, configKey string, addresses ...string) error
	ListAddresses(ctx context.Context, configKey string) ([]string, error)
}

// ReservationSource lists the deposit destinations of invoices still waiting
// for payment. Any invoice not yet completed reserves its destination,
// including invoices whose payment prompt was never activated.
type ReservationSource interface {
	ReservedDestinations(ctx context.Context, configKey string) ([]string, error)
}

// ConfigSource resolves pair configuration for address validation.
type ConfigSource interface {
	Item(key string) (config.Item, bool)
}

// Service exposes pool management and address reservation.
type Service struct {
	configs      ConfigSource
	addresses    AddressStorage
	reservations ReservationSource
}

// New builds an address pool Service.
func New(configs ConfigSource, addresses AddressStorage, reservations ReservationSource) *Service {
	return &Service{
		configs:      configs,
		addresses:    addresses,
		reservations: reservations,
	}
}

// codec resolves the address codec for a pair key.
func (s *Service) codec(key string) (chain.AddressCodec, error) {
	item, ok := s.configs.Item(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPair, key)
	}

	strategy, err := item.Strategy()
	if err != nil {
		return nil, err
	}

	return strategy.Codec(), nil
}

// Add validates the given chain-native addresses and adds them to the pool.
// Nothing is added if any address is malformed.
func (s *Service) Add(ctx context.Context, key string, addresses ...string) error {
	codec, err := s.codec(key)
	if err != nil {
		return err
	}

	for _, address := range addresses {
		if !codec.IsValid(address) {
			return fmt.Errorf("%w: %q", chain.ErrInvalidAddress, address)
		}
	}

	return s.addresses.AddAddresses(ctx, key, addresses...)
}

// Remove deletes addresses from the pool. Removing an address does not
// affect invoices already using it.
func (s *Service) Remove(ctx context.Context, key string, addresses ...string) error {
	return s.addresses.RemoveAddresses(ctx, key, addresses...)
}

// List returns every address in the pool, reserved or not.
func (s *Service) List(ctx context.Context, key string) ([]string, error) {
	return s.addresses.ListAddresses(ctx, key)
}

// reservedSet builds the set of reserved addresses in canonical form.
func (s *Service) reservedSet(ctx context.Context, key string, codec chain.AddressCodec) (map[string]struct{}, error) {
	destinations, err := s.reservations.ReservedDestinations(ctx, key)
	if err != nil {
		return nil, err
	}

	reserved := make(map[string]struct{}, len(destinations))
	for _, destination := range destinations {
		canonical, err := codec.ToCanonical(destination)
		if err != nil {
			// A malformed destination still blocks the raw string.
			canonical = destination
		}
		reserved[canonical] = struct{}{}
	}

	return reserved, nil
}

// OneNotReserved picks a pool address not backing any pending invoice.
func (s *Service) OneNotReserved(ctx context.Context, key string) (string, error) {
	codec, err := s.codec(key)
	if err != nil {
		return "", err
	}

	pool, err := s.addresses.ListAddresses(ctx, key)
	if err != nil {
		return "", err
	}

	reserved, err := s.reservedSet(ctx, key, codec)
	if err != nil {
		return "", err
	}

	for _, address := range pool {
		canonical, err := codec.ToCanonical(address)
		if err != nil {
			continue
		}
		if _, taken := reserved[canonical]; !taken {
			return address, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrAllAddressesReserved, key)
}

// Reserved returns the pool addresses currently backing pending invoices.
func (s *Service) Reserved(ctx context.Context, key string) ([]string, error) {
	codec, err := s.codec(key)
	if err != nil {
		return nil, err
	}

	pool, err := s.addresses.ListAddresses(ctx, key)
	if err != nil {
		return nil, err
	}

	reserved, err := s.reservedSet(ctx, key, codec)
	if err != nil {
		return nil, err
	}

	taken := make([]string, 0, len(pool))
	for _, address := range pool {
		canonical, err := codec.ToCanonical(address)
		if err != nil {
			continue
		}
		if _, ok := reserved[canonical]; ok {
			taken = append(taken, address)
		}
	}

	return taken, nil
}
