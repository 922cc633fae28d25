package redis

import (
	"context"
	"fmt"

	"github.com/usdtgate/usdtgate/internal/addresspool"
)

// addressPoolKey builds the Redis key for a pair's deposit address pool.
func addressPoolKey(configKey string) string {
	return fmt.Sprintf("%s:addresses:%s", keyPrefix, configKey)
}

// AddAddresses inserts deposit addresses into the pair's pool set.
func (c *client) AddAddresses(ctx context.Context, configKey string, addresses ...string) error {
	if len(addresses) == 0 {
		return nil
	}

	members := make([]any, len(addresses))
	for i, address := range addresses {
		members[i] = address
	}

	return c.conn.SAdd(ctx, addressPoolKey(configKey), members...).Err()
}

// RemoveAddresses deletes deposit addresses from the pair's pool set.
func (c *client) RemoveAddresses(ctx context.Context, configKey string, addresses ...string) error {
	if len(addresses) == 0 {
		return nil
	}

	members := make([]any, len(addresses))
	for i, address := range addresses {
		members[i] = address
	}

	return c.conn.SRem(ctx, addressPoolKey(configKey), members...).Err()
}

// ListAddresses returns every address in the pair's pool.
func (c *client) ListAddresses(ctx context.Context, configKey string) ([]string, error) {
	return c.conn.SMembers(ctx, addressPoolKey(configKey)).Result()
}

// Ensure the client satisfies the address storage interface at compile time.
var _ addresspool.AddressStorage = new(client)
