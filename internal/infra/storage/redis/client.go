// Package redis persists the gateway's state: server settings, listener
// cursors, deposit address pools, invoices, and payments. Every key lives
// under the "usdtgate" namespace.
package redis

import (
	"context"

	redis "github.com/redis/go-redis/v9"
)

const keyPrefix = "usdtgate"

type client struct {
	conn *redis.Client
}

func (c *client) Close() error {
	return c.conn.Close()
}

func NewClient(ctx context.Context, addr, username, password string, db int) (*client, error) {
	conn := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
		DB:       db,
	})

	if err := conn.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &client{
		conn: conn,
	}, nil
}
