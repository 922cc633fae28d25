package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/usdtgate/usdtgate/internal/config"

	"github.com/redis/go-redis/v9"
)

// settingKey builds the Redis key for one named setting.
func settingKey(name string) string {
	return fmt.Sprintf("%s:setting:%s", keyPrefix, name)
}

// GetSetting reads a JSON-encoded setting into out. A missing setting maps
// to config.ErrNoSetting.
func (c *client) GetSetting(ctx context.Context, name string, out any) error {
	data, err := c.conn.Get(ctx, settingKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %s", config.ErrNoSetting, name)
	}
	if err != nil {
		return err
	}

	return json.Unmarshal(data, out)
}

// SetSetting stores value as JSON under the given setting name.
func (c *client) SetSetting(ctx context.Context, name string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.conn.Set(ctx, settingKey(name), data, 0).Err()
}

// Ensure the client satisfies the settings reader interface at compile time.
var _ config.SettingsReader = new(client)
