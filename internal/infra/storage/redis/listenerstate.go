package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/usdtgate/usdtgate/internal/chainsummary"
	"github.com/usdtgate/usdtgate/internal/config"
	"github.com/usdtgate/usdtgate/internal/indexer"
)

// listenerStateName mirrors the settings key layout the host uses for the
// per-pair indexing cursor.
func listenerStateName(configKey string) string {
	return configKey + "_LISTENER_STATE"
}

// LoadState reads the persisted indexing cursor for a pair. A pair that was
// never indexed maps to indexer.ErrNoStateFound.
func (c *client) LoadState(ctx context.Context, configKey string) (indexer.State, error) {
	var state indexer.State
	if err := c.GetSetting(ctx, listenerStateName(configKey), &state); err != nil {
		if errors.Is(err, config.ErrNoSetting) {
			return indexer.State{}, fmt.Errorf("%w: %s", indexer.ErrNoStateFound, configKey)
		}
		return indexer.State{}, err
	}

	return state, nil
}

// SaveState persists the indexing cursor for a pair.
func (c *client) SaveState(ctx context.Context, configKey string, state indexer.State) error {
	return c.SetSetting(ctx, listenerStateName(configKey), state)
}

// LastScannedBlock reads the cursor for health reporting. found is false
// while the listener has never run for the pair.
func (c *client) LastScannedBlock(ctx context.Context, configKey string) (int64, bool, error) {
	state, err := c.LoadState(ctx, configKey)
	if errors.Is(err, indexer.ErrNoStateFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	return state.LastBlockHeight, true, nil
}

// Ensure the client satisfies the listener state interfaces at compile time.
var (
	_ indexer.ListenerStateStorage = new(client)
	_ chainsummary.StateReader     = new(client)
)
