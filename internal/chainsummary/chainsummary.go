// Package chainsummary tracks the health of each configured chain/token
// pair's node: whether the RPC endpoint answers, whether the node is synced,
// and how far the local indexing cursor trails the chain tip. Availability
// flips are published so the host can show daemon status changes.
package chainsummary

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/usdtgate/usdtgate/internal/config"
	"github.com/usdtgate/usdtgate/internal/events"
	"github.com/usdtgate/usdtgate/internal/pkg/flow/chflow"
	"github.com/usdtgate/usdtgate/internal/pkg/logger"
	"github.com/usdtgate/usdtgate/internal/rpcpool"
)

// ErrAlreadyStarted indicates Start was called on a running service.
var ErrAlreadyStarted = errors.New("chain summary service already started")

// syncedLagWindow is how far behind the tip, measured in wall-clock time at
// the chain's block interval, the indexing cursor may be while the pair still
// counts as synced.
const syncedLagWindow = 10 * time.Minute

const (
	refreshIntervalAvailable   = time.Minute
	refreshIntervalUnavailable = 30 * time.Second
	refreshIntervalAfterError  = 10 * time.Second
)

// Summary is one pair's node health snapshot.
type Summary struct {
	ConfigKey        string
	ChainName        string
	RPCAvailable     bool
	Synced           bool
	Syncing          bool
	HighestBlock     int64
	CurrentBlock     int64
	LastScannedBlock int64
	UpdatedAt        time.Time
}

// Available reports whether the pair can be relied on for payment detection.
func (s Summary) Available() bool {
	return s.RPCAvailable && s.Synced
}

// ConfigSource exposes the configured pairs.
type ConfigSource interface {
	Keys() []string
	Item(key string) (config.Item, bool)
}

// NodePool hands out the node client for a pair.
type NodePool interface {
	Client(key string) (rpcpool.Node, error)
}

// StateReader reads the indexing cursor persisted by the block listener.
// found is false while the listener has never run for the pair.
type StateReader interface {
	LastScannedBlock(ctx context.Context, configKey string) (height int64, found bool, err error)
}

// Service refreshes summaries on a per-pair schedule.
type Service struct {
	configs ConfigSource
	pool    NodePool
	states  StateReader
	bus     *events.Bus

	mu        sync.RWMutex
	summaries map[string]Summary

	lifecycleMu sync.Mutex
	closeFunc   func()
}

// New builds a Service. No summaries exist until the first refresh.
func New(configs ConfigSource, pool NodePool, states StateReader, bus *events.Bus) *Service {
	return &Service{
		configs:   configs,
		pool:      pool,
		states:    states,
		bus:       bus,
		summaries: make(map[string]Summary),
	}
}

// Summary returns the last refreshed snapshot for the pair.
func (s *Service) Summary(key string) (Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, ok := s.summaries[key]
	return summary, ok
}

// IsAvailable reports whether the pair's node is currently usable. Pairs
// never refreshed count as unavailable.
func (s *Service) IsAvailable(key string) bool {
	summary, ok := s.Summary(key)
	return ok && summary.Available()
}

// store swaps in the new summary and publishes a DaemonStateChanged event
// when, and only when, overall availability flipped. A pair with no prior
// summary counts as unavailable.
func (s *Service) store(ctx context.Context, next Summary) {
	s.mu.Lock()
	prev, hadPrev := s.summaries[next.ConfigKey]
	s.summaries[next.ConfigKey] = next
	s.mu.Unlock()

	prevAvailable := hadPrev && prev.Available()
	if prevAvailable == next.Available() {
		return
	}

	logger.Info(ctx, "daemon availability changed",
		"config.key", next.ConfigKey,
		"daemon.available", next.Available(),
	)
	s.bus.Publish(ctx, events.DaemonStateChanged{
		ConfigKey: next.ConfigKey,
		Available: next.Available(),
		Summary: events.DaemonSummary{
			ChainName:        next.ChainName,
			RPCAvailable:     next.RPCAvailable,
			Synced:           next.Synced,
			Syncing:          next.Syncing,
			HighestBlock:     next.HighestBlock,
			CurrentBlock:     next.CurrentBlock,
			LastScannedBlock: next.LastScannedBlock,
		},
	})
}

// Refresh recomputes the summary for one pair.
//
// It is a no-op while the block listener has never persisted a cursor for the
// pair. An RPC failure keeps the previous chain heights but marks the RPC
// endpoint unavailable; only failures outside the node itself (state storage,
// missing configuration) are returned as errors.
func (s *Service) Refresh(ctx context.Context, key string) error {
	lastScanned, found, err := s.states.LastScannedBlock(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	item, ok := s.configs.Item(key)
	if !ok {
		return config.ErrNoSetting
	}

	node, err := s.pool.Client(key)
	if err != nil {
		return err
	}

	next := Summary{
		ConfigKey:        key,
		ChainName:        item.Chain,
		LastScannedBlock: lastScanned,
		UpdatedAt:        time.Now().UTC(),
	}

	status, err := node.Syncing(ctx)
	if err != nil {
		s.markUnavailable(ctx, key, next, err)
		return nil
	}

	if status.Syncing {
		next.Syncing = true
		next.HighestBlock = status.HighestBlock
		next.CurrentBlock = status.CurrentBlock
	} else {
		tip, err := node.BlockNumber(ctx)
		if err != nil {
			s.markUnavailable(ctx, key, next, err)
			return nil
		}
		next.HighestBlock = tip
		next.CurrentBlock = tip
	}

	next.RPCAvailable = true
	next.Synced = s.isSynced(item, next.HighestBlock, lastScanned)

	s.store(ctx, next)
	return nil
}

// markUnavailable records an RPC failure, carrying over the previous chain
// heights so the host keeps showing the last known progress.
func (s *Service) markUnavailable(ctx context.Context, key string, next Summary, cause error) {
	logger.Warn(ctx, "node rpc unavailable",
		"config.key", key,
		"error", cause,
	)

	if prev, ok := s.Summary(key); ok {
		next.Syncing = prev.Syncing
		next.HighestBlock = prev.HighestBlock
		next.CurrentBlock = prev.CurrentBlock
		next.Synced = prev.Synced
	}
	next.RPCAvailable = false

	s.store(ctx, next)
}

// isSynced reports whether the indexing cursor is close enough to the chain
// tip, allowing up to syncedLagWindow of blocks at the chain's block time.
func (s *Service) isSynced(item config.Item, highest, lastScanned int64) bool {
	blockTime := item.BlockTime()
	if blockTime <= 0 {
		return false
	}

	maxLag := int64(syncedLagWindow / blockTime)
	return highest-lastScanned < maxLag
}

// Start launches one refresh loop per configured pair.
func (s *Service) Start(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.closeFunc != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	for _, key := range s.configs.Keys() {
		go s.refreshLoop(ctx, key)
	}

	s.closeFunc = cancel
	return nil
}

// refreshLoop refreshes one pair until ctx is canceled, spacing refreshes by
// the pair's current health.
func (s *Service) refreshLoop(ctx context.Context, key string) {
	for {
		err := s.Refresh(ctx, key)

		var interval time.Duration
		switch {
		case err != nil:
			logger.Warn(ctx, "chain summary refresh failed",
				"config.key", key,
				"error", err,
			)
			interval = refreshIntervalAfterError
		case s.IsAvailable(key):
			interval = refreshIntervalAvailable
		default:
			interval = refreshIntervalUnavailable
		}

		if !chflow.Sleep(ctx, interval) {
			return
		}
	}
}

// Close stops all refresh loops.
func (s *Service) Close() {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.closeFunc != nil {
		s.closeFunc()
		s.closeFunc = nil
	}
}
