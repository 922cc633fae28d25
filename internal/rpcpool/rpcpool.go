// Package rpcpool maintains one JSON-RPC node client per configured
// chain/token pair. The pool rebuilds every client whenever settings change,
// so consumers always reach the endpoint (and auth headers) currently
// configured for a pair.
package rpcpool

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/usdtgate/usdtgate/internal/config"
	"github.com/usdtgate/usdtgate/internal/events"
	"github.com/usdtgate/usdtgate/internal/infra/blockchain/evm"
	"github.com/usdtgate/usdtgate/internal/pkg/flow/chflow"
	"github.com/usdtgate/usdtgate/internal/pkg/logger"
	"github.com/usdtgate/usdtgate/internal/pkg/transport/http"
	"github.com/usdtgate/usdtgate/internal/pkg/transport/jsonrpc"
)

var (
	// ErrNotConfigured indicates no client exists for the requested pair key.
	ErrNotConfigured = errors.New("no node configured for pair")

	// ErrAlreadyStarted indicates Start was called on a running pool.
	ErrAlreadyStarted = errors.New("rpc pool already started")
)

// Node is the typed node API handed out by the pool.
type Node interface {
	BlockNumber(ctx context.Context) (int64, error)
	GetBlockByNumber(ctx context.Context, height int64) (evm.Block, error)
	Syncing(ctx context.Context) (evm.SyncStatus, error)
	TransferLogs(ctx context.Context, height int64, contract string, recipients []string) ([]evm.Transfer, error)
	BalanceOf(ctx context.Context, contract, holder string) (*big.Int, error)
}

// ConfigSource exposes the configuration snapshot the pool builds clients
// from, plus the ability to refresh it when settings change.
type ConfigSource interface {
	Reload(ctx context.Context)
	Keys() []string
	Item(key string) (config.Item, bool)
}

// Pool holds the current set of node clients, keyed by pair key.
type Pool struct {
	configs ConfigSource
	bus     *events.Bus

	mu      sync.RWMutex
	clients map[string]Node

	lifecycleMu sync.Mutex
	closeFunc   func()
}

// New builds a pool over the current configuration snapshot.
func New(configs ConfigSource, bus *events.Bus) *Pool {
	p := &Pool{
		configs: configs,
		bus:     bus,
	}
	p.rebuild()
	return p
}

// newNode dials nothing; it just assembles the HTTP and JSON-RPC layers for
// one endpoint.
func newNode(item config.Item) Node {
	opts := make([]http.Option, 0, 1)
	if len(item.Headers) > 0 {
		opts = append(opts, http.WithHeaders(item.Headers))
	}

	httpClient := http.NewClient(opts...).StandardClient()
	return evm.NewClient(jsonrpc.NewClient(httpClient, item.JSONRPCURL))
}

// rebuild replaces the whole client map from the current snapshot.
func (p *Pool) rebuild() {
	keys := p.configs.Keys()

	next := make(map[string]Node, len(keys))
	for _, key := range keys {
		item, ok := p.configs.Item(key)
		if !ok {
			continue
		}
		next[key] = newNode(item)
	}

	p.mu.Lock()
	p.clients = next
	p.mu.Unlock()
}

// Client returns the node client for the given pair key.
func (p *Pool) Client(key string) (Node, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	client, ok := p.clients[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, key)
	}

	return client, nil
}

// Start subscribes to settings changes and rebuilds the pool on each one.
// The configuration snapshot is reloaded first so new clients pick up the
// fresh settings.
func (p *Pool) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.closeFunc != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	eventsCh, unsubscribe := p.bus.Subscribe(events.KindSettingsChanged)

	go func() {
		for {
			if _, ok := chflow.Receive(ctx, eventsCh); !ok {
				return
			}

			p.configs.Reload(ctx)
			p.rebuild()
			logger.Info(ctx, "rpc pool rebuilt after settings change", "pool.size", len(p.configs.Keys()))
		}
	}()

	p.closeFunc = func() {
		unsubscribe()
		cancel()
	}

	return nil
}

// Close stops watching for settings changes. Existing clients stay usable.
func (p *Pool) Close() {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.closeFunc != nil {
		p.closeFunc()
		p.closeFunc = nil
	}
}
