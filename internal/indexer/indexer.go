// Package indexer walks each configured chain block by block, matches token
// transfers against pending invoice deposit addresses, records the resulting
// payments, and keeps their confirmation counts current. One goroutine per
// chain/token pair owns that pair's cursor; the cursor only ever moves
// forward, and payment inserts are idempotent, so reprocessing a block after
// a crash is harmless.
package indexer

import (
	"context"
	"errors"
	"sync"

	"github.com/usdtgate/usdtgate/internal/config"
	"github.com/usdtgate/usdtgate/internal/events"
	"github.com/usdtgate/usdtgate/internal/payments"
	"github.com/usdtgate/usdtgate/internal/pkg/logger"
	"github.com/usdtgate/usdtgate/internal/rpcpool"
)

var (
	// ErrNoStateFound indicates no cursor has ever been persisted for a pair.
	ErrNoStateFound = errors.New("listener state not found")

	// ErrAlreadyStarted indicates Start was called on a running service.
	ErrAlreadyStarted = errors.New("indexer already started")
)

// State is the persisted indexing cursor for one pair. LastBlockHeight is the
// height of the last fully applied block.
type State struct {
	LastBlockHeight int64 `json:"lastBlockHeight"`
}

// Invoice is the slice of an invoice the indexer needs: where money for it
// arrives and how many confirmations settle it. Destination is in the
// chain-native address form.
type Invoice struct {
	ID          string               `json:"id"`
	Destination string               `json:"destination"`
	SpeedPolicy payments.SpeedPolicy `json:"speedPolicy"`
	Activated   bool                 `json:"activated"`
}

// InvoiceStorage lists the invoices still waiting for payment on a pair.
type InvoiceStorage interface {
	PendingInvoices(ctx context.Context, configKey string) ([]Invoice, error)
}

// PaymentStorage persists detected payments. AddPayment reports whether the
// payment was newly inserted; re-adding a known payment is a no-op.
type PaymentStorage interface {
	AddPayment(ctx context.Context, configKey string, payment payments.Payment) (bool, error)
	ProcessingPayments(ctx context.Context, configKey string) ([]payments.Payment, error)
	UpdatePayments(ctx context.Context, configKey string, updates []payments.Payment) error
}

// ListenerStateStorage persists the per-pair indexing cursor.
type ListenerStateStorage interface {
	LoadState(ctx context.Context, configKey string) (State, error)
	SaveState(ctx context.Context, configKey string, state State) error
}

// NodePool hands out the node client for a pair.
type NodePool interface {
	Client(key string) (rpcpool.Node, error)
}

// ConfigSource exposes the configured pairs.
type ConfigSource interface {
	Keys() []string
	Item(key string) (config.Item, bool)
}

// Service runs the indexing loops.
type Service struct {
	configs  ConfigSource
	pool     NodePool
	invoices InvoiceStorage
	payments PaymentStorage
	states   ListenerStateStorage
	bus      *events.Bus

	lifecycleMu sync.Mutex
	closeFunc   func()
}

// New builds an indexer Service over the given collaborators.
func New(
	configs ConfigSource,
	pool NodePool,
	invoices InvoiceStorage,
	paymentStore PaymentStorage,
	states ListenerStateStorage,
	bus *events.Bus,
) *Service {
	return &Service{
		configs:  configs,
		pool:     pool,
		invoices: invoices,
		payments: paymentStore,
		states:   states,
		bus:      bus,
	}
}

// Start launches one indexing loop per configured pair.
func (s *Service) Start(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.closeFunc != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	for _, key := range s.configs.Keys() {
		go s.watchPair(ctx, key)
		logger.Info(ctx, "block listener started", "config.key", key)
	}

	s.closeFunc = cancel
	return nil
}

// Close stops all indexing loops. Cursors stay persisted, so a later Start
// resumes where indexing left off.
func (s *Service) Close() {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.closeFunc != nil {
		s.closeFunc()
		s.closeFunc = nil
	}
}
