package indexer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/usdtgate/usdtgate/internal/chain"
	"github.com/usdtgate/usdtgate/internal/config"
	"github.com/usdtgate/usdtgate/internal/events"
	"github.com/usdtgate/usdtgate/internal/infra/blockchain/evm"
	"github.com/usdtgate/usdtgate/internal/payments"
	"github.com/usdtgate/usdtgate/internal/pkg/flow/chflow"
	"github.com/usdtgate/usdtgate/internal/pkg/logger"
	"github.com/usdtgate/usdtgate/internal/pkg/resilience/retry"
	"github.com/usdtgate/usdtgate/internal/pkg/transport/jsonrpc"
	"github.com/usdtgate/usdtgate/internal/pkg/types"
	"github.com/usdtgate/usdtgate/internal/rpcpool"
)

const (
	// idleInterval spaces cursor fast-forwards while no invoice is pending.
	idleInterval = 30 * time.Second

	// errorRetryInterval follows an unclassified failure.
	errorRetryInterval = 10 * time.Second

	// timeoutRetryInterval follows a node request timeout.
	timeoutRetryInterval = 5 * time.Second

	// rateLimitInitialDelay is the first backoff after an HTTP 429. The delay
	// doubles on every consecutive rate limit up to rateLimitMaxDelay and
	// resets once a block goes through cleanly.
	rateLimitInitialDelay = 5 * time.Second
	rateLimitMaxDelay     = time.Minute

	// Nodes index a block's logs slightly after serving the block itself, so
	// an empty log response is retried a few times before being trusted.
	transferLogAttempts   = 4
	transferLogRetryDelay = 250 * time.Millisecond
)

// errNoTransferLogs marks an empty log response inside the retry loop.
var errNoTransferLogs = errors.New("no transfer logs yet")

// watchPair runs the indexing loop for one pair until ctx is canceled.
func (s *Service) watchPair(ctx context.Context, key string) {
	item, ok := s.configs.Item(key)
	if !ok {
		logger.Error(ctx, "pair not configured, listener not running", "config.key", key)
		return
	}

	strategy, err := item.Strategy()
	if err != nil {
		logger.Error(ctx, "pair has no chain strategy, listener not running",
			"config.key", key,
			"error", err,
		)
		return
	}

	rateLimitDelay := rateLimitInitialDelay
	for {
		delay := s.runStep(ctx, key, item, strategy, &rateLimitDelay)
		if delay == 0 {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		if !chflow.Sleep(ctx, delay) {
			return
		}
	}
}

// runStep isolates one loop iteration so a panic cannot kill the pair's
// goroutine.
func (s *Service) runStep(ctx context.Context, key string, item config.Item, strategy chain.Strategy, rateLimitDelay *time.Duration) (delay time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "indexing iteration panicked", "config.key", key, "panic", r)
			delay = errorRetryInterval
		}
	}()

	return s.step(ctx, key, item, strategy, rateLimitDelay)
}

// step performs one iteration of the indexing loop and returns how long to
// wait before the next one. Zero means continue immediately.
func (s *Service) step(ctx context.Context, key string, item config.Item, strategy chain.Strategy, rateLimitDelay *time.Duration) time.Duration {
	node, err := s.pool.Client(key)
	if err != nil {
		logger.Warn(ctx, "no node client for pair", "config.key", key, "error", err)
		return errorRetryInterval
	}

	state, err := s.states.LoadState(ctx, key)
	if errors.Is(err, ErrNoStateFound) {
		return s.bootstrap(ctx, key, node, rateLimitDelay)
	}
	if err != nil {
		logger.Warn(ctx, "could not load listener state", "config.key", key, "error", err)
		return errorRetryInterval
	}

	pending, err := s.invoices.PendingInvoices(ctx, key)
	if err != nil {
		logger.Warn(ctx, "could not list pending invoices", "config.key", key, "error", err)
		return errorRetryInterval
	}

	if !anyActivated(pending) {
		return s.fastForward(ctx, key, node, state, rateLimitDelay)
	}

	height := state.LastBlockHeight + 1
	if _, err := node.GetBlockByNumber(ctx, height); err != nil {
		switch {
		case errors.Is(err, evm.ErrBlockNotFound):
			return strategy.BlockTime()
		case errors.Is(err, jsonrpc.ErrTimeout):
			logger.Warn(ctx, "block fetch timed out", "config.key", key, "block.height", height)
			return timeoutRetryInterval
		case errors.Is(err, jsonrpc.ErrRateLimited):
			return s.backOff(ctx, key, rateLimitDelay)
		default:
			logger.Error(ctx, "block fetch failed",
				"config.key", key,
				"block.height", height,
				"error", err,
			)
			return errorRetryInterval
		}
	}

	if err := s.applyBlock(ctx, key, item, strategy.Codec(), node, pending, height); err != nil {
		switch {
		case errors.Is(err, jsonrpc.ErrRateLimited):
			return s.backOff(ctx, key, rateLimitDelay)
		case errors.Is(err, jsonrpc.ErrTimeout):
			logger.Warn(ctx, "block apply timed out", "config.key", key, "block.height", height)
			return timeoutRetryInterval
		default:
			logger.Error(ctx, "block apply failed",
				"config.key", key,
				"block.height", height,
				"error", err,
			)
			return errorRetryInterval
		}
	}

	state.LastBlockHeight = height
	if err := s.states.SaveState(ctx, key, state); err != nil {
		logger.Error(ctx, "could not persist listener state",
			"config.key", key,
			"block.height", height,
			"error", err,
		)
		return errorRetryInterval
	}

	s.bus.Publish(ctx, events.NewBlock{ConfigKey: key, Height: height})
	*rateLimitDelay = rateLimitInitialDelay
	return 0
}

// anyActivated reports whether at least one pending invoice has an activated
// payment prompt. Only those invoices can receive a creditable transfer.
func anyActivated(pending []Invoice) bool {
	for _, invoice := range pending {
		if invoice.Activated {
			return true
		}
	}
	return false
}

// bootstrap persists an initial cursor one block behind the current tip, so
// indexing starts from the block being mined right now.
func (s *Service) bootstrap(ctx context.Context, key string, node rpcpool.Node, rateLimitDelay *time.Duration) time.Duration {
	tip, err := node.BlockNumber(ctx)
	if err != nil {
		logger.Warn(ctx, "could not fetch chain tip for bootstrap", "config.key", key, "error", err)
		return errorRetryInterval
	}

	if err := s.states.SaveState(ctx, key, State{LastBlockHeight: tip - 1}); err != nil {
		logger.Warn(ctx, "could not persist bootstrap state", "config.key", key, "error", err)
		return errorRetryInterval
	}

	logger.Info(ctx, "listener bootstrapped at chain tip", "config.key", key, "block.height", tip)
	*rateLimitDelay = rateLimitInitialDelay
	return 0
}

// fastForward moves the cursor straight to the tip while nothing is waiting
// for payment, skipping blocks that cannot contain a relevant transfer.
func (s *Service) fastForward(ctx context.Context, key string, node rpcpool.Node, state State, rateLimitDelay *time.Duration) time.Duration {
	tip, err := node.BlockNumber(ctx)
	if err != nil {
		logger.Warn(ctx, "could not fetch chain tip", "config.key", key, "error", err)
		return errorRetryInterval
	}

	if tip > state.LastBlockHeight {
		if err := s.states.SaveState(ctx, key, State{LastBlockHeight: tip}); err != nil {
			logger.Warn(ctx, "could not persist listener state", "config.key", key, "error", err)
			return errorRetryInterval
		}
	}

	*rateLimitDelay = rateLimitInitialDelay
	return idleInterval
}

// backOff returns the current rate-limit delay and doubles it for next time.
func (s *Service) backOff(ctx context.Context, key string, rateLimitDelay *time.Duration) time.Duration {
	delay := *rateLimitDelay
	logger.Warn(ctx, "rate limited by node, backing off",
		"config.key", key,
		"backoff.delay", delay,
	)

	next := delay * 2
	if next > rateLimitMaxDelay {
		next = rateLimitMaxDelay
	}
	*rateLimitDelay = next

	return delay
}

// applyBlock records new payments found in the block and refreshes the
// confirmation counts of payments still processing. The cursor is only
// committed by the caller once the whole block applied cleanly.
func (s *Service) applyBlock(
	ctx context.Context,
	key string,
	item config.Item,
	codec chain.AddressCodec,
	node rpcpool.Node,
	pending []Invoice,
	height int64,
) error {
	// Two invoices pointing at the same address would double-count a single
	// transfer, so the first one registered keeps the address.
	watched := make(map[string]Invoice, len(pending))
	recipients := make([]string, 0, len(pending))
	for _, invoice := range pending {
		if !invoice.Activated {
			continue
		}

		canonical, err := codec.ToCanonical(invoice.Destination)
		if err != nil {
			logger.Warn(ctx, "skipping invoice with malformed destination",
				"invoice.id", invoice.ID,
				"error", err,
			)
			continue
		}

		if _, taken := watched[canonical]; taken {
			continue
		}
		watched[canonical] = invoice
		recipients = append(recipients, canonical)
	}

	var transfers []evm.Transfer
	if len(recipients) > 0 {
		var err error
		transfers, err = s.blockTransfers(ctx, item, codec, node, recipients, height)
		if err != nil {
			return err
		}
	}

	needUpdate := types.NewSet[string]()
	for _, transfer := range transfers {
		invoice, ok := watched[strings.ToLower(transfer.To)]
		if !ok {
			continue
		}

		from, err := codec.ToNative(transfer.From)
		if err != nil {
			from = transfer.From
		}

		payment := payments.Payment{
			ID:        payments.PaymentID(transfer.TxHash, transfer.LogIndex),
			InvoiceID: invoice.ID,
			Amount:    payments.AmountFromBaseUnits(transfer.Value, item.Divisibility),
			Currency:  item.Currency,
			Status:    payments.StatusProcessing,
			CreatedAt: time.Now().UTC(),
			Details: payments.Details{
				From:              from,
				To:                invoice.Destination,
				TransactionID:     transfer.TxHash,
				ConfirmationCount: 0,
				BlockHeight:       height,
			},
		}

		inserted, err := s.payments.AddPayment(ctx, key, payment)
		if err != nil {
			return err
		}
		if !inserted {
			continue
		}

		logger.Info(ctx, "payment detected",
			"config.key", key,
			"invoice.id", invoice.ID,
			"payment.id", payment.ID,
			"payment.amount", payment.Amount.String(),
		)
		s.bus.Publish(ctx, events.PaymentReceived{InvoiceID: invoice.ID, PaymentID: payment.ID})
		needUpdate.Add(invoice.ID)
	}

	if err := s.refreshConfirmations(ctx, key, pending, height, needUpdate); err != nil {
		return err
	}

	for invoiceID := range needUpdate.ToIter() {
		s.bus.Publish(ctx, events.InvoiceNeedUpdate{InvoiceID: invoiceID})
	}

	return nil
}

// refreshConfirmations recomputes confirmation counts for payments still
// processing and settles those that reached their invoice's threshold.
// Settled payments are never touched again, so a later reorg cannot unsettle
// them.
func (s *Service) refreshConfirmations(ctx context.Context, key string, pending []Invoice, height int64, needUpdate types.Set[string]) error {
	processing, err := s.payments.ProcessingPayments(ctx, key)
	if err != nil {
		return err
	}
	if len(processing) == 0 {
		return nil
	}

	policies := make(map[string]payments.SpeedPolicy, len(pending))
	for _, invoice := range pending {
		policies[invoice.ID] = invoice.SpeedPolicy
	}

	updates := make([]payments.Payment, 0, len(processing))
	for _, payment := range processing {
		// Payments on invoices no longer monitored stay as they are.
		policy, monitored := policies[payment.InvoiceID]
		if !monitored {
			continue
		}

		confirmations := height - payment.Details.BlockHeight
		if confirmations < 0 {
			// A reorg left the recorded height ahead of the cursor.
			confirmations = 0
		}
		if confirmations == payment.Details.ConfirmationCount {
			continue
		}

		payment.Details.ConfirmationCount = confirmations
		if payments.Confirmed(confirmations, policy) {
			payment.Status = payments.StatusSettled
		}

		updates = append(updates, payment)
		needUpdate.Add(payment.InvoiceID)
	}

	if len(updates) == 0 {
		return nil
	}

	return s.payments.UpdatePayments(ctx, key, updates)
}

// blockTransfers fetches the token transfer logs the contract emitted in
// this block. The logs are queried unconditionally: a transfer routed
// through an intermediary contract never names the token contract in any
// transaction, yet the Transfer log is still emitted.
func (s *Service) blockTransfers(
	ctx context.Context,
	item config.Item,
	codec chain.AddressCodec,
	node rpcpool.Node,
	recipients []string,
	height int64,
) ([]evm.Transfer, error) {
	contract, err := codec.ToCanonical(item.ContractAddress)
	if err != nil {
		return nil, err
	}

	var transfers []evm.Transfer
	fetch := retry.New(
		retry.WithAttempts(transferLogAttempts),
		retry.WithDelay(transferLogRetryDelay),
		retry.WithMaxDelay(transferLogRetryDelay),
	)
	err = fetch.Execute(ctx, func() error {
		var fetchErr error
		transfers, fetchErr = node.TransferLogs(ctx, height, contract, recipients)
		if fetchErr != nil {
			return fetchErr
		}
		if len(transfers) == 0 {
			return errNoTransferLogs
		}
		return nil
	})
	if err != nil && !errors.Is(err, errNoTransferLogs) {
		return nil, err
	}

	return transfers, nil
}
