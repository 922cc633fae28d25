package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/usdtgate/usdtgate/internal/addresspool"
	"github.com/usdtgate/usdtgate/internal/indexer"

	"github.com/redis/go-redis/v9"
)

// ErrInvoiceNotFound indicates the invoice id has no stored record.
var ErrInvoiceNotFound = errors.New("invoice not found")

// invoiceKey builds the Redis key for one invoice record.
func invoiceKey(configKey, invoiceID string) string {
	return fmt.Sprintf("%s:invoice:%s:%s", keyPrefix, configKey, invoiceID)
}

// pendingInvoicesKey builds the Redis key for the set of invoice ids still
// waiting for payment on a pair.
func pendingInvoicesKey(configKey string) string {
	return fmt.Sprintf("%s:pending-invoices:%s", keyPrefix, configKey)
}

// SaveInvoice stores the invoice record and marks it pending. Saving an
// existing invoice overwrites its record, which is how the host activates a
// payment prompt.
func (c *client) SaveInvoice(ctx context.Context, configKey string, invoice indexer.Invoice) error {
	data, err := json.Marshal(invoice)
	if err != nil {
		return err
	}

	_, err = c.conn.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, invoiceKey(configKey, invoice.ID), data, 0)
		pipe.SAdd(ctx, pendingInvoicesKey(configKey), invoice.ID)
		return nil
	})
	return err
}

// CompleteInvoice removes the invoice from the pending set, releasing its
// deposit address for reuse. The invoice record itself is kept.
func (c *client) CompleteInvoice(ctx context.Context, configKey, invoiceID string) error {
	return c.conn.SRem(ctx, pendingInvoicesKey(configKey), invoiceID).Err()
}

// GetInvoice reads one invoice record.
func (c *client) GetInvoice(ctx context.Context, configKey, invoiceID string) (indexer.Invoice, error) {
	data, err := c.conn.Get(ctx, invoiceKey(configKey, invoiceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return indexer.Invoice{}, fmt.Errorf("%w: %s", ErrInvoiceNotFound, invoiceID)
	}
	if err != nil {
		return indexer.Invoice{}, err
	}

	var invoice indexer.Invoice
	return invoice, json.Unmarshal(data, &invoice)
}

// PendingInvoices lists every invoice still waiting for payment on a pair.
// Records missing for ids in the pending set are skipped.
func (c *client) PendingInvoices(ctx context.Context, configKey string) ([]indexer.Invoice, error) {
	ids, err := c.conn.SMembers(ctx, pendingInvoicesKey(configKey)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = invoiceKey(configKey, id)
	}

	records, err := c.conn.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	invoices := make([]indexer.Invoice, 0, len(records))
	for _, record := range records {
		raw, ok := record.(string)
		if !ok {
			continue
		}

		var invoice indexer.Invoice
		if err := json.Unmarshal([]byte(raw), &invoice); err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}

	return invoices, nil
}

// ReservedDestinations lists the deposit addresses backing pending invoices.
func (c *client) ReservedDestinations(ctx context.Context, configKey string) ([]string, error) {
	invoices, err := c.PendingInvoices(ctx, configKey)
	if err != nil {
		return nil, err
	}

	destinations := make([]string, 0, len(invoices))
	for _, invoice := range invoices {
		destinations = append(destinations, invoice.Destination)
	}

	return destinations, nil
}

// Ensure the client satisfies the invoice interfaces at compile time.
var (
	_ indexer.InvoiceStorage        = new(client)
	_ addresspool.ReservationSource = new(client)
)
