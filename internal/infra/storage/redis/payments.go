package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/usdtgate/usdtgate/internal/indexer"
	"github.com/usdtgate/usdtgate/internal/payments"

	"github.com/redis/go-redis/v9"
)

// paymentKey builds the Redis key for one payment record.
func paymentKey(configKey, paymentID string) string {
	return fmt.Sprintf("%s:payment:%s:%s", keyPrefix, configKey, paymentID)
}

// invoicePaymentsKey builds the Redis key for the set of payment ids
// belonging to one invoice.
func invoicePaymentsKey(configKey, invoiceID string) string {
	return fmt.Sprintf("%s:invoice-payments:%s:%s", keyPrefix, configKey, invoiceID)
}

// processingPaymentsKey builds the Redis key for the set of payment ids not
// yet settled on a pair.
func processingPaymentsKey(configKey string) string {
	return fmt.Sprintf("%s:processing-payments:%s", keyPrefix, configKey)
}

// AddPayment inserts a payment record if its id is new, reporting whether
// the insert happened. A payment seen again while reprocessing a block is
// left untouched.
func (c *client) AddPayment(ctx context.Context, configKey string, payment payments.Payment) (bool, error) {
	data, err := json.Marshal(payment)
	if err != nil {
		return false, err
	}

	inserted, err := c.conn.SetNX(ctx, paymentKey(configKey, payment.ID), data, 0).Result()
	if err != nil || !inserted {
		return false, err
	}

	_, err = c.conn.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, invoicePaymentsKey(configKey, payment.InvoiceID), payment.ID)
		if payment.Status == payments.StatusProcessing {
			pipe.SAdd(ctx, processingPaymentsKey(configKey), payment.ID)
		}
		return nil
	})
	return true, err
}

// ProcessingPayments lists every payment on a pair still waiting for
// confirmations.
func (c *client) ProcessingPayments(ctx context.Context, configKey string) ([]payments.Payment, error) {
	ids, err := c.conn.SMembers(ctx, processingPaymentsKey(configKey)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = paymentKey(configKey, id)
	}

	records, err := c.conn.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	result := make([]payments.Payment, 0, len(records))
	for _, record := range records {
		raw, ok := record.(string)
		if !ok {
			continue
		}

		var payment payments.Payment
		if err := json.Unmarshal([]byte(raw), &payment); err != nil {
			return nil, err
		}
		result = append(result, payment)
	}

	return result, nil
}

// UpdatePayments overwrites the given payment records. Payments that settled
// leave the processing set.
func (c *client) UpdatePayments(ctx context.Context, configKey string, updates []payments.Payment) error {
	if len(updates) == 0 {
		return nil
	}

	_, err := c.conn.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, payment := range updates {
			data, err := json.Marshal(payment)
			if err != nil {
				return err
			}

			pipe.Set(ctx, paymentKey(configKey, payment.ID), data, 0)
			if payment.Status == payments.StatusSettled {
				pipe.SRem(ctx, processingPaymentsKey(configKey), payment.ID)
			}
		}
		return nil
	})
	return err
}

// InvoicePayments lists every payment recorded for one invoice.
func (c *client) InvoicePayments(ctx context.Context, configKey, invoiceID string) ([]payments.Payment, error) {
	ids, err := c.conn.SMembers(ctx, invoicePaymentsKey(configKey, invoiceID)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = paymentKey(configKey, id)
	}

	records, err := c.conn.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	result := make([]payments.Payment, 0, len(records))
	for _, record := range records {
		raw, ok := record.(string)
		if !ok {
			continue
		}

		var payment payments.Payment
		if err := json.Unmarshal([]byte(raw), &payment); err != nil {
			return nil, err
		}
		result = append(result, payment)
	}

	return result, nil
}

// Ensure the client satisfies the payment storage interface at compile time.
var _ indexer.PaymentStorage = new(client)
