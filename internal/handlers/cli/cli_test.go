package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/usdtgate/usdtgate/internal/addresspool"
	"github.com/usdtgate/usdtgate/internal/config"
	"github.com/usdtgate/usdtgate/internal/indexer"
	"github.com/usdtgate/usdtgate/internal/payments"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func TestAddrCommand(t *testing.T) {
	t.Run("should create command with correct metadata", func(t *testing.T) {
		cmd := addrCommand()

		assert.Equal(t, "addr", cmd.Name)
		require.Len(t, cmd.Commands, 2)
		assert.Equal(t, "convert", cmd.Commands[0].Name)
		assert.Equal(t, "validate", cmd.Commands[1].Name)
	})

	t.Run("validate accepts a well formed address", func(t *testing.T) {
		app := &cli.Command{Commands: []*cli.Command{addrCommand()}}

		err := app.Run(t.Context(), []string{"test", "addr", "validate", "--chain", "Tron", "TG3XXyExBkPp9nzdajDZsozEu4BkaSJozs"})
		assert.NoError(t, err)
	})

	t.Run("validate rejects a malformed address", func(t *testing.T) {
		app := &cli.Command{Commands: []*cli.Command{addrCommand()}}

		err := app.Run(t.Context(), []string{"test", "addr", "validate", "--chain", "Tron", "not-an-address"})
		assert.Error(t, err)
	})

	t.Run("convert accepts both forms", func(t *testing.T) {
		app := &cli.Command{Commands: []*cli.Command{addrCommand()}}

		err := app.Run(t.Context(), []string{"test", "addr", "convert", "--chain", "Tron", "TG3XXyExBkPp9nzdajDZsozEu4BkaSJozs"})
		assert.NoError(t, err)

		err = app.Run(t.Context(), []string{"test", "addr", "convert", "--chain", "Tron", "0x42a1e39aefa49290f2b3f9ed688d7cecf86cd6e0"})
		assert.NoError(t, err)
	})

	t.Run("unknown chain fails", func(t *testing.T) {
		app := &cli.Command{Commands: []*cli.Command{addrCommand()}}

		err := app.Run(t.Context(), []string{"test", "addr", "validate", "--chain", "Solana", "whatever"})
		assert.Error(t, err)
	})
}

type fakeConfigs struct{}

func (fakeConfigs) Keys() []string { return []string{"USDT_TRON"} }

func (fakeConfigs) Item(key string) (config.Item, bool) {
	if key != "USDT_TRON" {
		return config.Item{}, false
	}
	return config.Item{
		Chain:           "Tron",
		Currency:        "USDT",
		JSONRPCURL:      "https://api.trongrid.io/jsonrpc",
		ContractAddress: "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",
		Divisibility:    6,
	}, true
}

type fakeAddresses struct {
	pool []string
}

func (f *fakeAddresses) AddAddresses(ctx context.Context, configKey string, addresses ...string) error {
	f.pool = append(f.pool, addresses...)
	return nil
}

func (f *fakeAddresses) RemoveAddresses(ctx context.Context, configKey string, addresses ...string) error {
	return nil
}

func (f *fakeAddresses) ListAddresses(ctx context.Context, configKey string) ([]string, error) {
	return f.pool, nil
}

type fakeReservations struct{}

func (fakeReservations) ReservedDestinations(ctx context.Context, configKey string) ([]string, error) {
	return nil, nil
}

func TestAddressesCommand(t *testing.T) {
	t.Run("add validates through the pool service", func(t *testing.T) {
		storage := &fakeAddresses{}
		pool := addresspool.New(fakeConfigs{}, storage, fakeReservations{})

		app := &cli.Command{Commands: []*cli.Command{addressesCommand(pool)}}

		err := app.Run(t.Context(), []string{"test", "addresses", "add", "--pair", "USDT_TRON", "TG3XXyExBkPp9nzdajDZsozEu4BkaSJozs"})
		require.NoError(t, err)
		assert.Equal(t, []string{"TG3XXyExBkPp9nzdajDZsozEu4BkaSJozs"}, storage.pool)
	})

	t.Run("add surfaces malformed addresses", func(t *testing.T) {
		pool := addresspool.New(fakeConfigs{}, &fakeAddresses{}, fakeReservations{})

		app := &cli.Command{Commands: []*cli.Command{addressesCommand(pool)}}

		err := app.Run(t.Context(), []string{"test", "addresses", "add", "--pair", "USDT_TRON", "bogus"})
		assert.Error(t, err)
	})

	t.Run("pair flag is required", func(t *testing.T) {
		pool := addresspool.New(fakeConfigs{}, &fakeAddresses{}, fakeReservations{})

		app := &cli.Command{Commands: []*cli.Command{addressesCommand(pool)}}

		err := app.Run(t.Context(), []string{"test", "addresses", "list"})
		assert.Error(t, err)
	})
}

type fakeInvoiceStore struct {
	invoices  map[string]indexer.Invoice
	completed []string
}

func newFakeInvoiceStore() *fakeInvoiceStore {
	return &fakeInvoiceStore{invoices: make(map[string]indexer.Invoice)}
}

func (f *fakeInvoiceStore) SaveInvoice(ctx context.Context, configKey string, invoice indexer.Invoice) error {
	f.invoices[invoice.ID] = invoice
	return nil
}

func (f *fakeInvoiceStore) GetInvoice(ctx context.Context, configKey, invoiceID string) (indexer.Invoice, error) {
	invoice, ok := f.invoices[invoiceID]
	if !ok {
		return indexer.Invoice{}, errors.New("invoice not found")
	}
	return invoice, nil
}

func (f *fakeInvoiceStore) CompleteInvoice(ctx context.Context, configKey, invoiceID string) error {
	f.completed = append(f.completed, invoiceID)
	return nil
}

func (f *fakeInvoiceStore) InvoicePayments(ctx context.Context, configKey, invoiceID string) ([]payments.Payment, error) {
	return nil, nil
}

// ReservedDestinations lets the store double as the reservation source, the
// same shape the Redis adapter has.
func (f *fakeInvoiceStore) ReservedDestinations(ctx context.Context, configKey string) ([]string, error) {
	destinations := make([]string, 0, len(f.invoices))
	for _, invoice := range f.invoices {
		destinations = append(destinations, invoice.Destination)
	}
	return destinations, nil
}

func TestInvoicesCommand(t *testing.T) {
	const depositAddress = "TG3XXyExBkPp9nzdajDZsozEu4BkaSJozs"

	newApp := func(store *fakeInvoiceStore, poolAddresses ...string) *cli.Command {
		pool := addresspool.New(fakeConfigs{}, &fakeAddresses{pool: poolAddresses}, store)
		return &cli.Command{Commands: []*cli.Command{invoicesCommand(pool, store)}}
	}

	t.Run("create reserves a free address", func(t *testing.T) {
		store := newFakeInvoiceStore()
		app := newApp(store, depositAddress)

		err := app.Run(t.Context(), []string{"test", "invoices", "create", "--pair", "USDT_TRON", "--policy", "HighSpeed", "--activate"})
		require.NoError(t, err)

		require.Len(t, store.invoices, 1)
		for _, invoice := range store.invoices {
			assert.Equal(t, depositAddress, invoice.Destination)
			assert.Equal(t, payments.HighSpeed, invoice.SpeedPolicy)
			assert.True(t, invoice.Activated)
		}
	})

	t.Run("create fails when every address is reserved", func(t *testing.T) {
		store := newFakeInvoiceStore()
		app := newApp(store, depositAddress)

		err := app.Run(t.Context(), []string{"test", "invoices", "create", "--pair", "USDT_TRON"})
		require.NoError(t, err)

		err = app.Run(t.Context(), []string{"test", "invoices", "create", "--pair", "USDT_TRON"})
		assert.ErrorIs(t, err, addresspool.ErrAllAddressesReserved)
	})

	t.Run("create rejects an unknown policy", func(t *testing.T) {
		store := newFakeInvoiceStore()
		app := newApp(store, depositAddress)

		err := app.Run(t.Context(), []string{"test", "invoices", "create", "--pair", "USDT_TRON", "--policy", "WarpSpeed"})
		assert.Error(t, err)
		assert.Empty(t, store.invoices)
	})

	t.Run("activate flips the prompt on", func(t *testing.T) {
		store := newFakeInvoiceStore()
		store.invoices["inv-1"] = indexer.Invoice{ID: "inv-1", Destination: depositAddress}
		app := newApp(store, depositAddress)

		err := app.Run(t.Context(), []string{"test", "invoices", "activate", "--pair", "USDT_TRON", "inv-1"})
		require.NoError(t, err)
		assert.True(t, store.invoices["inv-1"].Activated)
	})

	t.Run("complete releases the invoice", func(t *testing.T) {
		store := newFakeInvoiceStore()
		app := newApp(store, depositAddress)

		err := app.Run(t.Context(), []string{"test", "invoices", "complete", "--pair", "USDT_TRON", "inv-1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"inv-1"}, store.completed)
	})

	t.Run("show prints a stored invoice", func(t *testing.T) {
		store := newFakeInvoiceStore()
		store.invoices["inv-1"] = indexer.Invoice{
			ID:          "inv-1",
			Destination: depositAddress,
			SpeedPolicy: payments.LowSpeed,
		}
		app := newApp(store, depositAddress)

		err := app.Run(t.Context(), []string{"test", "invoices", "show", "--pair", "USDT_TRON", "inv-1"})
		assert.NoError(t, err)

		err = app.Run(t.Context(), []string{"test", "invoices", "show", "--pair", "USDT_TRON", "missing"})
		assert.Error(t, err)
	})
}
