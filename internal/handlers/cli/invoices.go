package cli

import (
	"context"
	"fmt"

	"github.com/usdtgate/usdtgate/internal/addresspool"
	"github.com/usdtgate/usdtgate/internal/indexer"
	"github.com/usdtgate/usdtgate/internal/payments"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
)

// InvoiceStore persists invoices and exposes the payments credited to them.
type InvoiceStore interface {
	SaveInvoice(ctx context.Context, configKey string, invoice indexer.Invoice) error
	GetInvoice(ctx context.Context, configKey, invoiceID string) (indexer.Invoice, error)
	CompleteInvoice(ctx context.Context, configKey, invoiceID string) error
	InvoicePayments(ctx context.Context, configKey, invoiceID string) ([]payments.Payment, error)
}

// parseSpeedPolicy validates a policy name supplied on the command line.
func parseSpeedPolicy(s string) (payments.SpeedPolicy, error) {
	switch policy := payments.SpeedPolicy(s); policy {
	case payments.HighSpeed, payments.MediumSpeed, payments.LowMediumSpeed, payments.LowSpeed:
		return policy, nil
	default:
		return "", fmt.Errorf("unknown speed policy %q", s)
	}
}

// invoicesCommand returns the CLI command group for registering invoices
// with the listener. Creating an invoice reserves a free pool address;
// completing it releases the address for reuse.
//
// Usage examples:
//
//	usdtgate invoices create --pair USDT_TRON --policy HighSpeed --activate
//	usdtgate invoices show --pair USDT_TRON 6a1f...
func invoicesCommand(addresses *addresspool.Service, invoices InvoiceStore) *cli.Command {
	return &cli.Command{
		Name:        "invoices",
		Description: "Register invoices for payment detection and inspect their payments.",
		Usage:       "usdtgate invoices [create|activate|complete|show] --pair KEY [id]",
		Commands: []*cli.Command{
			{
				Name:        "create",
				Description: "Allocate a free deposit address and register a new invoice on it.",
				Usage:       "Prints the invoice id and its deposit address.",
				Flags: []cli.Flag{
					pairFlag(),
					&cli.StringFlag{
						Name:  "policy",
						Usage: "Speed policy (HighSpeed, MediumSpeed, LowMediumSpeed, LowSpeed)",
						Value: string(payments.MediumSpeed),
					},
					&cli.BoolFlag{
						Name:  "activate",
						Usage: "Activate the payment prompt immediately",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					policy, err := parseSpeedPolicy(c.String("policy"))
					if err != nil {
						return err
					}

					key := c.String("pair")
					destination, err := addresses.OneNotReserved(ctx, key)
					if err != nil {
						return err
					}

					invoice := indexer.Invoice{
						ID:          uuid.NewString(),
						Destination: destination,
						SpeedPolicy: policy,
						Activated:   c.Bool("activate"),
					}
					if err := invoices.SaveInvoice(ctx, key, invoice); err != nil {
						return err
					}

					fmt.Printf("invoice: %s\naddress: %s\n", invoice.ID, invoice.Destination)
					return nil
				},
			},
			{
				Name:        "activate",
				Description: "Activate the payment prompt of an existing invoice.",
				Usage:       "The listener only credits transfers to activated invoices.",
				Flags:       []cli.Flag{pairFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					key := c.String("pair")
					invoice, err := invoices.GetInvoice(ctx, key, c.Args().First())
					if err != nil {
						return err
					}

					invoice.Activated = true
					return invoices.SaveInvoice(ctx, key, invoice)
				},
			},
			{
				Name:        "complete",
				Description: "Mark an invoice as done watching.",
				Usage:       "Releases the invoice's deposit address back to the pool.",
				Flags:       []cli.Flag{pairFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return invoices.CompleteInvoice(ctx, c.String("pair"), c.Args().First())
				},
			},
			{
				Name:        "show",
				Description: "Print an invoice and every payment credited to it.",
				Usage:       "usdtgate invoices show --pair KEY id",
				Flags:       []cli.Flag{pairFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					key := c.String("pair")
					invoice, err := invoices.GetInvoice(ctx, key, c.Args().First())
					if err != nil {
						return err
					}

					fmt.Printf("invoice: %s\naddress: %s\npolicy:  %s\nactive:  %t\n",
						invoice.ID,
						invoice.Destination,
						invoice.SpeedPolicy,
						invoice.Activated,
					)

					credited, err := invoices.InvoicePayments(ctx, key, invoice.ID)
					if err != nil {
						return err
					}

					for _, payment := range credited {
						fmt.Printf("payment %s: %s %s %s confirmations=%d\n",
							payment.ID,
							payment.Amount.String(),
							payment.Currency,
							payment.Status,
							payment.Details.ConfirmationCount,
						)
					}
					return nil
				},
			},
		},
	}
}
