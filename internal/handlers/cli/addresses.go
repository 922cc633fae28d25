package cli

import (
	"context"
	"fmt"

	"github.com/usdtgate/usdtgate/internal/addresspool"

	"github.com/urfave/cli/v3"
)

// pairFlag selects the chain/token pair a command operates on.
func pairFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "pair",
		Usage:    "Chain/token pair key (e.g., USDT_TRON)",
		Required: true,
	}
}

// addressesCommand returns the CLI command group managing the deposit
// address pool of a pair.
//
// Usage examples:
//
//	usdtgate addresses add --pair USDT_TRON TG3XXyExBkPp9nzdajDZsozEu4BkaSJozs
//	usdtgate addresses list --pair USDT_TRON
func addressesCommand(addresses *addresspool.Service) *cli.Command {
	return &cli.Command{
		Name:        "addresses",
		Description: "Manage the pool of deposit addresses handed out to invoices.",
		Usage:       "usdtgate addresses [add|remove|list|reserved] --pair KEY [address...]",
		Commands: []*cli.Command{
			{
				Name:        "add",
				Description: "Validate and add one or more chain-native addresses to the pool.",
				Usage:       "Adds deposit addresses. Nothing is added if any address is malformed.",
				Flags:       []cli.Flag{pairFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return addresses.Add(ctx, c.String("pair"), c.Args().Slice()...)
				},
			},
			{
				Name:        "remove",
				Description: "Remove one or more addresses from the pool.",
				Usage:       "Removes deposit addresses. Invoices already using them are unaffected.",
				Flags:       []cli.Flag{pairFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return addresses.Remove(ctx, c.String("pair"), c.Args().Slice()...)
				},
			},
			{
				Name:        "list",
				Description: "List every address in the pool.",
				Usage:       "Prints all pool addresses, reserved or not.",
				Flags:       []cli.Flag{pairFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					pool, err := addresses.List(ctx, c.String("pair"))
					if err != nil {
						return err
					}

					for _, address := range pool {
						fmt.Println(address)
					}
					return nil
				},
			},
			{
				Name:        "reserved",
				Description: "List the pool addresses currently backing pending invoices.",
				Usage:       "Prints reserved pool addresses.",
				Flags:       []cli.Flag{pairFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					reserved, err := addresses.Reserved(ctx, c.String("pair"))
					if err != nil {
						return err
					}

					for _, address := range reserved {
						fmt.Println(address)
					}
					return nil
				},
			},
		},
	}
}
