package cli

import (
	"context"
	"fmt"

	"github.com/usdtgate/usdtgate/internal/addresspool"
	"github.com/usdtgate/usdtgate/internal/chainsummary"
	"github.com/usdtgate/usdtgate/internal/payments"

	"github.com/urfave/cli/v3"
)

// statusCommand returns a CLI command that refreshes and prints each pair's
// node health, optionally with the token balance of every pool address.
//
// Usage example:
//
//	usdtgate status --balances
func statusCommand(configs ConfigSource, nodes NodePool, summaries *chainsummary.Service, addresses *addresspool.Service) *cli.Command {
	return &cli.Command{
		Name:        "status",
		Description: "Shows node availability, sync progress, and listener position per pair.",
		Usage:       "Prints the current chain summary for every configured pair.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "balances",
				Usage: "Also fetch the token balance of every pool address",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			for _, key := range configs.Keys() {
				if err := summaries.Refresh(ctx, key); err != nil {
					return err
				}

				summary, ok := summaries.Summary(key)
				if !ok {
					fmt.Printf("%s: listener has never run\n", key)
					continue
				}

				fmt.Printf("%s: available=%t rpc=%t synced=%t highest=%d scanned=%d\n",
					key,
					summary.Available(),
					summary.RPCAvailable,
					summary.Synced,
					summary.HighestBlock,
					summary.LastScannedBlock,
				)

				if !c.Bool("balances") {
					continue
				}

				if err := printBalances(ctx, configs, nodes, addresses, key); err != nil {
					return err
				}
			}

			return nil
		},
	}
}

// printBalances prints the token balance of every pool address of a pair.
func printBalances(ctx context.Context, configs ConfigSource, nodes NodePool, addresses *addresspool.Service, key string) error {
	item, ok := configs.Item(key)
	if !ok {
		return nil
	}

	strategy, err := item.Strategy()
	if err != nil {
		return err
	}

	node, err := nodes.Client(key)
	if err != nil {
		return err
	}

	pool, err := addresses.List(ctx, key)
	if err != nil {
		return err
	}

	contract, err := strategy.Codec().ToCanonical(item.ContractAddress)
	if err != nil {
		return err
	}

	for _, address := range pool {
		canonical, err := strategy.Codec().ToCanonical(address)
		if err != nil {
			fmt.Printf("  %s: invalid address\n", address)
			continue
		}

		raw, err := node.BalanceOf(ctx, contract, canonical)
		if err != nil {
			fmt.Printf("  %s: balance unavailable (%v)\n", address, err)
			continue
		}

		amount := payments.AmountFromBaseUnits(raw, item.Divisibility)
		fmt.Printf("  %s: %s %s\n", address, amount.String(), item.Currency)
	}

	return nil
}
