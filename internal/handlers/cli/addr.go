package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/usdtgate/usdtgate/internal/chain"

	"github.com/urfave/cli/v3"
)

// chainFlag selects the chain whose address codec a command uses.
func chainFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "chain",
		Usage:    "Chain name (Tron or Ethereum)",
		Required: true,
	}
}

// addrCommand returns the CLI command group for address codec utilities.
//
// Usage examples:
//
//	usdtgate addr convert --chain Tron TG3XXyExBkPp9nzdajDZsozEu4BkaSJozs
//	usdtgate addr validate --chain Tron TG3XXyExBkPp9nzdajDZsozEu4BkaSJozs
func addrCommand() *cli.Command {
	return &cli.Command{
		Name:        "addr",
		Description: "Convert and validate addresses for a chain.",
		Usage:       "usdtgate addr [convert|validate] --chain NAME address",
		Commands: []*cli.Command{
			{
				Name:        "convert",
				Description: "Print the chain-native and hexadecimal forms of an address.",
				Usage:       "Accepts either form and prints both.",
				Flags:       []cli.Flag{chainFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					strategy, err := chain.ByName(c.String("chain"))
					if err != nil {
						return err
					}

					address := c.Args().First()
					codec := strategy.Codec()

					canonical := address
					if !strings.HasPrefix(address, "0x") {
						if canonical, err = codec.ToCanonical(address); err != nil {
							return err
						}
					}

					native, err := codec.ToNative(canonical)
					if err != nil {
						return err
					}

					fmt.Printf("native: %s\nhex:    %s\n", native, strings.ToLower(canonical))
					return nil
				},
			},
			{
				Name:        "validate",
				Description: "Check whether an address is well formed for the chain.",
				Usage:       "Exits non-zero for a malformed address.",
				Flags:       []cli.Flag{chainFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					strategy, err := chain.ByName(c.String("chain"))
					if err != nil {
						return err
					}

					address := c.Args().First()
					if !strategy.Codec().IsValid(address) {
						return fmt.Errorf("%w: %q", chain.ErrInvalidAddress, address)
					}

					fmt.Printf("%s is a valid %s address\n", address, strategy.Name())
					return nil
				},
			},
		},
	}
}
