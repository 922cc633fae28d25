// Package cli exposes the usdtgate command surface: running the listener
// services, managing deposit address pools, inspecting node health, and
// converting addresses between their chain-native and hexadecimal forms.
package cli

import (
	"context"
	"os"

	"github.com/usdtgate/usdtgate/internal/addresspool"
	"github.com/usdtgate/usdtgate/internal/chainsummary"
	"github.com/usdtgate/usdtgate/internal/config"
	"github.com/usdtgate/usdtgate/internal/rpcpool"

	"github.com/urfave/cli/v3"
)

// Service is a long-running component managed by the start command.
type Service interface {
	Start(ctx context.Context) error
	Close()
}

// ConfigSource exposes the configured pairs.
type ConfigSource interface {
	Keys() []string
	Item(key string) (config.Item, bool)
}

// NodePool hands out the node client for a pair.
type NodePool interface {
	Client(key string) (rpcpool.Node, error)
}

// Run initializes and executes the usdtgate CLI application.
//
// It registers all available commands:
//
//   - `start`: runs the block listeners and chain summary loops.
//   - `addresses`: manages the deposit address pool per pair.
//   - `invoices`: registers invoices and inspects their payments.
//   - `status`: shows node health and pool balances.
//   - `addr`: converts and validates addresses.
func Run(
	ctx context.Context,
	configs ConfigSource,
	nodes NodePool,
	summaries *chainsummary.Service,
	addresses *addresspool.Service,
	invoices InvoiceStore,
	services ...Service,
) error {
	app := &cli.Command{
		EnableShellCompletion: true,
		Name:                  "usdtgate",
		Description:           "Command-line interface for the USDT payment gateway listener.",
		Usage:                 "usdtgate [command] [flags]",
		Commands: []*cli.Command{
			startCommand(services),
			addressesCommand(addresses),
			invoicesCommand(addresses, invoices),
			statusCommand(configs, nodes, summaries, addresses),
			addrCommand(),
		},
	}

	return app.Run(ctx, os.Args)
}
