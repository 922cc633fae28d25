package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

// startCommand returns a CLI command that starts every long-running service:
// the RPC pool watcher, the block listeners, and the chain summary loops.
//
// Usage example:
//
//	usdtgate start
//
// The process runs until it receives an interrupt (SIGINT or SIGTERM).
func startCommand(services []Service) *cli.Command {
	return &cli.Command{
		Name:        "start",
		Description: "Starts the block listeners and node health monitoring for every configured pair.",
		Usage:       "Runs the gateway services. Terminates gracefully on Ctrl+C or termination signals.",
		Action: func(ctx context.Context, c *cli.Command) error {
			quit := make(chan os.Signal, 1)
			defer close(quit)

			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			for _, service := range services {
				if err := service.Start(ctx); err != nil {
					return err
				}
				defer service.Close()
			}

			<-quit
			return nil
		},
	}
}
