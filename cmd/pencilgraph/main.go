package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pencilgraph/internal/cli"
	pgerrors "github.com/matzehuels/pencilgraph/pkg/errors"
)

// Exit codes.
const (
	exitError       = 1
	exitConfig      = 2   // unusable preferences
	exitInterrupted = 130 // shell convention for SIGINT
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			os.Exit(exitInterrupted)
		case pgerrors.Is(err, pgerrors.ErrCodeInvalidConfig):
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitConfig)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
	}
}

func run(ctx context.Context) error {
	var verbose bool

	c := cli.New(os.Stderr, cli.LogInfo)
	root := c.RootCommand()
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	// The level must be set before the root's own pre-run loads preferences.
	prerun := root.PersistentPreRunE
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if verbose {
			c.SetLogLevel(cli.LogDebug)
		}
		if prerun != nil {
			return prerun(cmd, args)
		}
		return nil
	}

	return root.ExecuteContext(ctx)
}
