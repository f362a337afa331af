package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matzehuels/cardcrop/internal/cli"
	cerrors "github.com/matzehuels/cardcrop/pkg/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := run(ctx)
	if err == nil {
		return
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "Error:", cerrors.UserMessage(err))
	}
	os.Exit(exitCode(err))
}

// exitCode maps err to a process status: 130 for an interrupt, 2 for bad
// settings or arguments, 1 otherwise.
func exitCode(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return 130
	case cerrors.Is(err, cerrors.ErrCodeConfig),
		cerrors.Is(err, cerrors.ErrCodeInvalidInput),
		cerrors.Is(err, cerrors.ErrCodeInvalidPath):
		return 2
	}
	return 1
}

func run(ctx context.Context) error {
	c := cli.New(os.Stderr, cli.LogInfo)
	root := c.RootCommand()
	root.SilenceErrors = true

	verbose := root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	root.PersistentPreRun = func(*cobra.Command, []string) {
		if *verbose {
			c.SetLogLevel(cli.LogDebug)
		}
	}
	return root.ExecuteContext(ctx)
}
