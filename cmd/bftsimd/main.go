package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rbbnet/bftsim/cmd/bftsimd/cli"
	"github.com/rbbnet/bftsim/internal/simerrors"
)

// Exit codes distinguish configuration problems (fixable by the operator
// before rerunning) from invariant violations (a bug in the simulator
// itself) from everything else (I/O, flag parsing, etc).
const (
	exitOK = iota
	exitGeneric
	exitInvalidConfig
	exitInvariantViolation
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.New()
	root.SilenceUsage = true
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, simerrors.ErrInvalidConfig):
		return exitInvalidConfig
	case errors.Is(err, simerrors.ErrInvariantViolation):
		return exitInvariantViolation
	default:
		return exitGeneric
	}
}
