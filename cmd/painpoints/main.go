package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/theimaginaryfoundation/painpoint-miner/painpoints"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cc := newCommandContext(os.Stdout, os.Stderr, os.Getenv)
	cc.loadDotEnv = true
	code := execute(ctx, cc, os.Args[1:])
	stop()
	os.Exit(code)
}

// execute runs the command line and maps the outcome to an exit code:
// 2 for usage and precondition errors, 1 for runtime failures.
func execute(ctx context.Context, cc *commandContext, args []string) int {
	root := newRootCommand(cc)
	root.SetArgs(args)
	root.SetOut(cc.stdout)
	root.SetErr(cc.stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(cc.stderr, "error:", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	var usage *usageError
	var pre *painpoints.PreconditionError
	if errors.As(err, &usage) || errors.As(err, &pre) {
		return 2
	}
	return 1
}

// usageError marks bad flags, arguments or settings.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}
