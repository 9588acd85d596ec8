// provision runs the workstation checklist against the local
// machine.
//
// Usage:
//
//	provision check [--format=text|markdown|json]
//	provision apply [--elevate] [--monitor=127.0.0.1:8090]
//	provision list
//	provision config
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, &globalOptions{})
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit
// code.
func run(
	ctx context.Context,
	args []string,
	stdout, stderr io.Writer,
	opts *globalOptions,
) int {
	opts.args = args
	root := newRootCmd(opts)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(stderr, "Error:", ee.err)
		}
		return ee.code
	}
	fmt.Fprintln(stderr, "Error:", err)
	return exitUsage
}
