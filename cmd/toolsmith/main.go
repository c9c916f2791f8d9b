package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/ZebulonRouseFrantzich/toolsmith/internal/binary"
	"github.com/ZebulonRouseFrantzich/toolsmith/internal/config"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0-dev"

// Exit codes
const (
	exitOK       = 0
	exitError    = 1
	exitNotFound = 2
	exitNetwork  = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the CLI and returns the process exit code
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &options{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", config.FormatError(err, opts.verbose))
		return exitCode(err)
	}
	return exitOK
}

// exitCode maps error kinds onto distinct exit statuses for scripts
func exitCode(err error) int {
	switch {
	case errors.Is(err, binary.ErrNotFound):
		return exitNotFound
	case errors.Is(err, binary.ErrNetwork),
		errors.Is(err, binary.ErrHTTPStatus),
		errors.Is(err, binary.ErrAllMirrorsFailed):
		return exitNetwork
	default:
		return exitError
	}
}
