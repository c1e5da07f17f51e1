// ABOUTME: CLI entry point for gitstaller
// ABOUTME: Cancels in-flight git and build commands on interrupt and maps failures to exit code 1

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mauromedda/gitstaller/internal/cli"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, cli.BuildInfo{Version: version, Commit: commit, Date: date}, os.Args[1:])
	stop()
	os.Exit(code)
}
