// Command sagagraph lays out and renders saga relationship graphs, answers
// path and analytics queries, and serves the HTTP API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

var version = "0.4.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		bad.Fprintf(os.Stderr, "sagagraph: %v\n", err)
		stop()
		os.Exit(1)
	}
}
