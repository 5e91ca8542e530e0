// Package main provides consolectl, the self-healing Microsoft 365
// management console. It authenticates app registrations to Microsoft Graph
// and Exchange Online, checks the on-disk installation for faults and
// repairs them with escalating remediation tiers.
//
// Example usage:
//
//	consolectl check --root /opt/console
//	consolectl run --once
//	consolectl run                      # daemon loop
//	consolectl repair --tier deep
//	consolectl connect graph
//
// Settings come from <root>/config/console.yaml, CONSOLE_* environment
// variables and a .env file in the working directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errFaultsFound) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}
