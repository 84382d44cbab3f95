/*
PURPOSE:
  Entry point for the gauge-bench binary.
  Wires OS signals into a context and hands control to the CLI.

REQUIREMENTS:
  User-specified:
  - Single binary entry point.
  - Errors print as "Error: ..." and exit with status 1.

  Implementation-discovered:
  - Ctrl-C must cancel in-flight model requests so no run is committed
    half way.

ARCHITECTURE INTEGRATION:
  - Calls: internal/cli.Execute()

ERROR HANDLING:
  - Explicit error check on Execute(); exit code 1 on failure.

IMPLEMENTATION RULES:
  - Keep main() minimal. All logic belongs in internal/ packages.

USAGE:
  go build -o gauge-bench ./cmd/gauge-bench
  ./gauge-bench run --model openai/gpt-4o

SELF-HEALING INSTRUCTIONS:
  - If CLI fails to start, check internal/cli/root.go definition.

RELATED FILES:
  - internal/cli/root.go

MAINTENANCE:
  - Update when changing high-level signal handling.
*/

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/daryltucker/gauge-bench/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
