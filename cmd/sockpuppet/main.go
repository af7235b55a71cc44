// File: cmd/sockpuppet/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/xkilldash9x/sockpuppet-cli/cmd"
	"github.com/xkilldash9x/sockpuppet-cli/internal/observability"
)

const panicLogFile = "panic.log"

// Swappable for tests.
var (
	osWriteFile = os.WriteFile
	osExit      = os.Exit
)

func main() {
	defer handlePanic()

	// Ctrl+C and SIGTERM cancel the run context; everything downstream
	// shuts down through it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Graceful interrupt, not a failure.
			osExit(130)
		}
		osExit(1)
	}
}

// handlePanic records the panic and stack to a local file before dying, so
// a crash in a long unattended run leaves something to debug from.
func handlePanic() {
	r := recover()
	if r == nil {
		return
	}

	report := fmt.Sprintf("panic at %s: %v\n\n%s\n",
		time.Now().Format(time.RFC3339), r, debug.Stack())

	if err := osWriteFile(panicLogFile, []byte(report), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", panicLogFile, err)
	}
	fmt.Fprintf(os.Stderr, "fatal: %v (stack written to %s)\n", r, panicLogFile)
	osExit(2)
}
