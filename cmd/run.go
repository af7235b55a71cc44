// -- cmd/run.go --
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/sockpuppet-cli/api/schemas"
	"github.com/xkilldash9x/sockpuppet-cli/internal/observability"
	"github.com/xkilldash9x/sockpuppet-cli/internal/orchestrator"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// runSession builds the component graph, establishes the session, runs fn,
// and tears everything down. Every action subcommand funnels through here so
// a run is always exactly one session.
func runSession(ctx context.Context, fn func(ctx context.Context, orch *orchestrator.Orchestrator) error) error {
	logger := observability.GetLogger()

	components, err := factory.Create(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer components.Shutdown()

	orch := components.Orchestrator
	if err := orch.Init(ctx); err != nil {
		return fmt.Errorf("failed to establish session: %w", err)
	}
	return fn(ctx, orch)
}

// parseTone validates a --tone flag value.
func parseTone(raw string) (schemas.CommentTone, error) {
	tone := schemas.CommentTone(strings.ToLower(strings.TrimSpace(raw)))
	if !tone.Valid() {
		return "", fmt.Errorf("unknown tone %q (supported: casual, funny, serious, sarcastic, enthusiastic)", raw)
	}
	return tone, nil
}

// emitJSON writes v as indented JSON to stdout, or to path when non-empty.
func emitJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
