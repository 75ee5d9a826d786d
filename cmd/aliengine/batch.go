package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"aliengine/internal/config"
	"aliengine/internal/engine"
)

// runBatchMode reads text from stdin, executes any embedded directives
// and writes the rewritten text to stdout. Useful for piping model
// output through the engine from scripts.
func runBatchMode(cfg *config.Config, logger zerolog.Logger) {
	if err := runBatch(cfg, logger); err != nil {
		logger.Error().Err(err).Msg("Batch mode failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runBatch(cfg *config.Config, logger zerolog.Logger) error {
	logger.Debug().Msg("Running in batch mode")

	input, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}

	eng := engine.New(cfg.EngineOptions(), logger)
	processed, results := eng.Process(context.Background(), string(input))

	for _, res := range results {
		logger.Info().
			Str("operation", res.Operation).
			Str("path", res.Path).
			Bool("success", res.Success).
			Msg("Executed directive")
	}

	fmt.Print(processed)
	return nil
}
