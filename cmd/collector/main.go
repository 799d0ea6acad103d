package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"tourism-forecast/internal/app"
	"tourism-forecast/internal/services"
	"tourism-forecast/pkg/logging"
)

func main() {
	inbox := flag.String("inbox", "", "Directory of CSV/XLSX files to collect (overrides paths.inbox_dir)")
	noSynthetic := flag.Bool("no-synthetic", false, "Disable the synthetic fallback")
	flag.Parse()

	env := app.Load("tourism-collector")
	cfg, logger := env.Config, env.Logger
	if *inbox != "" {
		cfg.Paths.InboxDir = *inbox
	}
	if *noSynthetic {
		cfg.Collector.EnableSynthetic = false
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)

	logger.Info(ctx, "[COLLECTOR_START] Starting data collection", logging.Fields{
		"version":    app.Version,
		"raw_file":   cfg.Paths.RawFile(),
		"inbox":      cfg.Paths.InboxDir,
		"source_url": cfg.Collector.SourceURL,
		"synthetic":  cfg.Collector.EnableSynthetic,
	})

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Fatal(ctx, "[COLLECTOR_ERROR] Failed to create data directories", logging.Fields{}, err)
	}

	repo, closeDB, err := env.OpenRepository(ctx)
	if err != nil {
		logger.Fatal(ctx, "[COLLECTOR_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer closeDB()

	pipeline := services.NewPipelineService(cfg, repo, logger, env.Metrics)
	result, err := pipeline.Collect(ctx, runID)
	if err != nil {
		logger.Fatal(ctx, "[COLLECTION_ERROR] Collection failed", logging.Fields{
			"error": err.Error(),
		}, err)
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("COLLECTION COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	for source, n := range result.BySource {
		fmt.Printf("%-20s %d records\n", source+":", n)
	}
	fmt.Printf("Appended:           %d\n", result.Appended)
	fmt.Printf("Mirrored:           %d\n", result.Mirrored)
	fmt.Printf("Synthetic fallback: %v\n", result.Fallback)
	fmt.Printf("Duration:           %v\n", result.Duration)
	if len(result.Failed) > 0 {
		fmt.Printf("\nFailed sources (%d):\n", len(result.Failed))
		for _, s := range result.Failed {
			fmt.Printf("  - %s\n", s)
		}
	}
}
