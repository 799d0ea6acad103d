package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"tourism-forecast/internal/app"
	"tourism-forecast/internal/services"
	"tourism-forecast/pkg/logging"
)

func main() {
	exportXLSX := flag.Bool("xlsx", false, "Also export the processed dataset as xlsx")
	flag.Parse()

	env := app.Load("tourism-preprocessor")
	cfg, logger := env.Config, env.Logger
	if *exportXLSX {
		cfg.Preprocess.ExportXLSX = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Fatal(ctx, "[PREPROCESSOR_ERROR] Failed to create data directories", logging.Fields{}, err)
	}

	pipeline := services.NewPipelineService(cfg, nil, logger, env.Metrics)
	summary, exported, err := pipeline.Preprocess(ctx)
	if err != nil {
		logger.Fatal(ctx, "[PREPROCESSOR_ERROR] Preprocessing failed", logging.Fields{
			"error": err.Error(),
		}, err)
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("PREPROCESSING COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Raw rows:        %d\n", summary.RawRows)
	fmt.Printf("Processed rows:  %d\n", summary.ProcessedRows)
	fmt.Printf("Countries:       %d\n", summary.Countries)
	fmt.Printf("Range:           %s .. %s\n", summary.ProcessedRange.Start, summary.ProcessedRange.End)
	fmt.Printf("Duplicates:      %d\n", summary.Duplicates)
	fmt.Printf("Imputed:         %d\n", summary.Imputed)
	fmt.Printf("Reindexed:       %d\n", summary.Reindexed)
	fmt.Printf("Clipped:         %d\n", summary.Clipped)
	reasons := make([]string, 0, len(summary.Dropped))
	for r := range summary.Dropped {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Printf("Dropped %-16s %d\n", r+":", summary.Dropped[r])
	}
	if exported != "" {
		fmt.Printf("Exported:        %s\n", exported)
	}
}
