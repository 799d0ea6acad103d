package main

import (
	"context"
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
	env := app.Load("tourism-trainer")
	cfg, logger := env.Config, env.Logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Fatal(ctx, "[TRAINER_ERROR] Failed to create data directories", logging.Fields{}, err)
	}

	repo, closeDB, err := env.OpenRepository(ctx)
	if err != nil {
		logger.Fatal(ctx, "[TRAINER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer closeDB()

	pipeline := services.NewPipelineService(cfg, repo, logger, env.Metrics)
	out, err := pipeline.Train(ctx, runID)
	if err != nil {
		logger.Fatal(ctx, "[TRAINER_ERROR] Training failed", logging.Fields{
			"error": err.Error(),
		}, err)
	}

	report := out.Report
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("TRAINING COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%-16s %12s %12s %10s\n", "candidate", "MAE", "RMSE", "MAPE %")
	for _, c := range report.Candidates {
		if c.Metrics == nil {
			fmt.Printf("%-16s failed: %s\n", c.Kind, c.Error)
			continue
		}
		fmt.Printf("%-16s %12.1f %12.1f %10.2f\n", c.Kind, c.Metrics.MAE, c.Metrics.RMSE, c.Metrics.MAPE)
	}
	fmt.Printf("\nSelected:  %s\n", report.Selected)
	fmt.Printf("Training:  %s .. %s (%d rows)\n", report.TrainingRange.Start, report.TrainingRange.End, report.TrainingRows)
	fmt.Printf("Holdout:   %s .. %s (%d rows)\n", report.HoldoutRange.Start, report.HoldoutRange.End, report.HoldoutRows)
	fmt.Printf("Artifact:  %s\n", cfg.Paths.ArtifactFile())
}
