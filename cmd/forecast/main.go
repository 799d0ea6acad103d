package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"tourism-forecast/internal/app"
	"tourism-forecast/internal/export"
	"tourism-forecast/internal/forecast"
	"tourism-forecast/internal/storage"
	"tourism-forecast/pkg/logging"
)

func main() {
	horizon := flag.Int("horizon", 0, "Months to forecast (default forecast.default_horizon)")
	asJSON := flag.Bool("json", false, "Print the forecast as JSON")
	xlsx := flag.Bool("xlsx", false, "Also export the forecast to the exports directory")
	flag.Parse()

	env := app.Load("tourism-forecast")
	cfg, logger := env.Config, env.Logger
	if *horizon == 0 {
		*horizon = cfg.Forecast.DefaultHorizon
	}

	ctx := context.Background()
	artifacts := storage.NewArtifactStore(cfg.Paths.ArtifactFile(), cfg.Paths.ReportFile())
	artifact, err := artifacts.LoadArtifact()
	if err != nil {
		logger.Fatal(ctx, "[FORECAST_ERROR] Failed to load model artifact", logging.Fields{}, err)
	}

	res, err := forecast.NewForecaster(cfg.Forecast, logger, env.Metrics).Forecast(ctx, artifact, *horizon)
	if err != nil {
		logger.Fatal(ctx, "[FORECAST_ERROR] Forecast failed", logging.Fields{
			"horizon": *horizon,
		}, err)
	}

	if *xlsx {
		path := filepath.Join(cfg.Paths.ExportsDir, "forecast.xlsx")
		if err := os.MkdirAll(cfg.Paths.ExportsDir, 0o755); err == nil {
			err = export.Forecast(path, res)
		}
		if err != nil {
			logger.Error(ctx, "[FORECAST_EXPORT_ERROR] Failed to export forecast", logging.Fields{"path": path}, err)
		}
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			logger.Fatal(ctx, "[FORECAST_ERROR] Failed to encode forecast", logging.Fields{}, err)
		}
		return
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("FORECAST  model=%s  horizon=%d  confidence=%.0f%%\n", res.Kind, res.Horizon, res.ConfidenceLevel*100)
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%-10s %14s %14s %14s\n", "period", "predicted", "lower", "upper")
	for _, pt := range res.Points {
		fmt.Printf("%-10s %14.0f %14.0f %14.0f\n", pt.Period, pt.Predicted, pt.Lower, pt.Upper)
	}
}
